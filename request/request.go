// Package request defines the normalized input record the QFOS engine
// consumes (spec §3). The engine treats Provider and Timestamp as
// authoritative keys; every other field is either required plumbing or
// optional context carried through to sessions unused by the core.
package request

import (
	"fmt"
	"strings"
	"time"
)

// Provider is a coarse classifier of a request's user-agent string.
// The engine uses it as a hard partitioning key; no cross-provider
// merging is ever performed.
type Provider string

const (
	ProviderOpenAI     Provider = "OpenAI"
	ProviderAnthropic  Provider = "Anthropic"
	ProviderPerplexity Provider = "Perplexity"
	ProviderGoogle     Provider = "Google"
	ProviderMicrosoft  Provider = "Microsoft"
	ProviderOther      Provider = "Other"
	ProviderUnknown    Provider = "Unknown"
)

// BotCategory classifies the purpose of a request.
type BotCategory string

const (
	BotCategoryUserRequest BotCategory = "user_request"
	BotCategoryCrawler     BotCategory = "crawler"
	BotCategoryOther       BotCategory = "other"
)

// CacheStatus mirrors common CDN cache-status values; kept as a string
// type rather than an enum since providers vary this freely.
type CacheStatus string

// Request is an immutable normalized input record (spec §3).
type Request struct {
	// Required
	ID         string    `json:"id"`
	Timestamp  time.Time `json:"timestamp"`
	ClientIP   string    `json:"client_ip"`
	Method     string    `json:"method"`
	Host       string    `json:"host"`
	Path       string    `json:"path"`
	StatusCode int       `json:"status_code"`
	UserAgent  string    `json:"user_agent"`

	// Optional
	QueryString    string      `json:"query_string,omitempty"`
	ResponseBytes  int64       `json:"response_bytes,omitempty"`
	RequestBytes   int64       `json:"request_bytes,omitempty"`
	ResponseTimeMS int64       `json:"response_time_ms,omitempty"`
	CacheStatus    CacheStatus `json:"cache_status,omitempty"`
	EdgeLocation   string      `json:"edge_location,omitempty"`
	Referer        string      `json:"referer,omitempty"`
	Protocol       string      `json:"protocol,omitempty"`
	SSLProtocol    string      `json:"ssl_protocol,omitempty"`

	// Derived at ingest
	Provider    Provider    `json:"provider"`
	BotCategory BotCategory `json:"bot_category,omitempty"`
}

// Validate enforces the non-null timestamp/provider invariant. It is
// meant for ingest-boundary checks (spec §3); internal pipeline code
// trusts the type and does not re-validate.
func (r Request) Validate() error {
	if r.Timestamp.IsZero() {
		return fmt.Errorf("request %q: missing timestamp", r.ID)
	}
	if r.Provider == "" {
		return fmt.Errorf("request %q: missing provider", r.ID)
	}
	return nil
}

// Classifier derives Provider and BotCategory from a raw request at
// ingest. The core engine never calls this itself -- ingestion
// adapters are out of scope (spec §1) -- but a default rule-based
// implementation is provided so a complete pipeline can be assembled
// without a bespoke classifier.
type Classifier interface {
	ClassifyProvider(userAgent string) Provider
	ClassifyBotCategory(userAgent string, statusCode int) BotCategory
}

// uaRule matches a user-agent substring to a provider.
type uaRule struct {
	substr   string
	provider Provider
}

// DefaultClassifier is a substring-table classifier over well-known
// LLM-crawler user-agent fragments.
type DefaultClassifier struct {
	rules []uaRule
}

// NewDefaultClassifier returns a DefaultClassifier with the built-in
// provider rule table.
func NewDefaultClassifier() *DefaultClassifier {
	return &DefaultClassifier{
		rules: []uaRule{
			{"gptbot", ProviderOpenAI},
			{"oai-searchbot", ProviderOpenAI},
			{"chatgpt-user", ProviderOpenAI},
			{"anthropic-ai", ProviderAnthropic},
			{"claude-web", ProviderAnthropic},
			{"claudebot", ProviderAnthropic},
			{"perplexitybot", ProviderPerplexity},
			{"perplexity-user", ProviderPerplexity},
			{"googlebot", ProviderGoogle},
			{"google-extended", ProviderGoogle},
			{"bingbot", ProviderMicrosoft},
			{"bingpreview", ProviderMicrosoft},
			{"msnbot", ProviderMicrosoft},
		},
	}
}

// ClassifyProvider matches the user agent against the built-in rule
// table, case-insensitively, returning ProviderOther on no match.
func (c *DefaultClassifier) ClassifyProvider(userAgent string) Provider {
	ua := strings.ToLower(userAgent)
	if ua == "" {
		return ProviderUnknown
	}
	for _, rule := range c.rules {
		if strings.Contains(ua, rule.substr) {
			return rule.provider
		}
	}
	return ProviderOther
}

// ClassifyBotCategory classifies a request as a user-triggered fetch,
// a crawler sweep, or other traffic, based on coarse UA/status signals.
func (c *DefaultClassifier) ClassifyBotCategory(userAgent string, statusCode int) BotCategory {
	ua := strings.ToLower(userAgent)
	switch {
	case strings.Contains(ua, "-user"):
		return BotCategoryUserRequest
	case strings.Contains(ua, "bot") || strings.Contains(ua, "crawler") || strings.Contains(ua, "spider"):
		return BotCategoryCrawler
	default:
		return BotCategoryOther
	}
}
