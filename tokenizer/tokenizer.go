// Package tokenizer implements the deterministic URL tokenization rules
// of spec §4.1: path segments, case-transition splitting, numeric-ID
// sentinels, extension extraction, query-key extraction, and a host
// token. Tokenization is pure: the same (host, path, query) always
// yields the same token sequence.
package tokenizer

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/conversem/server-side-query-fan-out-session-reporting/request"
)

const (
	maxBareDigits = 6
	numSentinel   = "<num>"
)

// Tokenizer produces a token sequence for a request. Embedders depend
// on this interface, not on the Tokenize function directly, so an
// alternate tokenization scheme can be swapped in without touching the
// embedding layer.
type Tokenizer interface {
	Tokenize(r request.Request) []string
}

// Default is the spec §4.1 reference tokenizer.
type Default struct{}

// NewDefault returns the spec-compliant tokenizer.
func NewDefault() Default { return Default{} }

// Tokenize implements Tokenizer.
func (Default) Tokenize(r request.Request) []string {
	return Tokenize(r.Host, r.Path, r.QueryString)
}

// Tokenize is the pure tokenization function underlying Default. It
// does not deduplicate -- callers that need a deduped set for
// document-frequency counting should do so themselves, keeping the
// raw per-request multiset available for term-frequency counting
// (spec §4.2: "Term frequency is raw count per request").
func Tokenize(host, path, query string) []string {
	var tokens []string

	if host != "" {
		tokens = append(tokens, "h:"+strings.ToLower(host))
	}

	segments := splitNonEmpty(path, '/')
	for i, seg := range segments {
		isLast := i == len(segments)-1
		base := seg
		if isLast {
			if ext, rest, ok := splitExtension(seg); ok {
				base = rest
				tokens = append(tokens, "ext:"+strings.ToLower(ext))
			}
		}
		tokens = append(tokens, tokenizeSegment(base)...)
	}

	if query != "" {
		tokens = append(tokens, queryKeyTokens(query)...)
	}

	return tokens
}

// tokenizeSegment splits one path segment on [-_.] and on camelCase
// transitions, then lowercases and applies the numeric-ID sentinel.
func tokenizeSegment(seg string) []string {
	if seg == "" {
		return nil
	}
	var out []string
	for _, part := range splitOnDelims(seg) {
		for _, sub := range splitCamelCase(part) {
			if sub == "" {
				continue
			}
			out = append(out, normalizeToken(sub))
		}
	}
	return out
}

// normalizeToken lowercases a token and replaces long pure-numeric
// tokens with the <num> sentinel per spec §4.1.
func normalizeToken(tok string) string {
	if isPureNumeric(tok) && len(tok) > maxBareDigits {
		return numSentinel
	}
	return strings.ToLower(tok)
}

func isPureNumeric(s string) bool {
	if s == "" {
		return false
	}
	_, err := strconv.ParseUint(s, 10, 64)
	if err == nil {
		return true
	}
	// ParseUint overflows for very long digit runs; check digits directly.
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

func splitOnDelims(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return r == '-' || r == '_' || r == '.'
	})
}

// splitCamelCase splits camelCase / PascalCase at case transitions,
// e.g. "camelCase" -> ["camel", "Case"].
func splitCamelCase(s string) []string {
	if s == "" {
		return nil
	}
	var words []string
	runes := []rune(s)
	start := 0
	for i := 1; i < len(runes); i++ {
		prevLower := isLower(runes[i-1])
		currUpper := isUpper(runes[i])
		if prevLower && currUpper {
			words = append(words, string(runes[start:i]))
			start = i
		}
	}
	words = append(words, string(runes[start:]))
	return words
}

func isLower(r rune) bool { return r >= 'a' && r <= 'z' }
func isUpper(r rune) bool { return r >= 'A' && r <= 'Z' }

// splitExtension pulls a trailing file extension (".html", ".json",
// ...) off the final path segment, per spec §4.1.
func splitExtension(seg string) (ext, rest string, ok bool) {
	idx := strings.LastIndexByte(seg, '.')
	if idx <= 0 || idx == len(seg)-1 {
		return "", seg, false
	}
	return seg[idx+1:], seg[:idx], true
}

// queryKeyTokens extracts parameter keys only (values discarded) from
// a query string, prefixed with "q:" per spec §4.1. Keys are emitted
// in their original left-to-right order for determinism: url.Values
// is a map and would make token order depend on Go's randomized map
// iteration, violating the determinism invariant (spec §8.5).
func queryKeyTokens(query string) []string {
	var tokens []string
	for _, pair := range strings.Split(query, "&") {
		if pair == "" {
			continue
		}
		key := pair
		if idx := strings.IndexByte(pair, '='); idx >= 0 {
			key = pair[:idx]
		}
		if key == "" {
			continue
		}
		if unescaped, err := url.QueryUnescape(key); err == nil {
			key = unescaped
		}
		tokens = append(tokens, "q:"+strings.ToLower(key))
	}
	return tokens
}

func splitNonEmpty(s string, sep byte) []string {
	raw := strings.Split(s, string(sep))
	out := raw[:0]
	for _, seg := range raw {
		if seg != "" {
			out = append(out, seg)
		}
	}
	return out
}

// Dedup returns a copy of tokens with duplicates removed, preserving
// first-occurrence order. Used when building document-frequency
// counts for TF-IDF (spec §4.2).
func Dedup(tokens []string) []string {
	seen := make(map[string]struct{}, len(tokens))
	out := make([]string, 0, len(tokens))
	for _, t := range tokens {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}
