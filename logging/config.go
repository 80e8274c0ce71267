package logging

// Style selects the zapcore encoding used by NewLogger.
type Style string

const (
	StyleTerminal Style = "terminal"
	StyleJson     Style = "json"
	StyleLogfmt   Style = "logfmt"
	StyleNoop     Style = "noop"
)

// LevelInfo is the Config.Level value for info-level logging.
const LevelInfo = "info"

// Config configures logger construction. A nil Config (or zero-valued
// fields) falls back to StyleTerminal at info level.
type Config struct {
	Style Style  `yaml:"style" json:"style"`
	Level string `yaml:"level" json:"level"`
}
