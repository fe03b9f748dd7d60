package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// ConfigError marks a fatal configuration problem. Configuration errors are
// reported before any remote call is made and are never retried.
type ConfigError struct {
	Msg string
}

func (e *ConfigError) Error() string {
	return "config: " + e.Msg
}

// Errorf builds a ConfigError
func Errorf(format string, args ...interface{}) error {
	return &ConfigError{Msg: fmt.Sprintf(format, args...)}
}

// duration decodes TOML duration strings ("5m", "30s") via time.ParseDuration
type duration time.Duration

func (d *duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = duration(v)
	return nil
}

// AgentFile is the on-disk shape of the session agent configuration
type AgentFile struct {
	PipelineCmd     []string         `toml:"pipeline_cmd"`
	BaseURL         string           `toml:"base_url"`
	ContinueOnError bool             `toml:"continue_on_error"`
	ServeAddr       string           `toml:"serve_addr"`
	JournalDir      string           `toml:"journal_dir"`
	LogDir          string           `toml:"log_dir"`
	Defaults        sessionDefaults  `toml:"defaults"`
	Sessions        []sessionSection `toml:"sessions"`
}

type sessionDefaults struct {
	DownloadDir    string       `toml:"download_dir"`
	OutputDir      string       `toml:"output_dir"`
	HeaderTemplate string       `toml:"header_template"`
	Headless       bool         `toml:"headless"`
	Retry          retrySection `toml:"retry"`
}

type retrySection struct {
	MaxAttempts int      `toml:"max_attempts"`
	Backoff     duration `toml:"backoff"`
}

type sessionSection struct {
	ID             string       `toml:"id"`
	DateFrom       string       `toml:"date_from"`
	DateTo         string       `toml:"date_to"`
	Scope          string       `toml:"scope"`
	Format         string       `toml:"format"`
	OutputDocName  string       `toml:"output_doc_name"`
	HeaderTemplate string       `toml:"header_template"`
	DownloadDir    string       `toml:"download_dir"`
	OutputDir      string       `toml:"output_dir"`
	Retry          retrySection `toml:"retry"`
	Meta           metaSection  `toml:"meta"`
	Email          emailSection `toml:"email"`
}

type metaSection struct {
	Number      string `toml:"number"`
	Type        string `toml:"type"`
	OpeningDate string `toml:"opening_date"`
	ClosingDate string `toml:"closing_date"`
	Time        string `toml:"time"`
}

type emailSection struct {
	Send       bool     `toml:"send"`
	Account    string   `toml:"account"`
	Recipients []string `toml:"recipients"`
	CC         []string `toml:"cc"`
	BCC        []string `toml:"bcc"`
	Subject    string   `toml:"subject"`
	Body       string   `toml:"body"`
	Verbose    bool     `toml:"verbose"`
	ForceSync  bool     `toml:"force_sync"`
}

// Env is a snapshot of the process environment, captured once at load time.
// Components never read ambient process state; overrides flow through here.
type Env map[string]string

// SnapshotEnv captures the current process environment
func SnapshotEnv() Env {
	env := make(Env)
	for _, kv := range os.Environ() {
		if i := strings.IndexByte(kv, '='); i > 0 {
			env[kv[:i]] = kv[i+1:]
		}
	}
	return env
}

// Get returns the value for name, or def when unset or empty
func (e Env) Get(name, def string) string {
	if v, ok := e[name]; ok && v != "" {
		return v
	}
	return def
}

// Require returns the value for name or a ConfigError when missing
func (e Env) Require(name string) (string, error) {
	if v, ok := e[name]; ok && v != "" {
		return v, nil
	}
	return "", Errorf("missing required environment variable: %s", name)
}

// RequireAny returns the first set value among names or a ConfigError
func (e Env) RequireAny(names ...string) (string, error) {
	for _, name := range names {
		if v, ok := e[name]; ok && v != "" {
			return v, nil
		}
	}
	return "", Errorf("missing required environment variable (one of): %s", strings.Join(names, ", "))
}

// LoadAgentFile reads and validates the TOML agent configuration
func LoadAgentFile(path string) (*AgentFile, error) {
	var af AgentFile
	if _, err := toml.DecodeFile(path, &af); err != nil {
		return nil, Errorf("failed to parse agent file %s: %v", path, err)
	}
	if len(af.PipelineCmd) == 0 {
		return nil, Errorf("agent file %s: pipeline_cmd is required", path)
	}
	if len(af.Sessions) == 0 {
		return nil, Errorf("agent file %s: at least one [[sessions]] block is required", path)
	}
	for i, s := range af.Sessions {
		if s.ID == "" {
			return nil, Errorf("agent file %s: sessions[%d] is missing id", path, i)
		}
		if s.DateFrom == "" || s.DateTo == "" {
			return nil, Errorf("agent file %s: session %s is missing date range", path, s.ID)
		}
	}
	if af.Defaults.Retry.MaxAttempts == 0 {
		af.Defaults.Retry.MaxAttempts = 1
	}
	if af.ServeAddr == "" {
		af.ServeAddr = "127.0.0.1:5000"
	}
	if af.JournalDir == "" {
		af.JournalDir = "."
	}
	return &af, nil
}
