package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/danielpatrickdp/affect-engine/internal/domain"
	"github.com/danielpatrickdp/affect-engine/internal/emotion"
	"github.com/danielpatrickdp/affect-engine/internal/session"
	"github.com/danielpatrickdp/affect-engine/internal/trigger"
	"github.com/danielpatrickdp/affect-engine/internal/update"
)

// Environment overrides, applied after the file and before validation.
const (
	EnvDB      = "AFFECT_DB"
	EnvAddr    = "AFFECT_ADDR"
	EnvLexicon = "AFFECT_LEXICON"
)

// #region types
// EngineConfig holds engine construction parameters.
type EngineConfig struct {
	ResetPolicy string   `yaml:"reset_policy"`
	TablePath   string   `yaml:"table_path"` // optional YAML emotion.TableSpec
	Priority    []string `yaml:"priority"`   // optional tie-break override
}

// LexiconConfig selects the trigger lexicon.
type LexiconConfig struct {
	Path        string `yaml:"path"` // empty means the built-in lexicon
	Watch       bool   `yaml:"watch"`
	MatchPolicy string `yaml:"match_policy"`
}

// StorageConfig locates durable state.
type StorageConfig struct {
	DBPath         string `yaml:"db_path"`
	ExportDir      string `yaml:"export_dir"`
	RecorderBuffer int    `yaml:"recorder_buffer"` // async transition recorder queue
}

// ServerConfig configures the gRPC service and its intake feed.
type ServerConfig struct {
	Addr      string  `yaml:"addr"`
	RateLimit float64 `yaml:"rate_limit"` // triggers per second, 0 disables
	Burst     int     `yaml:"burst"`
	QueueSize int     `yaml:"queue_size"`
}

// LoggingConfig configures zap.
type LoggingConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

// Config is the full runtime configuration.
type Config struct {
	Engine  EngineConfig     `yaml:"engine"`
	Decay   update.Regulator `yaml:"decay"`
	Lexicon LexiconConfig    `yaml:"lexicon"`
	Storage StorageConfig    `yaml:"storage"`
	Server  ServerConfig     `yaml:"server"`
	Logging LoggingConfig    `yaml:"logging"`
}

// #endregion types

// #region load
// Default returns the configuration used when no file is given.
func Default() *Config {
	var c Config
	c.applyDefaults()
	return &c
}

// Load reads a YAML config file, applies defaults and environment
// overrides, and validates. An empty path yields the defaults.
func Load(path string) (*Config, error) {
	var cfg Config
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, &domain.ConfigError{Problems: []string{fmt.Sprintf("parse yaml: %v", err)}}
		}
	}

	cfg.applyDefaults()
	cfg.applyEnv()

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	def := update.DefaultRegulator()
	if c.Decay.Rates == [3]float64{} {
		c.Decay.Rates = def.Rates
	}
	if c.Decay.Epsilon == 0 {
		c.Decay.Epsilon = def.Epsilon
	}
	if c.Engine.ResetPolicy == "" {
		c.Engine.ResetPolicy = string(session.ResetClear)
	}
	if c.Lexicon.MatchPolicy == "" {
		c.Lexicon.MatchPolicy = string(trigger.PolicySum)
	}
	if c.Storage.DBPath == "" {
		c.Storage.DBPath = "affect.db"
	}
	if c.Storage.ExportDir == "" {
		c.Storage.ExportDir = "exports"
	}
	if c.Storage.RecorderBuffer == 0 {
		c.Storage.RecorderBuffer = 256
	}
	if c.Server.Addr == "" {
		c.Server.Addr = "localhost:50061"
	}
	if c.Server.Burst == 0 {
		c.Server.Burst = 10
	}
	if c.Server.QueueSize == 0 {
		c.Server.QueueSize = 64
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
}

func (c *Config) applyEnv() {
	if v := os.Getenv(EnvDB); v != "" {
		c.Storage.DBPath = v
	}
	if v := os.Getenv(EnvAddr); v != "" {
		c.Server.Addr = v
	}
	if v := os.Getenv(EnvLexicon); v != "" {
		c.Lexicon.Path = v
	}
}

func (c *Config) validate() error {
	var problems []string

	if err := c.Decay.Validate(); err != nil {
		problems = append(problems, err.Error())
	}
	switch session.ResetPolicy(c.Engine.ResetPolicy) {
	case session.ResetClear, session.ResetRotate:
	default:
		problems = append(problems, fmt.Sprintf("engine.reset_policy %q must be clear or rotate", c.Engine.ResetPolicy))
	}
	if _, err := trigger.ParsePolicy(c.Lexicon.MatchPolicy); err != nil {
		problems = append(problems, fmt.Sprintf("lexicon.match_policy %q is unknown", c.Lexicon.MatchPolicy))
	}
	if c.Lexicon.Watch && c.Lexicon.Path == "" {
		problems = append(problems, "lexicon.watch requires lexicon.path")
	}
	if c.Server.RateLimit < 0 {
		problems = append(problems, "server.rate_limit must be >= 0")
	}
	if c.Server.Burst < 0 || c.Server.QueueSize < 0 || c.Storage.RecorderBuffer < 0 {
		problems = append(problems, "burst, queue_size and recorder_buffer must be >= 0")
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		problems = append(problems, fmt.Sprintf("logging.level %q is unknown", c.Logging.Level))
	}

	if len(problems) > 0 {
		return &domain.ConfigError{Problems: problems}
	}
	return nil
}

// #endregion load

// #region builders
// Table loads the configured emotion table, applying any priority override.
func (c *Config) Table() (*emotion.Table, error) {
	t := emotion.DefaultTable()
	if c.Engine.TablePath != "" {
		data, err := os.ReadFile(c.Engine.TablePath)
		if err != nil {
			return nil, fmt.Errorf("read emotion table: %w", err)
		}
		var spec emotion.TableSpec
		if err := yaml.Unmarshal(data, &spec); err != nil {
			return nil, domain.NewValidationError("engine.table_path", fmt.Sprintf("parse yaml: %v", err))
		}
		if t, err = emotion.FromSpec(spec); err != nil {
			return nil, err
		}
	}
	if len(c.Engine.Priority) > 0 {
		order := make([]emotion.CoreEmotion, len(c.Engine.Priority))
		for i, p := range c.Engine.Priority {
			order[i] = emotion.CoreEmotion(p)
		}
		return t.WithPriority(order)
	}
	return t, nil
}

// Resolver builds the lexicon resolver.
func (c *Config) Resolver() (*trigger.LexiconResolver, error) {
	policy, err := trigger.ParsePolicy(c.Lexicon.MatchPolicy)
	if err != nil {
		return nil, err
	}
	lex := trigger.DefaultLexicon()
	if c.Lexicon.Path != "" {
		if lex, err = trigger.LoadLexicon(c.Lexicon.Path); err != nil {
			return nil, err
		}
	}
	return trigger.NewLexiconResolver(lex, policy), nil
}

// String renders the effective config for logs.
func (c *Config) String() string {
	out, err := yaml.Marshal(c)
	if err != nil {
		return "config(" + strconv.Quote(err.Error()) + ")"
	}
	return string(out)
}

// #endregion builders
