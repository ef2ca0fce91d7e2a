// Package config loads the agent configuration from YAML with environment
// overrides. Missing files are not an error; defaults apply.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/coffersTech/actionlog/internal/actionlog"
)

// Config is the full agent configuration.
type Config struct {
	Server ServerConfig `yaml:"server"`
	Log    LogConfig    `yaml:"log"`
	Agent  AgentConfig  `yaml:"agent"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr string `yaml:"addr"`
	// APIKeyHash is the bcrypt hash of the bearer key. Empty disables auth.
	APIKeyHash string `yaml:"api_key_hash"`
}

// LogConfig configures the action log appender.
type LogConfig struct {
	Path       string `yaml:"path"`
	MaxBytes   int64  `yaml:"max_bytes"`
	Backups    int    `yaml:"backups"`
	ServerType string `yaml:"server_type"`
}

// AgentConfig locates the gNB collaborators the tools act on.
type AgentConfig struct {
	ConfDir      string `yaml:"conf_dir"`
	ConfFile     string `yaml:"conf_file"`
	StartScript  string `yaml:"start_script"`
	StopScript   string `yaml:"stop_script"`
	ConfigScript string `yaml:"config_script"`
	LogsDir      string `yaml:"logs_dir"`
	DocsDir      string `yaml:"docs_dir"`
}

// Default returns the configuration used when nothing is specified.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr: ":8098",
		},
		Log: LogConfig{
			Path:       "data/actions.jsonl",
			MaxBytes:   actionlog.DefaultMaxBytes,
			Backups:    1,
			ServerType: "gnb",
		},
		Agent: AgentConfig{
			ConfDir:      "deps/openairinterface5g/ci-scripts/conf_files",
			ConfFile:     "gnb.sa.band78.51prb.usrpb200.conf",
			StartScript:  "scripts/start_gnb.sh",
			StopScript:   "scripts/stop_gnb.sh",
			ConfigScript: "scripts/get_gnb_config.sh",
			LogsDir:      "deps/openairinterface5g/cmake_targets/ran_build/build",
			DocsDir:      "knowledge_base",
		},
	}
}

// Load reads the YAML file at path over the defaults and applies environment
// overrides. A missing file leaves the defaults in place; path == "" skips
// the file entirely.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		} else if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	cfg.applyEnv()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv maps environment variables onto the config. OAI_CONF_DIR and
// GNB_CONFIG_FILE are the names the deployment scripts already export.
func (c *Config) applyEnv() {
	if v := os.Getenv("ACTIONLOG_ADDR"); v != "" {
		c.Server.Addr = v
	}
	if v := os.Getenv("ACTIONLOG_API_KEY_HASH"); v != "" {
		c.Server.APIKeyHash = v
	}
	if v := os.Getenv("ACTIONLOG_PATH"); v != "" {
		c.Log.Path = v
	}
	if v := os.Getenv("OAI_CONF_DIR"); v != "" {
		c.Agent.ConfDir = v
	}
	if v := os.Getenv("GNB_CONFIG_FILE"); v != "" {
		c.Agent.ConfFile = v
	}
	if v := os.Getenv("GNB_CONFIG_SCRIPT"); v != "" {
		c.Agent.ConfigScript = v
	}
	if v := os.Getenv("GNB_LOG_DIR"); v != "" {
		c.Agent.LogsDir = v
	}
}

func (c *Config) validate() error {
	if c.Log.Path == "" {
		return fmt.Errorf("log.path must not be empty")
	}
	if c.Log.MaxBytes <= 0 {
		return fmt.Errorf("log.max_bytes must be positive")
	}
	if c.Log.Backups < 1 {
		return fmt.Errorf("log.backups must be at least 1")
	}
	return nil
}
