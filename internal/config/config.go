package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/cobra"
)

type Config struct {
	Server     ServerConfig     `koanf:"server"`
	MCP        MCPConfig        `koanf:"mcp"`
	Models     ModelsConfig     `koanf:"models"`
	Database   DatabaseConfig   `koanf:"database"`
	Gmail      GmailConfig      `koanf:"gmail"`
	Classifier ClassifierConfig `koanf:"classifier"`
	Agent      AgentConfig      `koanf:"agent"`
	Tools      ToolsConfig      `koanf:"tools"`
	Prompts    PromptsConfig    `koanf:"prompts"`
	CORS       CORSConfig       `koanf:"cors"`
}

type ServerConfig struct {
	Port            int    `koanf:"port"`
	LogLevel        string `koanf:"log_level"`
	ReadTimeout     string `koanf:"read_timeout"`
	WriteTimeout    string `koanf:"write_timeout"`
	IdleTimeout     string `koanf:"idle_timeout"`
	ShutdownTimeout string `koanf:"shutdown_timeout"`
}

type MCPConfig struct {
	Port            int    `koanf:"port"`
	ShutdownTimeout string `koanf:"shutdown_timeout"`
}

type ModelsConfig struct {
	Default  string          `koanf:"default"`
	Registry []ModelRegistry `koanf:"registry"`
}

type ModelRegistry struct {
	Name           string  `koanf:"name"`
	Provider       string  `koanf:"provider"`
	BaseURL        string  `koanf:"base_url"`
	APIKey         string  `koanf:"api_key"`
	Temperature    float32 `koanf:"temperature"`
	RequestTimeout string  `koanf:"request_timeout"`
}

type DatabaseConfig struct {
	Host     string `koanf:"host"`
	Port     int    `koanf:"port"`
	Name     string `koanf:"name"`
	User     string `koanf:"user"`
	Password string `koanf:"password"`
	SSLMode  string `koanf:"sslmode"`
}

type GmailConfig struct {
	CredentialsFile string `koanf:"credentials_file"`
	TokenFile       string `koanf:"token_file"`
}

type ClassifierConfig struct {
	ModelPath string `koanf:"model_path"`
	MaxLength int    `koanf:"max_length"`
	// Library is the path to the ONNX Runtime shared library. Empty means
	// the platform default lookup.
	Library string `koanf:"library"`
}

type AgentConfig struct {
	MaxRounds int `koanf:"max_rounds"`
}

type ToolsConfig struct {
	Query QueryToolConfig `koanf:"query"`
	Email EmailToolConfig `koanf:"email"`
}

type QueryToolConfig struct {
	RowLimit int `koanf:"row_limit"`
}

type EmailToolConfig struct {
	DefaultFetch int `koanf:"default_fetch"`
	MaxFetch     int `koanf:"max_fetch"`
}

type PromptsConfig struct {
	System string `koanf:"system"`
}

type CORSConfig struct {
	AllowedOrigins []string `koanf:"allowed_origins"`
}

const (
	DefaultServerPort            = 8000
	DefaultServerLogLevel        = "info"
	DefaultServerReadTimeout     = "30s"
	DefaultServerWriteTimeout    = "120s"
	DefaultServerIdleTimeout     = "60s"
	DefaultServerShutdownTimeout = "5s"
	DefaultMCPPort               = 8001
	DefaultMCPShutdownTimeout    = "5s"
	DefaultModelName             = "qwen/qwen-2.5-72b-instruct"
	DefaultOpenRouterBaseURL     = "https://openrouter.ai/api/v1"
	DefaultModelTemperature      = 0.7
	DefaultModelRequestTimeout   = "120s"
	DefaultDatabaseHost          = "localhost"
	DefaultDatabasePort          = 5432
	DefaultDatabaseName          = "AdventureWorks"
	DefaultDatabaseUser          = "postgres"
	DefaultDatabasePassword      = "postgres"
	DefaultDatabaseSSLMode       = "disable"
	DefaultGmailCredentialsFile  = "credentials.json"
	DefaultGmailTokenFile        = "token.json"
	DefaultClassifierModelPath   = "models/email_classifier_bert_tiny"
	DefaultClassifierMaxLength   = 256
	DefaultAgentMaxRounds        = 10
	DefaultQueryRowLimit         = 10
	DefaultEmailDefaultFetch     = 5
	DefaultEmailMaxFetch         = 20
)

func Load(cmd *cobra.Command) (*Config, error) {
	k := koanf.New(".")

	defaults := map[string]interface{}{
		"server.port":             DefaultServerPort,
		"server.log_level":        DefaultServerLogLevel,
		"server.read_timeout":     DefaultServerReadTimeout,
		"server.write_timeout":    DefaultServerWriteTimeout,
		"server.idle_timeout":     DefaultServerIdleTimeout,
		"server.shutdown_timeout": DefaultServerShutdownTimeout,
		"mcp.port":                DefaultMCPPort,
		"mcp.shutdown_timeout":    DefaultMCPShutdownTimeout,
		"models.default":          DefaultModelName,
		"models.registry": []ModelRegistry{
			{
				Name:           DefaultModelName,
				Provider:       "openai",
				BaseURL:        DefaultOpenRouterBaseURL,
				Temperature:    DefaultModelTemperature,
				RequestTimeout: DefaultModelRequestTimeout,
			},
			{Name: "claude-sonnet-4-20250514", Provider: "anthropic"},
		},
		"database.host":             DefaultDatabaseHost,
		"database.port":             DefaultDatabasePort,
		"database.name":             DefaultDatabaseName,
		"database.user":             DefaultDatabaseUser,
		"database.password":         DefaultDatabasePassword,
		"database.sslmode":          DefaultDatabaseSSLMode,
		"gmail.credentials_file":    DefaultGmailCredentialsFile,
		"gmail.token_file":          DefaultGmailTokenFile,
		"classifier.model_path":     DefaultClassifierModelPath,
		"classifier.max_length":     DefaultClassifierMaxLength,
		"classifier.library":        "",
		"agent.max_rounds":          DefaultAgentMaxRounds,
		"tools.query.row_limit":     DefaultQueryRowLimit,
		"tools.email.default_fetch": DefaultEmailDefaultFetch,
		"tools.email.max_fetch":     DefaultEmailMaxFetch,
		"prompts.system":            DefaultSystemPrompt,
		"cors.allowed_origins":      []string{"http://localhost:3000", "http://frontend:3000"},
	}
	for key, value := range defaults {
		k.Set(key, value)
	}

	// Config file loading
	configPath := ""
	if cmd != nil {
		if flag := cmd.Flags().Lookup("config"); flag != nil {
			configPath = strings.TrimSpace(flag.Value.String())
		}
	}

	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, err
		}
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			globalPath := filepath.Join(home, ".anfora", "config.yaml")
			if err := k.Load(file.Provider(globalPath), yaml.Parser()); err != nil {
				slog.Debug("Global config not found or invalid", "path", globalPath, "error", err)
			}
		}
	}

	// Environment variables: ANFORA_SERVER_PORT -> server.port
	k.Load(env.Provider("ANFORA_", ".", func(s string) string {
		return strings.Replace(strings.ToLower(strings.TrimPrefix(s, "ANFORA_")), "_", ".", -1)
	}), nil)

	// CLI flags take final precedence.
	if cmd != nil {
		k.Load(posflag.Provider(cmd.Flags(), ".", k), nil)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, err
	}

	applyEnvFallbacks(&cfg)

	return &cfg, nil
}

// applyEnvFallbacks honors the environment contract of the original
// deployment: POSTGRES_* for the database and per-provider API keys.
func applyEnvFallbacks(cfg *Config) {
	if v := os.Getenv("POSTGRES_HOST"); v != "" {
		cfg.Database.Host = v
	}
	if v := os.Getenv("POSTGRES_DB"); v != "" {
		cfg.Database.Name = v
	}
	if v := os.Getenv("POSTGRES_USER"); v != "" {
		cfg.Database.User = v
	}
	if v := os.Getenv("POSTGRES_PASSWORD"); v != "" {
		cfg.Database.Password = v
	}
	if v := os.Getenv("POSTGRES_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Database.Port = port
		}
	}

	if key := os.Getenv("OPENROUTER_API_KEY"); key != "" {
		for i, m := range cfg.Models.Registry {
			if m.Provider == "openai" && m.APIKey == "" {
				cfg.Models.Registry[i].APIKey = key
			}
		}
	}
	if key := os.Getenv("ANTHROPIC_API_KEY"); key != "" {
		for i, m := range cfg.Models.Registry {
			if m.Provider == "anthropic" && m.APIKey == "" {
				cfg.Models.Registry[i].APIKey = key
			}
		}
	}
}

// DefaultRegistry returns the registry entry for the configured default
// model, falling back to the first entry.
func (c *Config) DefaultRegistry() (ModelRegistry, bool) {
	for _, m := range c.Models.Registry {
		if m.Name == c.Models.Default {
			return m, true
		}
	}
	if len(c.Models.Registry) > 0 {
		return c.Models.Registry[0], true
	}
	return ModelRegistry{}, false
}
