package config

import (
	"errors"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds the application configuration
type Config struct {
	LogLevel string        `mapstructure:"log_level"`
	LLM      LLMConfig     `mapstructure:"llm"`
	Server   ServerConfig  `mapstructure:"server"`
	Storage  StorageConfig `mapstructure:"storage"`
	Secrets  SecretsConfig `mapstructure:"secrets"`
}

// LLMConfig holds the remote model configuration
type LLMConfig struct {
	Provider           string        `mapstructure:"provider"`
	BaseURL            string        `mapstructure:"base_url"`
	APIKey             string        `mapstructure:"api_key"`
	APIKeyEnv          string        `mapstructure:"api_key_env"`
	Model              string        `mapstructure:"model"`
	SummaryModel       string        `mapstructure:"summary_model"`
	TranscriptionModel string        `mapstructure:"transcription_model"`
	Timeout            time.Duration `mapstructure:"timeout"`
}

// ServerConfig holds the server configuration
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port string `mapstructure:"port"`
}

// StorageConfig locates the message log file and the audio directory.
type StorageConfig struct {
	DBPath   string `mapstructure:"db_path"`
	AudioDir string `mapstructure:"audio_dir"`
}

// SecretsConfig points at the application secrets file.
type SecretsConfig struct {
	Path string `mapstructure:"path"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log_level", "info")
	v.SetDefault("llm.provider", "gemini")
	v.SetDefault("llm.api_key_env", "GEMINI_API_KEY")
	v.SetDefault("llm.model", "gemini-2.5-flash")
	v.SetDefault("llm.summary_model", "gemini-2.5-pro")
	v.SetDefault("llm.transcription_model", "whisper-1")
	v.SetDefault("llm.timeout", time.Duration(0))
	v.SetDefault("llm.base_url", "")
	v.SetDefault("llm.api_key", "")
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", "8080")
	v.SetDefault("storage.db_path", "chat.db")
	v.SetDefault("storage.audio_dir", "audio_files")
	v.SetDefault("secrets.path", ".streamlit/secrets.toml")
}

// Load reads config.yaml from the working directory, or the file named by
// CONFIG_PATH. Every key can be overridden with MEDITRANSLATE_<SECTION>_<KEY>.
// A missing config.yaml is not an error; a missing CONFIG_PATH file is.
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("MEDITRANSLATE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path := os.Getenv("CONFIG_PATH"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, err
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, err
			}
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

// Addr is the host:port the HTTP server listens on.
func (c ServerConfig) Addr() string {
	return c.Host + ":" + c.Port
}
