package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Mode string `mapstructure:"mode"`
	Port int    `mapstructure:"port"`

	// Secret signs both the primary and the scoped signaling tokens.
	Secret string `mapstructure:"secret"`
	WSURL  string `mapstructure:"ws_url"`

	PingPeriod time.Duration `mapstructure:"ping_period"`

	UploadDir   string   `mapstructure:"upload_dir"`
	UploadLimit int64    `mapstructure:"upload_limit"`
	AllowedMIME []string `mapstructure:"allowed_mime"`

	RateLimit  int           `mapstructure:"rate_limit"`
	RateWindow time.Duration `mapstructure:"rate_window"`

	SessionMaxAge        time.Duration `mapstructure:"session_max_age"`
	SessionSweepInterval time.Duration `mapstructure:"session_sweep_interval"`

	OpenAIKey string `mapstructure:"openai_key"`
	STTModel  string `mapstructure:"stt_model"`
	TTSModel  string `mapstructure:"tts_model"`
	TTSVoice  string `mapstructure:"tts_voice"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	env := os.Getenv("CONFIG_ENV")
	if env == "" {
		env = "dev"
	}
	fileName := fmt.Sprintf("config/config.%s.yaml", env)

	v.SetConfigFile(fileName)
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.SetDefault("mode", "release")
	v.SetDefault("port", 8080)
	v.SetDefault("ws_url", "ws://localhost:8080")
	v.SetDefault("ping_period", "54s")
	v.SetDefault("upload_dir", "./uploads")
	v.SetDefault("upload_limit", 25<<20)
	v.SetDefault("allowed_mime", []string{
		"audio/webm", "audio/mp4", "audio/mpeg", "audio/wav", "audio/ogg",
	})
	v.SetDefault("rate_limit", 10)
	v.SetDefault("rate_window", "60s")
	v.SetDefault("session_max_age", "30m")
	v.SetDefault("session_sweep_interval", "5m")
	v.SetDefault("stt_model", "whisper-1")
	v.SetDefault("tts_model", "tts-1")
	v.SetDefault("tts_voice", "alloy")

	// Secrets come from the environment, never from checked-in files.
	v.AutomaticEnv()
	_ = v.BindEnv("secret", "JWT_SECRET")
	_ = v.BindEnv("openai_key", "OPENAI_KEY")

	if err := v.ReadInConfig(); err != nil {
		fmt.Printf("⚠️ Config file not found (%s), using defaults\n", fileName)
	} else {
		fmt.Printf("✅ Loaded config: %s\n", fileName)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if cfg.Secret == "" {
		return nil, fmt.Errorf("missing required configuration: secret (JWT_SECRET)")
	}
	fmt.Printf("🧩 Mode: %s | Port: %d | Uploads: %s\n", cfg.Mode, cfg.Port, cfg.UploadDir)
	return &cfg, nil
}
