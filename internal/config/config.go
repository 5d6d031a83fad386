package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

const (
	DefaultAgentModel      = "gpt-4o"
	DefaultModerationModel = "gpt-4o-mini"
	DefaultMaxTokens       = 1024
	DefaultTemperature     = 0.7
	DefaultRequestTimeout  = 30

	DefaultPrivateHistoryLimit = 20
	DefaultGroupHistoryLimit   = 6
	DefaultHistoryCap          = 20

	DefaultBanThreshold    = 2
	DefaultAutoDeleteDelay = 30

	DefaultSyncSchedule = "0 0 4 * * *"
)

type Config struct {
	Agent      AgentConfig      `json:"agent"`
	Moderation ModerationConfig `json:"moderation"`
	Telegram   TelegramConfig   `json:"telegram"`
	Provider   ProviderConfig   `json:"provider"`
	Store      StoreConfig      `json:"store"`
	Resources  ResourcesConfig  `json:"resources"`
	Videos     VideosConfig     `json:"videos"`
}

type AgentConfig struct {
	Model               string  `json:"model"`
	MaxTokens           int     `json:"maxTokens"`
	Temperature         float64 `json:"temperature"`
	PrivateHistoryLimit int     `json:"privateHistoryLimit"`
	GroupHistoryLimit   int     `json:"groupHistoryLimit"`
	HistoryCap          int     `json:"historyCap"`
}

type ModerationConfig struct {
	Model           string `json:"model"`
	BanThreshold    int    `json:"banThreshold"`
	AutoDeleteDelay int    `json:"autoDeleteDelay"` // seconds
}

type TelegramConfig struct {
	Token string `json:"token"`
	Proxy string `json:"proxy,omitempty"`
}

type ProviderConfig struct {
	APIKey         string `json:"apiKey"`
	BaseURL        string `json:"baseUrl,omitempty"`
	RequestTimeout int    `json:"requestTimeout"` // seconds
}

type StoreConfig struct {
	DBPath string `json:"dbPath"`
}

type ResourcesConfig struct {
	RootFolderID string `json:"rootFolderId"`
	APIKey       string `json:"apiKey"`
	SyncSchedule string `json:"syncSchedule"`
}

type VideosConfig struct {
	APIKey    string `json:"apiKey"`
	ChannelID string `json:"channelId"`
}

func DefaultConfig() *Config {
	return &Config{
		Agent: AgentConfig{
			Model:               DefaultAgentModel,
			MaxTokens:           DefaultMaxTokens,
			Temperature:         DefaultTemperature,
			PrivateHistoryLimit: DefaultPrivateHistoryLimit,
			GroupHistoryLimit:   DefaultGroupHistoryLimit,
			HistoryCap:          DefaultHistoryCap,
		},
		Moderation: ModerationConfig{
			Model:           DefaultModerationModel,
			BanThreshold:    DefaultBanThreshold,
			AutoDeleteDelay: DefaultAutoDeleteDelay,
		},
		Provider: ProviderConfig{
			RequestTimeout: DefaultRequestTimeout,
		},
		Store: StoreConfig{
			DBPath: filepath.Join(ConfigDir(), "studybot.db"),
		},
		Resources: ResourcesConfig{
			SyncSchedule: DefaultSyncSchedule,
		},
	}
}

func ConfigDir() string {
	home := os.Getenv("HOME")
	if home == "" {
		home, _ = os.UserHomeDir()
	}
	return filepath.Join(home, ".studybot")
}

func ConfigPath() string {
	return filepath.Join(ConfigDir(), "config.json")
}

func LoadConfig() (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(ConfigPath())
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	} else {
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	// Environment variable overrides
	if key := os.Getenv("STUDYBOT_API_KEY"); key != "" {
		cfg.Provider.APIKey = key
	}
	if key := os.Getenv("OPENAI_API_KEY"); key != "" && cfg.Provider.APIKey == "" {
		cfg.Provider.APIKey = key
	}
	if url := os.Getenv("STUDYBOT_BASE_URL"); url != "" {
		cfg.Provider.BaseURL = url
	}
	if token := os.Getenv("TELEGRAM_BOT_TOKEN"); token != "" {
		cfg.Telegram.Token = token
	}
	if token := os.Getenv("STUDYBOT_TELEGRAM_TOKEN"); token != "" {
		cfg.Telegram.Token = token
	}
	if path := os.Getenv("STUDYBOT_DB_PATH"); path != "" {
		cfg.Store.DBPath = path
	}
	if key := os.Getenv("YOUTUBE_API_KEY"); key != "" {
		cfg.Videos.APIKey = key
	}
	if id := os.Getenv("STUDYBOT_DRIVE_FOLDER_ID"); id != "" {
		cfg.Resources.RootFolderID = id
	}
	if key := os.Getenv("STUDYBOT_DRIVE_API_KEY"); key != "" {
		cfg.Resources.APIKey = key
	}
	if threshold := os.Getenv("STUDYBOT_BAN_THRESHOLD"); threshold != "" {
		if parsed, err := strconv.Atoi(threshold); err == nil && parsed > 0 {
			cfg.Moderation.BanThreshold = parsed
		}
	}

	if cfg.Agent.Model == "" {
		cfg.Agent.Model = DefaultAgentModel
	}
	if cfg.Moderation.Model == "" {
		cfg.Moderation.Model = DefaultModerationModel
	}
	if cfg.Moderation.BanThreshold <= 0 {
		cfg.Moderation.BanThreshold = DefaultBanThreshold
	}
	if cfg.Moderation.AutoDeleteDelay <= 0 {
		cfg.Moderation.AutoDeleteDelay = DefaultAutoDeleteDelay
	}
	if cfg.Agent.PrivateHistoryLimit <= 0 {
		cfg.Agent.PrivateHistoryLimit = DefaultPrivateHistoryLimit
	}
	if cfg.Agent.GroupHistoryLimit <= 0 {
		cfg.Agent.GroupHistoryLimit = DefaultGroupHistoryLimit
	}
	if cfg.Agent.HistoryCap <= 0 {
		cfg.Agent.HistoryCap = DefaultHistoryCap
	}
	if cfg.Provider.RequestTimeout <= 0 {
		cfg.Provider.RequestTimeout = DefaultRequestTimeout
	}
	if cfg.Store.DBPath == "" {
		cfg.Store.DBPath = DefaultConfig().Store.DBPath
	}
	if cfg.Resources.SyncSchedule == "" {
		cfg.Resources.SyncSchedule = DefaultSyncSchedule
	}

	return cfg, nil
}

func SaveConfig(cfg *Config) error {
	dir := ConfigDir()
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	return os.WriteFile(ConfigPath(), data, 0644)
}
