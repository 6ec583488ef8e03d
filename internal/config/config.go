package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Phantombuster struct {
		APIKey        string  `yaml:"api_key"`
		ScraperAgent  string  `yaml:"scraper_agent_id"`
		SenderAgent   string  `yaml:"sender_agent_id"`
		TimeoutSec    int     `yaml:"timeout_seconds"`
		PollAfterSec  int     `yaml:"poll_interval_seconds"`
		RequestPerSec float64 `yaml:"requests_per_second"`
	} `yaml:"phantombuster"`
	Monday struct {
		APIKey  string `yaml:"api_key"`
		BoardID string `yaml:"board_id"`
	} `yaml:"monday"`
	OpenAI struct {
		APIKey string `yaml:"api_key"`
		Model  string `yaml:"model"`
	} `yaml:"openai"`
	Limits struct {
		DailyMessages     int `yaml:"daily_messages"`
		DailyProfileViews int `yaml:"daily_profile_views"`
		MinDelaySeconds   int `yaml:"min_delay_seconds"`
		MaxDelaySeconds   int `yaml:"max_delay_seconds"`
	} `yaml:"limits"`
	Workflow struct {
		RequireHumanApproval bool   `yaml:"require_human_approval"`
		Timezone             string `yaml:"timezone"`
		WorkStartHour        int    `yaml:"work_start_hour"`
		WorkEndHour          int    `yaml:"work_end_hour"`
		CalendarBookingLink  string `yaml:"calendar_booking_link"`
	} `yaml:"workflow"`
	Database struct {
		Path string `yaml:"path"`
	} `yaml:"database"`
	Logging struct {
		Level string `yaml:"level"`
	} `yaml:"logging"`
}

func Load(path string) (*Config, error) {
	_ = godotenv.Load() // optional
	cfg := defaultConfig()
	if b, err := os.ReadFile(path); err == nil {
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}
	applyEnvOverrides(&cfg)
	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func defaultConfig() Config {
	var cfg Config
	cfg.Phantombuster.TimeoutSec = 300
	cfg.Phantombuster.PollAfterSec = 10
	cfg.Phantombuster.RequestPerSec = 1.0
	cfg.OpenAI.Model = "gpt-4o"
	cfg.Limits.DailyMessages = 10
	cfg.Limits.DailyProfileViews = 20
	cfg.Limits.MinDelaySeconds = 60
	cfg.Limits.MaxDelaySeconds = 180
	cfg.Workflow.RequireHumanApproval = true
	cfg.Workflow.Timezone = "Asia/Jerusalem"
	cfg.Workflow.WorkStartHour = 9
	cfg.Workflow.WorkEndHour = 18
	cfg.Database.Path = "ksharim.db"
	cfg.Logging.Level = "info"
	return cfg
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("PHANTOMBUSTER_API_KEY"); v != "" {
		cfg.Phantombuster.APIKey = v
	}
	if v := os.Getenv("PHANTOMBUSTER_SCRAPER_AGENT_ID"); v != "" {
		cfg.Phantombuster.ScraperAgent = v
	}
	if v := os.Getenv("PHANTOMBUSTER_SENDER_AGENT_ID"); v != "" {
		cfg.Phantombuster.SenderAgent = v
	}
	if v := os.Getenv("MONDAY_API_KEY"); v != "" {
		cfg.Monday.APIKey = v
	}
	if v := os.Getenv("MONDAY_BOARD_ID"); v != "" {
		cfg.Monday.BoardID = v
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		cfg.OpenAI.APIKey = v
	}
	if v := os.Getenv("DAILY_MESSAGE_LIMIT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Limits.DailyMessages = n
		}
	}
	if v := os.Getenv("DAILY_PROFILE_VIEW_LIMIT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Limits.DailyProfileViews = n
		}
	}
	if v := os.Getenv("REQUIRE_HUMAN_APPROVAL"); v != "" {
		cfg.Workflow.RequireHumanApproval = v == "1" || v == "true"
	}
	if v := os.Getenv("KSHARIM_DB_PATH"); v != "" {
		cfg.Database.Path = v
	}
	if v := os.Getenv("KSHARIM_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}

func validate(cfg *Config) error {
	if cfg.Limits.DailyMessages <= 0 {
		return errors.New("limits.daily_messages must be > 0")
	}
	if cfg.Limits.DailyProfileViews <= 0 {
		return errors.New("limits.daily_profile_views must be > 0")
	}
	if cfg.Limits.MinDelaySeconds > cfg.Limits.MaxDelaySeconds {
		return errors.New("limits.min_delay_seconds must not exceed max_delay_seconds")
	}
	if cfg.Workflow.WorkStartHour < 0 || cfg.Workflow.WorkStartHour > 23 {
		return errors.New("workflow.work_start_hour must be between 0 and 23")
	}
	if cfg.Workflow.WorkEndHour < 0 || cfg.Workflow.WorkEndHour > 23 {
		return errors.New("workflow.work_end_hour must be between 0 and 23")
	}
	if cfg.Phantombuster.TimeoutSec <= 0 {
		return errors.New("phantombuster.timeout_seconds must be > 0")
	}
	if cfg.Phantombuster.PollAfterSec <= 0 {
		return errors.New("phantombuster.poll_interval_seconds must be > 0")
	}
	return nil
}
