// Package config loads planner's settings from JSON or YAML, then layers
// an optional .env file and PLANNER_* environment variables on top.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/Mavwarf/planner/internal/paths"
	"github.com/Mavwarf/planner/internal/telegram"
	"github.com/Mavwarf/planner/internal/tmpl"
	"github.com/Mavwarf/planner/internal/webhook"
)

const (
	DefaultTickSeconds   = 10
	DefaultVolume        = 100
	DefaultSound         = "notification"
	DefaultRetentionDays = 30
	DefaultPruneSchedule = "@daily"
)

// configNames are tried in order in each search directory.
var configNames = []string{"planner-config.json", "planner-config.yaml", "planner-config.yml"}

// Sound selects the chime played when a reminder fires. An empty name
// or "none" disables it.
type Sound struct {
	Name   string `json:"name" yaml:"name"`
	Volume int    `json:"volume" yaml:"volume"`
}

// MQTT configures the optional MQTT sink. It is off unless Broker is set.
type MQTT struct {
	Broker   string `json:"broker,omitempty" yaml:"broker,omitempty"`
	Topic    string `json:"topic,omitempty" yaml:"topic,omitempty"`
	ClientID string `json:"client_id,omitempty" yaml:"client_id,omitempty"`
	Username string `json:"username,omitempty" yaml:"username,omitempty"`
	Password string `json:"password,omitempty" yaml:"password,omitempty"`
	QoS      byte   `json:"qos,omitempty" yaml:"qos,omitempty"`
	Retain   bool   `json:"retain,omitempty" yaml:"retain,omitempty"`
}

// Webhook is an HTTP endpoint that receives every Push reminder.
type Webhook struct {
	URL     string            `json:"url" yaml:"url"`
	Format  string            `json:"format,omitempty" yaml:"format,omitempty"` // json | slack | discord
	Headers map[string]string `json:"headers,omitempty" yaml:"headers,omitempty"`
}

// Telegram configures the optional Telegram sink. It is off unless
// Token is set; PLANNER_TELEGRAM_TOKEN overrides the token.
type Telegram struct {
	Token  string `json:"token,omitempty" yaml:"token,omitempty"`
	ChatID string `json:"chat_id,omitempty" yaml:"chat_id,omitempty"`
}

// History configures the fired-notification log.
type History struct {
	Enabled       bool   `json:"enabled" yaml:"enabled"`
	RetentionDays int    `json:"retention_days" yaml:"retention_days"`
	PruneSchedule string `json:"prune_schedule" yaml:"prune_schedule"` // cron spec
}

// Config holds every planner setting.
type Config struct {
	DataDir         string    `json:"data_dir,omitempty" yaml:"data_dir,omitempty"`
	LogLevel        string    `json:"log_level" yaml:"log_level"`
	TickSeconds     int       `json:"tick_seconds" yaml:"tick_seconds"`
	AutoSave        bool      `json:"auto_save" yaml:"auto_save"`
	DaemonMode      string    `json:"daemon_mode" yaml:"daemon_mode"` // "active" | "passive"
	Toast           bool      `json:"toast" yaml:"toast"`
	Sound           Sound     `json:"sound" yaml:"sound"`
	MQTT            MQTT      `json:"mqtt" yaml:"mqtt"`
	Webhooks        []Webhook `json:"webhooks,omitempty" yaml:"webhooks,omitempty"`
	Telegram        Telegram  `json:"telegram" yaml:"telegram"`
	MessageTemplate string    `json:"message_template,omitempty" yaml:"message_template,omitempty"`
	History         History   `json:"history" yaml:"history"`
	Listen          string    `json:"listen,omitempty" yaml:"listen,omitempty"` // serves /metrics and /api

	// Source is the file the config was read from, empty for defaults.
	Source string `json:"-" yaml:"-"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		LogLevel:    "info",
		TickSeconds: DefaultTickSeconds,
		AutoSave:    true,
		DaemonMode:  "passive",
		Toast:       true,
		Sound:       Sound{Name: DefaultSound, Volume: DefaultVolume},
		History: History{
			Enabled:       true,
			RetentionDays: DefaultRetentionDays,
			PruneSchedule: DefaultPruneSchedule,
		},
	}
}

// UnmarshalJSON seeds defaults and then decodes, so only keys present
// in the file override them.
func (c *Config) UnmarshalJSON(data []byte) error {
	*c = Default()
	type Alias Config
	return json.Unmarshal(data, (*Alias)(c))
}

// UnmarshalYAML is the YAML counterpart of UnmarshalJSON.
func (c *Config) UnmarshalYAML(value *yaml.Node) error {
	*c = Default()
	type Alias Config
	return value.Decode((*Alias)(c))
}

// Tick is the scheduler period.
func (c Config) Tick() time.Duration {
	return time.Duration(c.TickSeconds) * time.Second
}

// Path returns name inside the data directory.
func (c Config) Path(name string) string {
	return paths.In(c.DataDir, name)
}

// SoundEnabled reports whether a chime should play on fire.
func (c Config) SoundEnabled() bool {
	return c.Sound.Name != "" && !strings.EqualFold(c.Sound.Name, "none")
}

// Load reads the configuration. It tries, in order:
//  1. explicitPath (if non-empty)
//  2. planner-config.{json,yaml,yml} next to the running binary
//  3. the same names in the user config directory
//
// Without any file it returns Default(). Environment overrides are
// applied and the result validated in every case.
func Load(explicitPath string) (Config, error) {
	cfg, err := find(explicitPath)
	if err != nil {
		return Config{}, err
	}
	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func find(explicitPath string) (Config, error) {
	if explicitPath != "" {
		return readConfig(explicitPath)
	}
	var dirs []string
	if exe, err := os.Executable(); err == nil {
		dirs = append(dirs, filepath.Dir(exe))
	}
	dirs = append(dirs, paths.ConfigDir())
	for _, dir := range dirs {
		for _, name := range configNames {
			p := filepath.Join(dir, name)
			if _, err := os.Stat(p); err == nil {
				return readConfig(p)
			}
		}
	}
	return Default(), nil
}

func readConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("reading config: %w", err)
	}
	cfg := Default()
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &cfg)
	default:
		err = json.Unmarshal(data, &cfg)
	}
	if err != nil {
		return Config{}, fmt.Errorf("parsing config %s: %w", path, err)
	}
	cfg.Source = path
	return cfg, nil
}

// applyEnv loads DataDir/.env (without overriding the real environment)
// and then applies PLANNER_* variables.
func applyEnv(cfg *Config) error {
	envFile := cfg.Path(paths.EnvFileName)
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("reading %s: %w", envFile, err)
	}
	if v := os.Getenv("PLANNER_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}
	if v := os.Getenv("PLANNER_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("PLANNER_TELEGRAM_TOKEN"); v != "" {
		cfg.Telegram.Token = v
	}
	if v := os.Getenv("PLANNER_TICK_SECONDS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("PLANNER_TICK_SECONDS: %w", err)
		}
		cfg.TickSeconds = n
	}
	return nil
}

// Validate reports every problem in cfg at once.
func Validate(cfg Config) error {
	var errs *multierror.Error
	if cfg.TickSeconds <= 0 {
		errs = multierror.Append(errs, fmt.Errorf("tick_seconds must be positive, got %d", cfg.TickSeconds))
	}
	if _, err := logrus.ParseLevel(cfg.LogLevel); err != nil {
		errs = multierror.Append(errs, fmt.Errorf("log_level: %w", err))
	}
	switch strings.ToLower(cfg.DaemonMode) {
	case "active", "passive":
	default:
		errs = multierror.Append(errs, fmt.Errorf("daemon_mode must be active or passive, got %q", cfg.DaemonMode))
	}
	if cfg.Sound.Volume < 0 || cfg.Sound.Volume > 100 {
		errs = multierror.Append(errs, fmt.Errorf("sound.volume must be 0-100, got %d", cfg.Sound.Volume))
	}
	if cfg.MQTT.Broker != "" && cfg.MQTT.Topic == "" {
		errs = multierror.Append(errs, errors.New("mqtt.topic is required when mqtt.broker is set"))
	}
	if cfg.MQTT.QoS > 2 {
		errs = multierror.Append(errs, fmt.Errorf("mqtt.qos must be 0, 1 or 2, got %d", cfg.MQTT.QoS))
	}
	for i, w := range cfg.Webhooks {
		if strings.TrimSpace(w.URL) == "" {
			errs = multierror.Append(errs, fmt.Errorf("webhooks[%d].url is required", i))
		}
		if _, err := webhook.ParseFormat(w.Format); err != nil {
			errs = multierror.Append(errs, fmt.Errorf("webhooks[%d].format: %w", i, err))
		}
	}
	if cfg.Telegram.Token != "" {
		if _, err := telegram.New(cfg.Telegram.Token, cfg.Telegram.ChatID); err != nil {
			errs = multierror.Append(errs, fmt.Errorf("telegram.chat_id: %w", err))
		}
	}
	if err := tmpl.Validate(cfg.MessageTemplate); err != nil {
		errs = multierror.Append(errs, fmt.Errorf("message_template: %w", err))
	}
	if cfg.History.Enabled {
		if cfg.History.RetentionDays < 0 {
			errs = multierror.Append(errs, fmt.Errorf("history.retention_days must not be negative"))
		}
		if cfg.History.PruneSchedule != "" {
			if _, err := cron.ParseStandard(cfg.History.PruneSchedule); err != nil {
				errs = multierror.Append(errs, fmt.Errorf("history.prune_schedule: %w", err))
			}
		}
	}
	return errs.ErrorOrNil()
}
