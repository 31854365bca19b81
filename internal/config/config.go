// Package config loads the immutable per-run options: global defaults from
// a TOML file plus per-feed overrides keyed by feed URL. The resulting
// Options value is constructed once per run and threaded through every
// component; nothing mutates it afterwards.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"feedmail/internal/storage"
)

// ConfigError means the options are malformed. It is fatal: the run aborts
// before any feed is processed.
type ConfigError struct {
	Setting string
	Err     error
}

func (e *ConfigError) Error() string {
	if e.Setting != "" {
		return fmt.Sprintf("config %s: %v", e.Setting, e.Err)
	}
	return fmt.Sprintf("config: %v", e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

type Options struct {
	Database string                  `mapstructure:"database"`
	Mail     MailOptions             `mapstructure:"mail"`
	Run      RunOptions              `mapstructure:"run"`
	Feeds    map[string]FeedOverride `mapstructure:"feeds"`
}

type MailOptions struct {
	DefaultFrom       string          `mapstructure:"default_from"`
	ForceFrom         bool            `mapstructure:"force_from"`
	UsePublisherEmail bool            `mapstructure:"use_publisher_email"`
	HTML              bool            `mapstructure:"html"`
	DateHeader        bool            `mapstructure:"date_header"`
	SMTP              SMTPOptions     `mapstructure:"smtp"`
	Sendmail          SendmailOptions `mapstructure:"sendmail"`
}

type SMTPOptions struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	SSL      bool   `mapstructure:"ssl"`
}

type SendmailOptions struct {
	Path string `mapstructure:"path"`
}

type RunOptions struct {
	TrustGUID      bool          `mapstructure:"trust_guid"`
	TrustLink      bool          `mapstructure:"trust_link"`
	NotifyOnChange bool          `mapstructure:"notify_on_change"`
	Timeout        time.Duration `mapstructure:"timeout"`
	SaveEveryFeed  bool          `mapstructure:"save_every_feed"`
	FatalDispatch  bool          `mapstructure:"fatal_dispatch"`
	UserAgent      string        `mapstructure:"user_agent"`
	LogLevel       string        `mapstructure:"log_level"`
}

// FeedOverride carries per-feed settings from the config file, keyed by
// feed URL. Pointer fields distinguish "unset" from an explicit false.
type FeedOverride struct {
	Target      string `mapstructure:"target"`
	From        string `mapstructure:"from"`
	TrustGUID   *bool  `mapstructure:"trust_guid"`
	TrustLink   *bool  `mapstructure:"trust_link"`
	HTML        *bool  `mapstructure:"html"`
	PostProcess string `mapstructure:"post_process"`
}

func defaultOptions() *Options {
	return &Options{
		Database: defaultDatabasePath(),
		Mail: MailOptions{
			DefaultFrom: "feedmail@localhost",
			HTML:        false,
			SMTP:        SMTPOptions{Port: 587},
			Sendmail:    SendmailOptions{Path: "/usr/sbin/sendmail"},
		},
		Run: RunOptions{
			TrustGUID: true,
			Timeout:   30 * time.Second,
			LogLevel:  "warning",
		},
	}
}

func defaultDatabasePath() string {
	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		home, _ := os.UserHomeDir()
		dataHome = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dataHome, "feedmail", "feedmail.json")
}

// Load reads options from the given TOML file, or from the default config
// locations when path is empty. Missing files are fine; a malformed file or
// inconsistent settings are a ConfigError.
func Load(path string) (*Options, error) {
	v := viper.New()

	// Defaults are registered per leaf key: a struct-valued default would be
	// shadowed wholesale by a file that sets any key in its section.
	defaults := defaultOptions()
	v.SetDefault("database", defaults.Database)
	v.SetDefault("mail.default_from", defaults.Mail.DefaultFrom)
	v.SetDefault("mail.smtp.port", defaults.Mail.SMTP.Port)
	v.SetDefault("mail.sendmail.path", defaults.Mail.Sendmail.Path)
	v.SetDefault("run.trust_guid", defaults.Run.TrustGUID)
	v.SetDefault("run.timeout", defaults.Run.Timeout)
	v.SetDefault("run.log_level", defaults.Run.LogLevel)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		configHome := os.Getenv("XDG_CONFIG_HOME")
		if configHome == "" {
			home, _ := os.UserHomeDir()
			configHome = filepath.Join(home, ".config")
		}
		v.SetConfigName("feedmail")
		v.SetConfigType("toml")
		v.AddConfigPath(filepath.Join(configHome, "feedmail"))
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("FEEDMAIL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, &ConfigError{Err: err}
		}
	}

	var opts Options
	if err := v.Unmarshal(&opts); err != nil {
		return nil, &ConfigError{Err: err}
	}
	opts.Database = expandPath(opts.Database)

	if err := opts.validate(); err != nil {
		return nil, err
	}
	return &opts, nil
}

func (o *Options) validate() error {
	if o.Run.Timeout <= 0 {
		return &ConfigError{Setting: "run.timeout", Err: fmt.Errorf("must be positive, got %s", o.Run.Timeout)}
	}
	if o.Mail.SMTP.Enabled && o.Mail.SMTP.Host == "" {
		return &ConfigError{Setting: "mail.smtp.host", Err: fmt.Errorf("required when smtp is enabled")}
	}
	if _, err := logrus.ParseLevel(o.Run.LogLevel); err != nil {
		return &ConfigError{Setting: "run.log_level", Err: err}
	}
	return nil
}

// LogLevel returns the parsed logging level. Options are validated on load,
// so this cannot fail afterwards.
func (o *Options) LogLevel() logrus.Level {
	level, err := logrus.ParseLevel(o.Run.LogLevel)
	if err != nil {
		return logrus.WarnLevel
	}
	return level
}

// Resolved is the effective per-feed view of the options, after applying
// the URL-keyed override and the feed's own stored overrides.
type Resolved struct {
	Target      string
	From        string
	TrustGUID   bool
	TrustLink   bool
	HTML        bool
	PostProcess string
}

// ForFeed resolves the options for one feed. Precedence, weakest first:
// global defaults, config-file override for the feed's URL, then the
// overrides stored in the feed's registry entry. defaultTarget comes from
// the database.
func (o *Options) ForFeed(cfg *storage.FeedConfig, defaultTarget string) Resolved {
	res := Resolved{
		Target:    defaultTarget,
		From:      o.Mail.DefaultFrom,
		TrustGUID: o.Run.TrustGUID,
		TrustLink: o.Run.TrustLink,
		HTML:      o.Mail.HTML,
	}

	// Viper lowercases map keys, so overrides match case-insensitively.
	if ov, ok := o.Feeds[strings.ToLower(cfg.URL)]; ok {
		if ov.Target != "" {
			res.Target = ov.Target
		}
		if ov.From != "" {
			res.From = ov.From
		}
		if ov.TrustGUID != nil {
			res.TrustGUID = *ov.TrustGUID
		}
		if ov.TrustLink != nil {
			res.TrustLink = *ov.TrustLink
		}
		if ov.HTML != nil {
			res.HTML = *ov.HTML
		}
		res.PostProcess = ov.PostProcess
	}

	if cfg.Target != "" {
		res.Target = cfg.Target
	}
	if cfg.From != "" {
		res.From = cfg.From
	}
	if cfg.TrustGUID != nil {
		res.TrustGUID = *cfg.TrustGUID
	}
	if cfg.TrustLink != nil {
		res.TrustLink = *cfg.TrustLink
	}
	return res
}

// expandPath expands a leading ~ and makes the path absolute.
func expandPath(path string) string {
	if path == "" {
		return path
	}
	if len(path) >= 2 && path[:2] == "~/" {
		home, _ := os.UserHomeDir()
		path = filepath.Join(home, path[2:])
	}
	if !filepath.IsAbs(path) {
		if abs, err := filepath.Abs(path); err == nil {
			path = abs
		}
	}
	return path
}
