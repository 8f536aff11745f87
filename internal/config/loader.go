package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"

	"github.com/example/dojo-portal/internal/jobs"
	"github.com/example/dojo-portal/internal/passwordpolicy"
)

// Config captures environment driven configuration values for the dojo portal.
type Config struct {
	HTTPPort      int
	SQLiteDSN     string
	SessionSecret string
	SessionTTL    time.Duration
	Location      *time.Location
	LogLevel      slog.Level

	PasswordWindowDays       int
	PasswordWindowDaysByRole map[string]int
	ReminderLeadDays         int
	SweepSpec                string

	Mailgun MailgunConfig
}

// MailgunConfig is optional; reminders are only logged when Domain is empty.
type MailgunConfig struct {
	Domain string
	APIKey string
	Sender string
}

// Enabled reports whether Mailgun delivery is configured.
func (m MailgunConfig) Enabled() bool {
	return m.Domain != ""
}

// PasswordPolicy returns the password window policy described by the config.
func (c Config) PasswordPolicy() passwordpolicy.Policy {
	byRole := make(map[string]int, len(c.PasswordWindowDaysByRole))
	for role, days := range c.PasswordWindowDaysByRole {
		byRole[role] = days
	}
	return passwordpolicy.Policy{
		DefaultWindowDays: c.PasswordWindowDays,
		WindowDaysByClass: byRole,
		ReminderLeadDays:  c.ReminderLeadDays,
	}
}

// ReminderLead returns the reminder lead as a duration.
func (c Config) ReminderLead() time.Duration {
	return c.PasswordPolicy().ReminderLead()
}

var roleWindowVariables = map[string]string{
	"student":    "DOJO_PASSWORD_WINDOW_DAYS_STUDENT",
	"instructor": "DOJO_PASSWORD_WINDOW_DAYS_INSTRUCTOR",
	"admin":      "DOJO_PASSWORD_WINDOW_DAYS_ADMIN",
}

// Load reads the given dotenv files (".env" when none are named) into the
// process environment and parses the configuration. Missing dotenv files are
// ignored and variables already set in the environment take precedence.
func Load(envFiles ...string) (Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, file := range envFiles {
		if err := godotenv.Load(file); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", file, err)
		}
	}
	return FromEnvironment()
}

// FromEnvironment parses configuration values from the current process environment.
//
// The loader applies defaults for optional fields and reports every missing or
// invalid variable at once.
func FromEnvironment() (Config, error) {
	cfg := Config{
		HTTPPort:                 8080,
		SQLiteDSN:                "dojo.db",
		SessionTTL:               24 * time.Hour,
		Location:                 time.UTC,
		LogLevel:                 slog.LevelInfo,
		PasswordWindowDays:       passwordpolicy.DefaultWindowDays,
		PasswordWindowDaysByRole: make(map[string]int),
		ReminderLeadDays:         passwordpolicy.ReminderLeadDays,
		SweepSpec:                jobs.DefaultSweepSpec,
	}

	missing := make([]string, 0, 1)
	invalid := make([]string, 0, 2)

	if portValue := env("DOJO_HTTP_PORT"); portValue != "" {
		port, err := strconv.Atoi(portValue)
		if err != nil || port <= 0 {
			invalid = append(invalid, "DOJO_HTTP_PORT")
		} else {
			cfg.HTTPPort = port
		}
	}

	if dsn := env("DOJO_SQLITE_DSN"); dsn != "" {
		cfg.SQLiteDSN = dsn
	}

	if secret := env("DOJO_SESSION_SECRET"); secret == "" {
		missing = append(missing, "DOJO_SESSION_SECRET")
	} else {
		cfg.SessionSecret = secret
	}

	if ttlValue := env("DOJO_SESSION_TTL"); ttlValue != "" {
		ttl, err := time.ParseDuration(ttlValue)
		if err != nil || ttl <= 0 {
			invalid = append(invalid, "DOJO_SESSION_TTL")
		} else {
			cfg.SessionTTL = ttl
		}
	}

	if zone := env("DOJO_TIMEZONE"); zone != "" {
		loc, err := time.LoadLocation(zone)
		if err != nil {
			invalid = append(invalid, "DOJO_TIMEZONE")
		} else {
			cfg.Location = loc
		}
	}

	if level := env("DOJO_LOG_LEVEL"); level != "" {
		if err := cfg.LogLevel.UnmarshalText([]byte(level)); err != nil {
			invalid = append(invalid, "DOJO_LOG_LEVEL")
		}
	}

	if days, ok, valid := positiveInt("DOJO_PASSWORD_WINDOW_DAYS"); !valid {
		invalid = append(invalid, "DOJO_PASSWORD_WINDOW_DAYS")
	} else if ok {
		cfg.PasswordWindowDays = days
	}

	for _, role := range []string{"student", "instructor", "admin"} {
		key := roleWindowVariables[role]
		if days, ok, valid := positiveInt(key); !valid {
			invalid = append(invalid, key)
		} else if ok {
			cfg.PasswordWindowDaysByRole[role] = days
		}
	}

	if days, ok, valid := positiveInt("DOJO_REMINDER_LEAD_DAYS"); !valid {
		invalid = append(invalid, "DOJO_REMINDER_LEAD_DAYS")
	} else if ok {
		cfg.ReminderLeadDays = days
	}

	if spec := env("DOJO_SWEEP_SCHEDULE"); spec != "" {
		if err := jobs.ValidateSpec(spec); err != nil {
			invalid = append(invalid, "DOJO_SWEEP_SCHEDULE")
		} else {
			cfg.SweepSpec = spec
		}
	}

	cfg.Mailgun = MailgunConfig{
		Domain: env("DOJO_MAILGUN_DOMAIN"),
		APIKey: env("DOJO_MAILGUN_API_KEY"),
		Sender: env("DOJO_MAILGUN_SENDER"),
	}
	if cfg.Mailgun.Domain != "" {
		if cfg.Mailgun.APIKey == "" {
			missing = append(missing, "DOJO_MAILGUN_API_KEY")
		}
		if cfg.Mailgun.Sender == "" {
			missing = append(missing, "DOJO_MAILGUN_SENDER")
		}
	}

	if len(missing) > 0 {
		return Config{}, fmt.Errorf("missing required environment variables: %s", strings.Join(missing, ", "))
	}
	if len(invalid) > 0 {
		return Config{}, fmt.Errorf("invalid environment variable values: %s", strings.Join(invalid, ", "))
	}

	return cfg, nil
}

func env(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

// positiveInt parses key. ok is false when the variable is unset; valid is
// false when it is set to anything but a positive integer.
func positiveInt(key string) (value int, ok bool, valid bool) {
	raw := env(key)
	if raw == "" {
		return 0, false, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, false, false
	}
	return n, true, true
}
