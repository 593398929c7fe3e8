package config

import (
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

var ErrConfigurationMissing = errors.New("configuration missing")

// TeacherPolicy controls whether the completion gate waits for the teacher.
type TeacherPolicy string

const (
	TeacherRequired    TeacherPolicy = "required"
	TeacherIfSubmitted TeacherPolicy = "if_submitted"
	TeacherExempt      TeacherPolicy = "exempt"
)

type Config struct {
	Server       ServerConfig
	Database     DatabaseConfig
	Redis        RedisConfig
	Auth         AuthConfig
	Mail         MailConfig
	Discord      DiscordConfig
	Registration RegistrationConfig
	RateLimit    RateLimitConfig
	Staff        StaffConfig
	Log          LogConfig
}

type ServerConfig struct {
	Port    int
	BaseURL string
}

type DatabaseConfig struct {
	URL string
}

type RedisConfig struct {
	URL string
}

type AuthConfig struct {
	JWTSecret string
	TokenTTL  time.Duration
}

type MailConfig struct {
	Host        string
	Port        int
	Username    string
	Password    string
	FromAddress string
	FromName    string
}

type DiscordConfig struct {
	WebhookID    string
	WebhookToken string
}

func (d DiscordConfig) Enabled() bool {
	return d.WebhookID != "" && d.WebhookToken != ""
}

type RegistrationConfig struct {
	TeacherVerification TeacherPolicy
}

type RateLimitConfig struct {
	EmailMax    int
	EmailWindow time.Duration
}

type StaffConfig struct {
	EmailDomain string
	OTPTTL      time.Duration
	SessionTTL  time.Duration
}

type LogConfig struct {
	Level       string
	Development bool
}

var required = []string{
	"database.url",
	"auth.jwt_secret",
	"server.base_url",
	"mail.host",
	"mail.from_address",
}

// SetDefaults registers every default so env overrides are picked up by AutomaticEnv.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.base_url", "")
	v.SetDefault("database.url", "")
	v.SetDefault("redis.url", "")
	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.token_ttl", 21*24*time.Hour)
	v.SetDefault("mail.host", "")
	v.SetDefault("mail.port", 587)
	v.SetDefault("mail.username", "")
	v.SetDefault("mail.password", "")
	v.SetDefault("mail.from_address", "")
	v.SetDefault("mail.from_name", "HackIt")
	v.SetDefault("discord.webhook_id", "")
	v.SetDefault("discord.webhook_token", "")
	v.SetDefault("registration.teacher_verification", string(TeacherRequired))
	v.SetDefault("ratelimit.email_max", 5)
	v.SetDefault("ratelimit.email_window", time.Hour)
	v.SetDefault("staff.email_domain", "staff.hackit.tw")
	v.SetDefault("staff.otp_ttl", 5*time.Minute)
	v.SetDefault("staff.session_ttl", 12*time.Hour)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.development", false)
}

// New returns a viper instance reading an optional config file and the environment.
func New(file string) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	SetDefaults(v)

	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrap(err, "read config file")
		}
	}

	return v, nil
}

// Load reads the config and fails with ErrConfigurationMissing naming every absent key.
func Load(v *viper.Viper) (*Config, error) {
	var missing []string
	for _, key := range required {
		if strings.TrimSpace(v.GetString(key)) == "" {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return nil, errors.Wrap(ErrConfigurationMissing, strings.Join(missing, ", "))
	}

	policy := TeacherPolicy(v.GetString("registration.teacher_verification"))
	switch policy {
	case TeacherRequired, TeacherIfSubmitted, TeacherExempt:
	default:
		return nil, errors.Errorf("unknown teacher verification policy %q", policy)
	}

	return &Config{
		Server: ServerConfig{
			Port:    v.GetInt("server.port"),
			BaseURL: strings.TrimRight(v.GetString("server.base_url"), "/"),
		},
		Database: DatabaseConfig{URL: v.GetString("database.url")},
		Redis:    RedisConfig{URL: v.GetString("redis.url")},
		Auth: AuthConfig{
			JWTSecret: v.GetString("auth.jwt_secret"),
			TokenTTL:  v.GetDuration("auth.token_ttl"),
		},
		Mail: MailConfig{
			Host:        v.GetString("mail.host"),
			Port:        v.GetInt("mail.port"),
			Username:    v.GetString("mail.username"),
			Password:    v.GetString("mail.password"),
			FromAddress: v.GetString("mail.from_address"),
			FromName:    v.GetString("mail.from_name"),
		},
		Discord: DiscordConfig{
			WebhookID:    v.GetString("discord.webhook_id"),
			WebhookToken: v.GetString("discord.webhook_token"),
		},
		Registration: RegistrationConfig{TeacherVerification: policy},
		RateLimit: RateLimitConfig{
			EmailMax:    v.GetInt("ratelimit.email_max"),
			EmailWindow: v.GetDuration("ratelimit.email_window"),
		},
		Staff: StaffConfig{
			EmailDomain: v.GetString("staff.email_domain"),
			OTPTTL:      v.GetDuration("staff.otp_ttl"),
			SessionTTL:  v.GetDuration("staff.session_ttl"),
		},
		Log: LogConfig{
			Level:       v.GetString("log.level"),
			Development: v.GetBool("log.development"),
		},
	}, nil
}
