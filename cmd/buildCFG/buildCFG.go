package buildCFG

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/wb-go/wbf/config"
	"github.com/wb-go/wbf/dbpg"

	"wedsite/internal/consumerWorker"
	"wedsite/internal/mailer"
	"wedsite/internal/media"
	"wedsite/internal/rabbit"
)

const EnvPrefix = "WEDSITE"

const (
	NotifyInProcess = "inprocess"
	NotifyQueue     = "queue"

	MediaCloudinary = "cloudinary"
	MediaMinio      = "minio"
)

const envFile = ".env"

// Load reads .env (if present), then the YAML file, then WEDSITE_* variables,
// later sources winning. A missing config file is not an error.
func Load(path string, log *zerolog.Logger) (*config.Config, error) {
	cfg := config.New()
	setDefaults(cfg)

	env := ""
	if _, err := os.Stat(envFile); err == nil {
		env = envFile
	}

	if _, err := os.Stat(path); err != nil {
		if path != "" && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("stat config %s: %w", path, err)
		}
		log.Warn().Str("path", path).Msg("config file not found, using defaults and environment")

		empty, cleanup, err := emptyConfigFile()
		if err != nil {
			return nil, err
		}
		defer cleanup()
		path = empty
	}

	if err := cfg.Load(path, env, EnvPrefix); err != nil {
		return nil, err
	}
	return cfg, nil
}

// emptyConfigFile stands in for a missing file, since config.Load always
// reads one.
func emptyConfigFile() (string, func(), error) {
	f, err := os.CreateTemp("", "wedsite-*.yaml")
	if err != nil {
		return "", nil, fmt.Errorf("create placeholder config: %w", err)
	}
	name := f.Name()
	if err := f.Close(); err != nil {
		os.Remove(name)
		return "", nil, err
	}
	return name, func() { os.Remove(name) }, nil
}

func setDefaults(v *config.Config) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.base_path", "")
	v.SetDefault("server.body_limit_mb", 20)
	v.SetDefault("server.debug", false)
	v.SetDefault("server.timezone", "")
	v.SetDefault("server.cors_origins", []string{})

	v.SetDefault("postgres.max_open_conns", 10)
	v.SetDefault("postgres.max_idle_conns", 5)
	v.SetDefault("postgres.conn_max_lifetime", 30*time.Minute)
	v.SetDefault("postgres.migrations_dir", "migrations/postgres")

	v.SetDefault("rabbitmq.exchange", "wedsite.notifications")
	v.SetDefault("rabbitmq.queue", "wedsite.notifications")
	v.SetDefault("rabbitmq.delayed", false)

	v.SetDefault("mail.port", 587)
	v.SetDefault("mail.couple", "Shayne & DR")
	v.SetDefault("mail.event_name", "our wedding")
	v.SetDefault("mail.event_date", "February 25, 2026")
	v.SetDefault("mail.event_place", "Cagayan de Oro City, Philippines")

	v.SetDefault("media.provider", MediaCloudinary)
	v.SetDefault("media.folder", media.DefaultFolder)
	v.SetDefault("media.max_edge", media.DefaultMaxEdge)

	v.SetDefault("notify.mode", NotifyInProcess)
	v.SetDefault("notify.workers", 4)
	v.SetDefault("notify.max_attempts", 3)
	v.SetDefault("notify.retry_delay", 10*time.Second)
	v.SetDefault("notify.drain_timeout", 10*time.Second)

	v.SetDefault("auth.token_ttl", 30*24*time.Hour)
}

type ServerConfig struct {
	Port        string
	BasePath    string
	BodyLimit   int64
	Debug       bool
	CORSOrigins []string
	Location    *time.Location
}

func BuildServerConfig(cfg *config.Config, log *zerolog.Logger) ServerConfig {
	sc := ServerConfig{
		Port:        cfg.GetString("server.port"),
		BasePath:    cfg.GetString("server.base_path"),
		BodyLimit:   int64(cfg.GetInt("server.body_limit_mb")) << 20,
		Debug:       cfg.GetBool("server.debug"),
		CORSOrigins: cfg.GetStringSlice("server.cors_origins"),
		Location:    time.Local,
	}
	if tz := cfg.GetString("server.timezone"); tz != "" {
		loc, err := time.LoadLocation(tz)
		if err != nil {
			log.Warn().Err(err).Str("timezone", tz).Msg("unknown timezone, using local time")
		} else {
			sc.Location = loc
		}
	}
	return sc
}

func BuildDBConfig(cfg *config.Config, log *zerolog.Logger) (string, []string, *dbpg.Options, error) {
	master := cfg.GetString("postgres.master_dsn")
	if master == "" {
		return "", nil, nil, errors.New("postgres.master_dsn is required")
	}
	slaves := cfg.GetStringSlice("postgres.slave_dsns")

	opts := &dbpg.Options{
		MaxOpenConns:    cfg.GetInt("postgres.max_open_conns"),
		MaxIdleConns:    cfg.GetInt("postgres.max_idle_conns"),
		ConnMaxLifetime: cfg.GetDuration("postgres.conn_max_lifetime"),
	}
	log.Debug().Int("replicas", len(slaves)).Int("max_open_conns", opts.MaxOpenConns).Msg("db config built")
	return master, slaves, opts, nil
}

func MigrationsDir(cfg *config.Config) string {
	return cfg.GetString("postgres.migrations_dir")
}

func BuildRabbitConfig(cfg *config.Config, log *zerolog.Logger) (rabbit.Config, error) {
	rc := rabbit.Config{
		URL:      cfg.GetString("rabbitmq.url"),
		Exchange: cfg.GetString("rabbitmq.exchange"),
		Queue:    cfg.GetString("rabbitmq.queue"),
		Delayed:  cfg.GetBool("rabbitmq.delayed"),
	}
	if rc.URL == "" {
		return rc, errors.New("rabbitmq.url is required in queue mode")
	}
	log.Debug().Str("exchange", rc.Exchange).Str("queue", rc.Queue).Msg("rabbit config built")
	return rc, nil
}

type MailConfig struct {
	SMTP      mailer.SMTPConfig
	Organizer string
	Event     mailer.EventInfo
}

// Enabled is false when no SMTP host is set; mail is then only logged.
func (m MailConfig) Enabled() bool {
	return m.SMTP.Host != ""
}

func BuildMailConfig(cfg *config.Config, log *zerolog.Logger) (MailConfig, error) {
	mc := MailConfig{
		SMTP: mailer.SMTPConfig{
			Host:     cfg.GetString("mail.host"),
			Port:     cfg.GetInt("mail.port"),
			Username: cfg.GetString("mail.username"),
			Password: cfg.GetString("mail.password"),
			From:     cfg.GetString("mail.from"),
		},
		Organizer: cfg.GetString("mail.organizer"),
		Event: mailer.EventInfo{
			Couple: cfg.GetString("mail.couple"),
			Name:   cfg.GetString("mail.event_name"),
			Date:   cfg.GetString("mail.event_date"),
			Place:  cfg.GetString("mail.event_place"),
		},
	}
	if mc.Organizer == "" {
		mc.Organizer = mc.SMTP.From
	}
	if mc.Enabled() && mc.Organizer == "" {
		return mc, errors.New("mail.organizer or mail.from is required when mail.host is set")
	}
	if !mc.Enabled() {
		log.Warn().Msg("mail.host is empty, emails will only be logged")
	}
	return mc, nil
}

type MediaConfig struct {
	Provider      string
	Upload        media.UploadOptions
	CloudinaryURL string
	Minio         media.MinioConfig
}

func BuildMediaConfig(cfg *config.Config, log *zerolog.Logger) (MediaConfig, error) {
	mc := MediaConfig{
		Provider: strings.ToLower(cfg.GetString("media.provider")),
		Upload: media.UploadOptions{
			Folder:  cfg.GetString("media.folder"),
			MaxEdge: cfg.GetInt("media.max_edge"),
		},
		CloudinaryURL: cfg.GetString("media.cloudinary.url"),
		Minio: media.MinioConfig{
			Endpoint:  cfg.GetString("media.minio.endpoint"),
			AccessKey: cfg.GetString("media.minio.access_key"),
			SecretKey: cfg.GetString("media.minio.secret_key"),
			Bucket:    cfg.GetString("media.minio.bucket"),
			UseSSL:    cfg.GetBool("media.minio.use_ssl"),
			PublicURL: cfg.GetString("media.minio.public_url"),
		},
	}
	if mc.CloudinaryURL == "" {
		// the SDK's own variable
		mc.CloudinaryURL = os.Getenv("CLOUDINARY_URL")
	}

	switch mc.Provider {
	case MediaCloudinary:
		if mc.CloudinaryURL == "" {
			return mc, errors.New("media.cloudinary.url (or CLOUDINARY_URL) is required")
		}
	case MediaMinio:
		if mc.Minio.Endpoint == "" || mc.Minio.Bucket == "" {
			return mc, errors.New("media.minio.endpoint and media.minio.bucket are required")
		}
	default:
		return mc, fmt.Errorf("unknown media.provider %q", mc.Provider)
	}
	log.Debug().Str("provider", mc.Provider).Str("folder", mc.Upload.Folder).Msg("media config built")
	return mc, nil
}

type NotifyConfig struct {
	Mode         string
	Workers      int
	DrainTimeout time.Duration
	Worker       consumerWorker.Options
}

func BuildNotifyConfig(cfg *config.Config, log *zerolog.Logger) (NotifyConfig, error) {
	nc := NotifyConfig{
		Mode:         strings.ToLower(cfg.GetString("notify.mode")),
		Workers:      cfg.GetInt("notify.workers"),
		DrainTimeout: cfg.GetDuration("notify.drain_timeout"),
		Worker: consumerWorker.Options{
			MaxAttempts: cfg.GetInt("notify.max_attempts"),
			RetryDelay:  cfg.GetDuration("notify.retry_delay"),
		},
	}
	if nc.Mode != NotifyInProcess && nc.Mode != NotifyQueue {
		return nc, fmt.Errorf("unknown notify.mode %q", nc.Mode)
	}
	log.Debug().Str("mode", nc.Mode).Int("workers", nc.Workers).Msg("notify config built")
	return nc, nil
}

type AuthConfig struct {
	AdminSecret string
	TokenTTL    time.Duration
}

func BuildAuthConfig(cfg *config.Config, log *zerolog.Logger) AuthConfig {
	ac := AuthConfig{
		AdminSecret: cfg.GetString("auth.admin_jwt_secret"),
		TokenTTL:    cfg.GetDuration("auth.token_ttl"),
	}
	if ac.AdminSecret == "" {
		log.Warn().Msg("auth.admin_jwt_secret is empty, admin routes are public")
	}
	return ac
}
