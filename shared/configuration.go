package shared

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const CONFIG_PREFIX = "TOUCH"

const (
	MirrorBackendPostgres = "postgres"
	MirrorBackendRedis    = "redis"
	MirrorBackendMemory   = "memory"
)

type AppConfig struct {
	ListenAddress string `split_words:"true" default:"0.0.0.0:8080"`

	PgUsername             string `split_words:"true" default:"postgres"`
	PgPassword             string `split_words:"true" default:"postgres"`
	PgContactPoint         string `split_words:"true" default:"127.0.0.1"`
	PgContactPort          string `split_words:"true" default:"5432"`
	PgDbName               string `split_words:"true" default:"touch"`
	SqlMigrationsSourceDir string `split_words:"true" default:"./sql"`
	StartupMigration       bool   `split_words:"true" default:"false"`

	MirrorBackend string `split_words:"true" default:"postgres"`
	RedisAddress  string `split_words:"true" default:"127.0.0.1:6379"`
	RedisPassword string `split_words:"true"`
	RedisDb       int    `split_words:"true" default:"0"`

	GcpProjectID string `split_words:"true" default:"touch-telehealth"`
	GcpTopic     string `split_words:"true"`

	LocalStoragePath     string `split_words:"true"`
	BucketImagesName     string `split_words:"true" default:"touch-images"`
	BucketServiceAccount string `split_words:"true"`

	FirebaseServiceAccount string `split_words:"true"`
	FirebaseWebApiKey      string `split_words:"true"`
	IdentityToolkitUrl     string `split_words:"true" default:"https://identitytoolkit.googleapis.com/v1"`

	TestAuthMode   bool   `split_words:"true" default:"false"`
	TestAuthSecret string `split_words:"true" default:"touch-test-secret"`

	SyncInterval         time.Duration `split_words:"true" default:"30s"`
	SyncAllEntities      bool          `split_words:"true" default:"false"`
	SeedSampleFacilities bool          `split_words:"true" default:"false"`

	MeetingDomain string `split_words:"true" default:"meet.jit.si"`
	MeetingPrefix string `split_words:"true" default:"TOUCH"`

	SmtpHost     string `split_words:"true"`
	SmtpPort     int    `split_words:"true" default:"587"`
	SmtpUsername string `split_words:"true"`
	SmtpPassword string `split_words:"true"`
	MailFrom     string `split_words:"true" default:"no-reply@touch.example"`
	MailCacheDir string `split_words:"true" default:"/tmp/touch-mail"`

	AllowedOrigins []string `split_words:"true" default:"*"`
}

func InitAppConfiguration() (config *AppConfig, err error) {
	config = &AppConfig{}

	if err := envconfig.Process(CONFIG_PREFIX, config); err != nil {
		return nil, fmt.Errorf("failed to parse env vars: %v", err)
	}

	switch config.MirrorBackend {
	case MirrorBackendPostgres, MirrorBackendRedis, MirrorBackendMemory:
	default:
		return nil, fmt.Errorf("unknown mirror backend %q", config.MirrorBackend)
	}

	return
}

// SmtpEnabled reports whether outgoing mail can be composed server side.
func (c *AppConfig) SmtpEnabled() bool {
	return c.SmtpHost != ""
}
