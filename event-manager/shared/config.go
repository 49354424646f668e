package shared

import (
	"fmt"

	apishared "github.com/Vinubaba/TOUCH-API/shared"

	"github.com/kelseyhightower/envconfig"
)

const CONFIG_PREFIX = "EVENT_MANAGER"

type AppConfig struct {
	ListenAddress string `split_words:"true" default:"0.0.0.0:8081"`

	GcpProjectID    string `split_words:"true" default:"touch-telehealth"`
	GcpSubscription string `split_words:"true" default:"touch-events"`
	GcpTopic        string `split_words:"true" default:"touch-events"`
	ServiceAccount  string `split_words:"true"`

	LocalStoragePath string `split_words:"true"`
	BucketImagesName string `split_words:"true" default:"touch-images"`

	SmtpHost     string `split_words:"true"`
	SmtpPort     int    `split_words:"true" default:"587"`
	SmtpUsername string `split_words:"true"`
	SmtpPassword string `split_words:"true"`
	MailFrom     string `split_words:"true" default:"no-reply@touch.example"`
	MailCacheDir string `split_words:"true" default:"/tmp/touch-mail"`
}

func InitAppConfiguration() (config *AppConfig, err error) {
	config = &AppConfig{}

	if err := envconfig.Process(CONFIG_PREFIX, config); err != nil {
		return nil, fmt.Errorf("failed to parse env vars: %v", err)
	}
	if config.SmtpHost == "" {
		return nil, fmt.Errorf("%s_SMTP_HOST is mandatory", CONFIG_PREFIX)
	}

	return
}

// MailConfig is the subset of the api configuration used by the mail components.
func (c *AppConfig) MailConfig() *apishared.AppConfig {
	return &apishared.AppConfig{
		GcpProjectID:     c.GcpProjectID,
		LocalStoragePath: c.LocalStoragePath,
		BucketImagesName: c.BucketImagesName,
		SmtpHost:         c.SmtpHost,
		SmtpPort:         c.SmtpPort,
		SmtpUsername:     c.SmtpUsername,
		SmtpPassword:     c.SmtpPassword,
		MailFrom:         c.MailFrom,
		MailCacheDir:     c.MailCacheDir,
	}
}
