package config

import (
	"fmt"

	"github.com/caarlos0/env/v6"
)

// Config is the process configuration, populated from the environment.
type Config struct {
	DiscordToken string `env:"DISCORD_TOKEN,required"`

	// Storage
	BucketName string `env:"BUCKET_NAME,required"`
	CacheName  string `env:"CACHE_NAME" envDefault:"bis"`
	FeedKey    string `env:"FEED_KEY" envDefault:"rss.xml"`

	// Fast cache tier
	RedisAddr       string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword   string `env:"REDIS_PASSWORD"`
	DefaultTTLSecs  int    `env:"DEFAULT_TTL_SECONDS" envDefault:"300"`
	RecentWindow    int    `env:"RECENT_WINDOW" envDefault:"5"`
	SubmissionTable string `env:"SUBMISSION_TABLE,required"`

	// Remote configuration (SSM)
	ParamPrefix string `env:"PARAM_PREFIX,required"`

	// Feed channel metadata
	FeedTitle       string `env:"FEED_TITLE" envDefault:"Believe in Serverless"`
	FeedDescription string `env:"FEED_DESCRIPTION" envDefault:"Find all the cool links shared from the Believe in Serverless community"`
	FeedURL         string `env:"FEED_URL" envDefault:"https://believeinserverless.com/rss"`
	SiteURL         string `env:"SITE_URL" envDefault:"https://believeinserverless.com"`
	FeedLanguage    string `env:"FEED_LANGUAGE" envDefault:"en"`

	HealthAddr string `env:"HEALTH_ADDR" envDefault:":8080"`
}

// New parses the environment into a Config.
func New() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("config: parse environment: %w", err)
	}
	return cfg, nil
}
