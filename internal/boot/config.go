package boot

import (
	"context"
	"fmt"

	"github.com/sethvargo/go-envconfig"
)

type Config struct {
	Env    string `env:"ENV,default=dev"`
	Server struct {
		Port        string `env:"PORT,default=8080"`
		MetricsPort string `env:"METRICS_PORT,default=8081"`
		Origins     string `env:"ALLOWED_ORIGINS,default=*"`
	}
	Database struct {
		Path string `env:"DATABASE_PATH,required"`
	}
	Hive struct {
		RPCURL           string `env:"HIVE_RPC_URL,default=https://api.hive.blog"`
		BroadcastAccount string `env:"HIVE_BROADCAST_ACCOUNT"`
		BroadcastWIF     string `env:"HIVE_BROADCAST_WIF"`
	}
	Auth struct {
		JWTSecret        string `env:"JWT_SECRET"`
		InternalToken    string `env:"INTERNAL_TOKEN"`
		SessionTTLHours  int    `env:"SESSION_TTL_HOURS,default=720"`
		AccessTTLMinutes int    `env:"ACCESS_TTL_MINUTES,default=15"`
	}
	AlertWebhookURL string `env:"ALERT_WEBHOOK_URL"`
}

func Load() (*Config, error) {
	config := &Config{}
	if err := envconfig.Process(context.Background(), config); err != nil {
		return nil, fmt.Errorf("parsing env vars: %w", err)
	}
	return config, nil
}

func (c *Config) IsProduction() bool {
	return c.Env == "prod"
}

func (c *Config) IsDevelopment() bool {
	return c.Env == "dev"
}
