package config

import (
	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

type Config struct {
	PostgresHost     string `env:"POSTGRES_HOST"     envDefault:"localhost"`
	PostgresPort     string `env:"POSTGRES_PORT"     envDefault:"5432"`
	PostgresUser     string `env:"POSTGRES_USER"     envDefault:"marketplace_user"`
	PostgresPassword string `env:"POSTGRES_PASSWORD" envDefault:"marketplace_password"`
	PostgresDb       string `env:"POSTGRES_DB"       envDefault:"marketplace_db"`

	RedisSessionsHost string `env:"REDIS_SESSIONS_HOST" envDefault:"localhost"`
	RedisSessionsPort uint16 `env:"REDIS_SESSIONS_PORT" envDefault:"6379" validate:"min=1000,max=65535"`

	SessionTTLHours int `env:"SESSION_TTL_HOURS" envDefault:"336" validate:"min=1"`
	BcryptCost      int `env:"BCRYPT_COST"       envDefault:"12"  validate:"min=4,max=31"`

	HttpServerPort uint16 `env:"HTTP_SERVER_PORT" envDefault:"8085" validate:"min=1000,max=65535"`
}

func LoadConfig() (*Config, error) {
	// Load environment variables from .env file
	err := godotenv.Load(".env")
	if err != nil {
		zap.L().Debug(".env file not found", zap.Error(err))
	}

	cfg := &Config{}
	// Parse config from environment variables
	if err = env.Parse(cfg); err != nil {
		zap.L().Error("config_load_failed", zap.Error(err))
		return nil, err
	}

	// Validate the config
	validate := validator.New()
	err = validate.Struct(cfg)
	if err != nil {
		zap.L().Error("config_validation_failed", zap.Error(err))
		return nil, err
	}
	return cfg, nil
}
