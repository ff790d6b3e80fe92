package config

import (
	"fmt"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	LogLevel  string    `yaml:"log-level" env:"LOG_LEVEL" env-default:"info"`
	HTTPPort  string    `yaml:"http-port" env:"HTTP_PORT" env-default:"3000"`
	JWT       JWT       `yaml:"jwt"`
	Postgres  Postgres  `yaml:"postgres"`
	Redis     Redis     `yaml:"redis"`
	NATS      NATS      `yaml:"nats"`
	Room      Room      `yaml:"room"`
	WebSocket WebSocket `yaml:"websocket"`
}

type JWT struct {
	SecretKey string        `yaml:"secret-key" env:"JWT_SECRET"`
	TokenTTL  time.Duration `yaml:"token-ttl" env-default:"24h"`
}

type Postgres struct {
	URL string `yaml:"url" env:"DATABASE_URL"`
}

type Redis struct {
	Host       string        `yaml:"host" env:"REDIS_HOST" env-default:"localhost"`
	Port       string        `yaml:"port" env:"REDIS_PORT" env-default:"6379"`
	OutcomeTTL time.Duration `yaml:"outcome-ttl" env-default:"24h"`
}

// NATS - event publishing is disabled when URL is empty.
type NATS struct {
	URL string `yaml:"url" env:"NATS_URL" env-default:""`
}

type Room struct {
	CommandBuffer  int           `yaml:"command-buffer" env-default:"32"`
	EventBuffer    int           `yaml:"event-buffer" env-default:"32"`
	IdleTimeout    time.Duration `yaml:"idle-timeout" env-default:"10m"`
	PersistTimeout time.Duration `yaml:"persist-timeout" env-default:"5s"`
}

type WebSocket struct {
	WriteWait  time.Duration `yaml:"write-wait" env-default:"10s"`
	PongWait   time.Duration `yaml:"pong-wait" env-default:"60s"`
	PingPeriod time.Duration `yaml:"ping-period" env-default:"54s"`
}

// MustLoad - load all configurations in config.yml file, environment variables take precedence.
func MustLoad(path string) *Config {
	config := &Config{}

	if err := cleanenv.ReadConfig(path, config); err != nil {
		panic(fmt.Errorf("unable to load config file: %w", err))
	}

	return config
}

func (that *Redis) GetRedisAddr() string {
	return fmt.Sprintf("%s:%s", that.Host, that.Port)
}
