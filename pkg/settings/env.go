package settings

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v9"
)

// Env holds ADDRBATCH_* environment overrides.
type Env struct {
	User       string `env:"ADDRBATCH_USER"`
	DeviceType string `env:"ADDRBATCH_DEVICE_TYPE"`
	Zone       string `env:"ADDRBATCH_ZONE"`
	GroupLimit *int   `env:"ADDRBATCH_GROUP_LIMIT"`
	Port       int    `env:"ADDRBATCH_PORT"`

	ConnectTimeout time.Duration `env:"ADDRBATCH_CONNECT_TIMEOUT" envDefault:"30s"`
	ConnectRetries uint64        `env:"ADDRBATCH_CONNECT_RETRIES" envDefault:"3"`

	AuditLog  string `env:"ADDRBATCH_AUDIT_LOG"`
	RedisAddr string `env:"ADDRBATCH_REDIS_ADDR" envDefault:"localhost:6379"`
}

// LoadEnv parses the process environment.
func LoadEnv() (*Env, error) {
	e := &Env{}
	if err := env.Parse(e); err != nil {
		return nil, fmt.Errorf("parsing environment: %w", err)
	}
	return e, nil
}

// Values returns the environment as a configuration layer.
func (e *Env) Values() Values {
	return Values{
		DeviceType: e.DeviceType,
		Zone:       e.Zone,
		GroupLimit: e.GroupLimit,
		User:       e.User,
		Port:       e.Port,
	}
}
