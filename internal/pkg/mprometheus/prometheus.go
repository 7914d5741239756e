package mprometheus

import (
	"social-im/internal/pkg/redis"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/extra/redisprometheus/v9"
	"gorm.io/gorm"
	gormp "gorm.io/plugin/prometheus"
)

type Config struct {
	// Listen is the pull endpoint serving /metrics; the remaining fields
	// configure the optional push gateway used by the gorm plugin.
	Listen          string `json:"listen" yaml:"listen"`
	Addr            string `json:"addr" yaml:"addr"`
	User            string `json:"user" yaml:"user"`
	Password        string `json:"password" yaml:"password"`
	RefreshInterval uint32 `json:"refresh_interval" yaml:"refresh_interval"`
	Enable          bool   `json:"enable" yaml:"enable"`
}

// GormPrometheus attaches the gorm collector to the store connection pool.
func GormPrometheus(c *Config, db *gorm.DB, dbName string) {
	interval := c.RefreshInterval
	if interval == 0 {
		interval = 15
	}
	db.Use(gormp.New(gormp.Config{
		DBName:          dbName,
		RefreshInterval: interval,
		PushAddr:        c.Addr,
		PushUser:        c.User,
		PushPassword:    c.Password,
	}))
}

func RedisPrometheus(c *Config, rdb *redis.Redis, namespace, subsystem string) prometheus.Collector {
	return redisprometheus.NewCollector(namespace, subsystem, rdb)
}
