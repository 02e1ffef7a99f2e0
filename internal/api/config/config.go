package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Cfg 全局可访问的配置实例
var Cfg *Config

// LoadConfig 从文件加载配置并填充到 Cfg
func LoadConfig() error {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")

	v.SetEnvPrefix("PORTAL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return fmt.Errorf("failed to unmarshal config: %w", err)
	}

	Cfg = &cfg

	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 3000)
	v.SetDefault("server.allowed_origins", []string{"http://localhost:3000", "http://localhost:3001"})
	v.SetDefault("database.max_idle", 10)
	v.SetDefault("database.max_open", 50)
	v.SetDefault("database.max_lifetime", 30)
	v.SetDefault("redis.pool_size", 20)
	v.SetDefault("mongo.database", "portal")
	v.SetDefault("logstash.index", "logstash-portal")
	v.SetDefault("auth.jwt_expiration", 2)
	v.SetDefault("admin.user_id", "admin-user-id")
	v.SetDefault("admin.email", "admin@example.com")
	v.SetDefault("admin.name", "Admin")
	v.SetDefault("realtime.require_token", true)
	v.SetDefault("realtime.send_buffer", 256)
	v.SetDefault("realtime.write_timeout", 10)
	v.SetDefault("realtime.reconcile_spec", "@every 30s")
	v.SetDefault("rate_limit.max", 60)
	v.SetDefault("rate_limit.window", 60)
}
