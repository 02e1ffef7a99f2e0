package config

// Config 配置主体
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	DB        DBConfig        `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Mongo     MongoConfig     `mapstructure:"mongo"`
	Logstash  LogstashConfig  `mapstructure:"logstash"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Admin     AdminConfig     `mapstructure:"admin"`
	Realtime  RealtimeConfig  `mapstructure:"realtime"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
}

// ServerConfig Server配置
type ServerConfig struct {
	Port           int      `mapstructure:"port"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// DBConfig 数据库配置
type DBConfig struct {
	DSN         string `mapstructure:"dsn"`
	MaxIdle     int    `mapstructure:"max_idle"`
	MaxOpen     int    `mapstructure:"max_open"`
	MaxLifetime int    `mapstructure:"max_lifetime"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	PoolSize int    `mapstructure:"pool_size"`
}

// MongoConfig 消息归档，URL 为空时不启用
type MongoConfig struct {
	URL      string `mapstructure:"url"`
	Database string `mapstructure:"database"`
}

type LogstashConfig struct {
	Address string `mapstructure:"address"`
	Index   string `mapstructure:"index"`
	Token   string `mapstructure:"token"`
}

// AuthConfig 鉴权配置
type AuthConfig struct {
	JWTSecret         string `mapstructure:"jwt_secret"`
	JWTExpiration     int    `mapstructure:"jwt_expiration"` // 小时
	AdminPasswordHash string `mapstructure:"admin_password_hash"`
}

// AdminConfig 启动时确保存在的管理员账号
type AdminConfig struct {
	UserID string `mapstructure:"user_id"`
	Email  string `mapstructure:"email"`
	Name   string `mapstructure:"name"`
}

// RealtimeConfig 实时引擎配置
type RealtimeConfig struct {
	RequireToken  bool   `mapstructure:"require_token"`
	SendBuffer    int    `mapstructure:"send_buffer"`
	WriteTimeout  int    `mapstructure:"write_timeout"` // 秒
	ReconcileSpec string `mapstructure:"reconcile_spec"`
}

// RateLimitConfig HTTP 发送消息限流
type RateLimitConfig struct {
	Max    int `mapstructure:"max"`
	Window int `mapstructure:"window"` // 秒
}
