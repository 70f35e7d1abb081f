package internal

import "time"

type AppConfig struct {
	Name     string      `mapstructure:"name"`
	Port     string      `mapstructure:"port"`
	Host     string      `mapstructure:"host"`
	Root     string      `mapstructure:"root"`
	Cache    *DataSource `mapstructure:"cache"`
	Database *DataSource `mapstructure:"database"`
	Auth     *AuthConfig `mapstructure:"auth"`
	Log      *LogConfig  `mapstructure:"log"`
}

// DataSource 数据源配置，dialect 支持 postgres、mysql、sqlite 以及缓存的 redis、memory
type DataSource struct {
	Uri      string        `mapstructure:"uri"`
	Host     string        `mapstructure:"host"`
	Port     int           `mapstructure:"port"`
	Name     string        `mapstructure:"name"`
	Dialect  string        `mapstructure:"dialect"`
	Username string        `mapstructure:"username"`
	Password string        `mapstructure:"password"`
	Expire   time.Duration `mapstructure:"expire"`
}

type AuthConfig struct {
	Secret string `mapstructure:"secret"`
	Header string `mapstructure:"header"`
	// Required 为 true 时拒绝没有令牌的请求
	Required bool `mapstructure:"required"`
}

type LogConfig struct {
	Level      string `mapstructure:"level"`
	File       string `mapstructure:"file"`
	MaxSize    int    `mapstructure:"max-size"`
	MaxAge     int    `mapstructure:"max-age"`
	MaxBackups int    `mapstructure:"max-backups"`
}
