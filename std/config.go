package std

import (
	"os"

	"github.com/ichaly/fluentgql/log"
	"github.com/ichaly/fluentgql/std/internal"
)

// Config 表示标准配置
type Config struct {
	internal.AppConfig `mapstructure:"app"`
	Mode               string `mapstructure:"mode"`
}

func NewConfig(k *Konfig) (*Config, error) {
	c := &Config{}
	if err := k.Unmarshal(&c); err != nil {
		return nil, err
	}
	return c, nil
}

// IsDebug 判断是否为开发模式
func (my *Config) IsDebug() bool {
	return my.Mode == "development" || my.Mode == "dev" || my.Mode == "test"
}

// NewLogger 按配置创建全局日志记录器
func NewLogger(c *Config) *log.Logger {
	ops := []log.Option{log.WithConsole(os.Stderr)}
	if c.Log != nil {
		if c.Log.File != "" {
			ops = []log.Option{log.WithRotate(c.Log.File, c.Log.MaxSize, c.Log.MaxAge, c.Log.MaxBackups)}
		}
		ops = append(ops, log.WithLevel(log.ParseLevel(c.Log.Level)))
	} else if c.IsDebug() {
		ops = append(ops, log.WithLevel(log.DebugLevel))
	}
	if c.Name != "" {
		ops = append(ops, log.WithFields(map[string]interface{}{"app": c.Name}))
	}
	l := log.NewLogger(ops...)
	log.SetDefault(l)
	return l
}
