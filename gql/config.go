package gql

import (
	"github.com/ichaly/fluentgql/std"
)

// Config schema 相关配置，对应配置文件中的 schema 节点
type Config struct {
	QueryType       string `mapstructure:"query-type"`
	MutationType    string `mapstructure:"mutation-type"`
	DefaultLimit    int    `mapstructure:"default-limit"`
	MaxLimit        int    `mapstructure:"max-limit"`
	Endpoint        string `mapstructure:"endpoint"`
	CursorMinLength int    `mapstructure:"cursor-min-length"`
	SDL             string `mapstructure:"sdl"`
}

func NewConfig(k *std.Konfig) (*Config, error) {
	k.SetDefault("schema.query-type", "Query")
	k.SetDefault("schema.mutation-type", "Mutation")
	k.SetDefault("schema.default-limit", 100)
	k.SetDefault("schema.max-limit", 1000)
	k.SetDefault("schema.endpoint", "/graphql")
	k.SetDefault("schema.cursor-min-length", 6)

	c := &Config{}
	if err := k.UnmarshalKey("schema", c); err != nil {
		return nil, err
	}
	return c.normalize(), nil
}

// DefaultConfig 返回默认配置，主要用于测试与命令行
func DefaultConfig() *Config {
	return (&Config{}).normalize()
}

func (my *Config) normalize() *Config {
	if my.QueryType == "" {
		my.QueryType = "Query"
	}
	if my.MutationType == "" {
		my.MutationType = "Mutation"
	}
	if my.DefaultLimit <= 0 {
		my.DefaultLimit = 100
	}
	if my.MaxLimit <= 0 {
		my.MaxLimit = 1000
	}
	if my.DefaultLimit > my.MaxLimit {
		my.DefaultLimit = my.MaxLimit
	}
	if my.Endpoint == "" {
		my.Endpoint = "/graphql"
	}
	if my.CursorMinLength <= 0 {
		my.CursorMinLength = 6
	}
	return my
}
