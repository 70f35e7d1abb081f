package internal

import (
	"testing"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppConfigKoanf(t *testing.T) {
	cases := []struct {
		name     string
		yamlData string
		check    func(t *testing.T, c AppConfig)
	}{
		{
			name:     "数据源",
			yamlData: "database:\n  dialect: postgres\n  host: db\n  port: 5432\n  name: demo",
			check: func(t *testing.T, c AppConfig) {
				require.NotNil(t, c.Database)
				assert.Equal(t, "postgres", c.Database.Dialect)
				assert.Equal(t, 5432, c.Database.Port)
				assert.Nil(t, c.Cache)
			},
		},
		{
			name:     "缓存过期时间",
			yamlData: "cache:\n  dialect: memory\n  expire: 10m",
			check: func(t *testing.T, c AppConfig) {
				require.NotNil(t, c.Cache)
				assert.Equal(t, 10*time.Minute, c.Cache.Expire)
			},
		},
		{
			name:     "中划线键",
			yamlData: "log:\n  level: warn\n  max-size: 20\n  max-backups: 2",
			check: func(t *testing.T, c AppConfig) {
				require.NotNil(t, c.Log)
				assert.Equal(t, 20, c.Log.MaxSize)
				assert.Equal(t, 2, c.Log.MaxBackups)
			},
		},
		{
			name:     "认证开关",
			yamlData: "auth:\n  secret: s\n  required: true",
			check: func(t *testing.T, c AppConfig) {
				require.NotNil(t, c.Auth)
				assert.True(t, c.Auth.Required)
				assert.Empty(t, c.Auth.Header)
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			k := koanf.New(".")
			require.NoError(t, k.Load(rawbytes.Provider([]byte(tc.yamlData)), yaml.Parser()))

			var cfg AppConfig
			require.NoError(t, k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "mapstructure"}))
			tc.check(t, cfg)
		})
	}
}
