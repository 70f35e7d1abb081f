package std

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, dir, name, content string) string {
	t.Helper()
	target := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(target, []byte(content), 0644))
	return target
}

func TestNewKonfig(t *testing.T) {
	dir := t.TempDir()
	configPath := writeConfig(t, dir, "config.yaml", `
mode: test
app:
  name: test-app
  port: "8080"
schema:
  max-limit: 50
  timeout: 5s
  tags: [a, b]
`)
	writeConfig(t, dir, "config-test.yaml", `
app:
  name: profile-app
`)
	t.Setenv("FGQ_SCHEMA_DEFAULT__LIMIT", "20")

	cfg, err := NewKonfig(WithFilePath(configPath), WithEnvPrefix("FGQ"))
	require.NoError(t, err)

	assert.Equal(t, "test", cfg.GetString("mode"))
	assert.Equal(t, "profile-app", cfg.GetString("app.name"))
	assert.Equal(t, "8080", cfg.GetString("app.port"))
	assert.Equal(t, 50, cfg.GetInt("schema.max-limit"))
	assert.Equal(t, 5*time.Second, cfg.GetDuration("schema.timeout"))
	assert.Equal(t, []string{"a", "b"}, cfg.GetStringSlice("schema.tags"))
	assert.Equal(t, 20, cfg.GetInt("schema.default-limit"))
	assert.False(t, cfg.IsSet("schema.unknown"))
}

func TestKonfigSetDefault(t *testing.T) {
	cfg, err := NewKonfig()
	require.NoError(t, err)

	cfg.Set("schema.max-limit", 10)
	cfg.SetDefault("schema.max-limit", 1000)
	cfg.SetDefault("schema.endpoint", "/graphql")

	assert.Equal(t, 10, cfg.GetInt("schema.max-limit"))
	assert.Equal(t, "/graphql", cfg.GetString("schema.endpoint"))
	assert.Equal(t, "dev", cfg.GetString("mode"))
}

func TestKonfigUnmarshal(t *testing.T) {
	configPath := writeConfig(t, t.TempDir(), "config.yaml", `
app:
  name: demo
  database:
    dialect: sqlite
    name: ":memory:"
`)
	cfg, err := NewKonfig(WithFilePath(configPath))
	require.NoError(t, err)

	c, err := NewConfig(cfg)
	require.NoError(t, err)
	assert.Equal(t, "demo", c.Name)
	require.NotNil(t, c.Database)
	assert.Equal(t, "sqlite", c.Database.Dialect)
	assert.True(t, c.IsDebug())
}

func TestKonfigInvalidFile(t *testing.T) {
	configPath := writeConfig(t, t.TempDir(), "config.yaml", "app:\n  name: x\n  - broken")
	_, err := NewKonfig(WithFilePath(configPath))
	assert.Error(t, err)
}

func TestKonfigWatch(t *testing.T) {
	configPath := writeConfig(t, t.TempDir(), "config.yaml", "schema:\n  max-limit: 10\n")
	cfg, err := NewKonfig(WithFilePath(configPath))
	require.NoError(t, err)
	cfg.SetDefault("schema.endpoint", "/graphql")

	changed := make(chan int, 1)
	cfg.OnConfigChange(func(k *Konfig) {
		select {
		case changed <- k.GetInt("schema.max-limit"):
		default:
		}
	})
	require.NoError(t, cfg.WatchConfig())
	defer cfg.StopWatch()

	time.Sleep(50 * time.Millisecond)
	require.NoError(t, os.WriteFile(configPath, []byte("schema:\n  max-limit: 20\n"), 0644))

	select {
	case v := <-changed:
		assert.Equal(t, 20, v)
		assert.Equal(t, "/graphql", cfg.GetString("schema.endpoint"))
	case <-time.After(3 * time.Second):
		t.Fatal("配置变更未触发")
	}
}

func TestIsTargetConfigFile(t *testing.T) {
	cases := []struct {
		name  string
		event string
		want  bool
	}{
		{name: "主配置", event: "/tmp/config.yaml", want: true},
		{name: "profile配置", event: "/tmp/config-dev.yaml", want: true},
		{name: "无关文件", event: "/tmp/other.yaml", want: false},
		{name: "扩展名不同", event: "/tmp/config-dev.json", want: false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			assert.Equal(t, c.want, isTargetConfigFile(c.event, "/etc/app/config.yaml"))
		})
	}
}
