package std

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/ichaly/fluentgql/log"
	"github.com/ichaly/fluentgql/utl"
	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Konfig 配置管理器，包装了koanf.Koanf，并集成了配置文件监听功能
type Konfig struct {
	k         atomic.Pointer[koanf.Koanf]
	options   *konfigOptions
	defaults  map[string]interface{}
	callbacks []func(*Konfig)
	mu        sync.RWMutex

	watcher  *fsnotify.Watcher
	active   atomic.Bool
	stopChan chan struct{}
	debounce time.Duration
}

// KonfigOption 定义配置选项函数类型
type KonfigOption func(*konfigOptions)

type konfigOptions struct {
	envPrefix string
	filePath  string
	delim     string
}

// WithFilePath 设置配置文件路径，目前只支持yaml
func WithFilePath(filePath string) KonfigOption {
	return func(o *konfigOptions) {
		o.filePath = filePath
	}
}

// WithEnvPrefix 设置环境变量前缀
func WithEnvPrefix(prefix string) KonfigOption {
	return func(o *konfigOptions) {
		o.envPrefix = prefix
	}
}

// NewKonfig 按 配置文件 -> profile文件 -> 环境变量 的顺序加载配置
func NewKonfig(opts ...KonfigOption) (*Konfig, error) {
	options := &konfigOptions{envPrefix: "APP", delim: "."}
	for _, opt := range opts {
		opt(options)
	}

	if err := loadEnvFile(); err != nil {
		return nil, err
	}

	my := &Konfig{
		options:  options,
		defaults: map[string]interface{}{"mode": "dev", "app.root": utl.Root()},
		debounce: 100 * time.Millisecond,
	}
	k, err := my.load()
	if err != nil {
		return nil, err
	}
	my.k.Store(k)
	return my, nil
}

func loadEnvFile() error {
	envFile := filepath.Join(utl.Root(), ".env")
	if _, err := os.Stat(envFile); os.IsNotExist(err) {
		return nil
	}
	if err := godotenv.Load(envFile); err != nil {
		return fmt.Errorf("加载.env文件失败: %w", err)
	}
	return nil
}

// load 构建一个新的koanf实例，默认值优先级最低
func (my *Konfig) load() (*koanf.Koanf, error) {
	o := my.options
	k := koanf.New(o.delim)

	my.mu.RLock()
	err := k.Load(confmap.Provider(my.defaults, o.delim), nil)
	my.mu.RUnlock()
	if err != nil {
		return nil, fmt.Errorf("加载默认配置失败: %w", err)
	}

	if o.filePath != "" {
		if err := k.Load(file.Provider(o.filePath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("加载配置文件失败: %w", err)
		}
		log.Debug().Str("file", o.filePath).Msg("配置文件已加载")
		if err := mergeProfiles(k, o.filePath); err != nil {
			return nil, err
		}
	}

	// APP_SCHEMA_MAX__LIMIT => schema.max-limit
	prefix := o.envPrefix + "_"
	provider := env.Provider(prefix, o.delim, func(s string) string {
		s = strings.ToLower(strings.TrimPrefix(s, prefix))
		s = strings.ReplaceAll(s, "__", "-")
		return strings.ReplaceAll(s, "_", o.delim)
	})
	if err := k.Load(provider, nil); err != nil {
		return nil, fmt.Errorf("加载环境变量失败: %w", err)
	}
	return k, nil
}

// mergeProfiles 依次合并 profiles.active 与 mode 对应的 {name}-{profile}.yaml
func mergeProfiles(k *koanf.Koanf, filePath string) error {
	dir, ext := filepath.Dir(filePath), filepath.Ext(filePath)
	name := strings.TrimSuffix(filepath.Base(filePath), ext)

	var profiles []string
	for _, p := range strings.Split(k.String("profiles.active"), ",") {
		if p = strings.TrimSpace(p); p != "" {
			profiles = append(profiles, p)
		}
	}
	if mode := k.String("mode"); mode != "" {
		profiles = append(profiles, mode)
	}

	for _, profile := range profiles {
		target := filepath.Join(dir, name+"-"+profile+ext)
		if _, err := os.Stat(target); os.IsNotExist(err) {
			continue
		}
		if err := k.Load(file.Provider(target), yaml.Parser()); err != nil {
			return fmt.Errorf("合并profile配置文件失败: %w", err)
		}
		log.Debug().Str("profile", profile).Str("file", target).Msg("配置文件已合并")
	}
	return nil
}

func (my *Konfig) koanf() *koanf.Koanf {
	return my.k.Load()
}

// Get 获取配置项
func (my *Konfig) Get(path string) interface{} {
	return my.koanf().Get(path)
}

// Set 设置配置项
func (my *Konfig) Set(path string, value interface{}) {
	_ = my.koanf().Set(path, value)
}

// IsSet 判断配置项是否存在
func (my *Konfig) IsSet(path string) bool {
	return my.koanf().Exists(path)
}

func (my *Konfig) GetString(path string) string {
	return my.koanf().String(path)
}

func (my *Konfig) GetBool(path string) bool {
	return my.koanf().Bool(path)
}

func (my *Konfig) GetInt(path string) int {
	return my.koanf().Int(path)
}

func (my *Konfig) GetDuration(path string) time.Duration {
	return my.koanf().Duration(path)
}

func (my *Konfig) GetStringSlice(path string) []string {
	return my.koanf().Strings(path)
}

// SetDefault 设置默认值，重新加载配置后依然生效
func (my *Konfig) SetDefault(path string, value interface{}) {
	my.mu.Lock()
	my.defaults[path] = value
	my.mu.Unlock()
	if !my.IsSet(path) {
		my.Set(path, value)
	}
}

// Unmarshal 将配置解析到结构体
func (my *Konfig) Unmarshal(val interface{}) error {
	return my.UnmarshalKey("", val)
}

// UnmarshalKey 将配置键解析到结构体
func (my *Konfig) UnmarshalKey(path string, val interface{}) error {
	err := my.koanf().UnmarshalWithConf(path, val, koanf.UnmarshalConf{Tag: "mapstructure"})
	if err != nil {
		log.Error().Err(err).Str("path", path).Msg("配置解析失败")
	}
	return err
}

// OnConfigChange 注册配置重新加载后的回调
func (my *Konfig) OnConfigChange(callback func(*Konfig)) {
	my.mu.Lock()
	defer my.mu.Unlock()
	my.callbacks = append(my.callbacks, callback)
}

// WatchConfig 监听配置文件及其profile文件的变更
func (my *Konfig) WatchConfig() error {
	if my.options.filePath == "" {
		return fmt.Errorf("没有设置配置文件路径，无法启动监听")
	}
	if !my.active.CompareAndSwap(false, true) {
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		my.active.Store(false)
		return fmt.Errorf("创建文件监视器失败: %w", err)
	}
	dir := filepath.Dir(my.options.filePath)
	if err := watcher.Add(dir); err != nil {
		_ = watcher.Close()
		my.active.Store(false)
		return fmt.Errorf("添加监视目录失败: %w", err)
	}
	my.watcher, my.stopChan = watcher, make(chan struct{})

	log.Info().Str("directory", dir).Msg("已启动配置文件监听")
	go my.watch(watcher, my.stopChan)
	return nil
}

func (my *Konfig) watch(watcher *fsnotify.Watcher, stop chan struct{}) {
	var timer *time.Timer
	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if !isTargetConfigFile(event.Name, my.options.filePath) {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(my.debounce, my.reload)
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			log.Error().Err(err).Msg("配置文件监视错误")
		case <-stop:
			if timer != nil {
				timer.Stop()
			}
			return
		}
	}
}

// isTargetConfigFile 匹配主配置文件以及 name-*.ext 格式的profile文件
func isTargetConfigFile(eventPath, configPath string) bool {
	event, config := filepath.Base(eventPath), filepath.Base(configPath)
	if event == config {
		return true
	}
	ext := filepath.Ext(config)
	name := strings.TrimSuffix(config, ext)
	return strings.HasPrefix(event, name+"-") && strings.HasSuffix(event, ext)
}

func (my *Konfig) reload() {
	k, err := my.load()
	if err != nil {
		log.Error().Err(err).Str("file", my.options.filePath).Msg("重新加载配置失败")
		return
	}
	my.k.Store(k)
	log.Info().Str("file", my.options.filePath).Msg("配置已重新加载")

	my.mu.RLock()
	callbacks := append([]func(*Konfig){}, my.callbacks...)
	my.mu.RUnlock()
	for _, callback := range callbacks {
		callback(my)
	}
}

// StopWatch 停止配置监听
func (my *Konfig) StopWatch() {
	if my.active.CompareAndSwap(true, false) {
		close(my.stopChan)
		_ = my.watcher.Close()
		log.Info().Msg("已停止配置文件监听")
	}
}
