package std

import (
	"context"
	"errors"
	"net"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/ichaly/fluentgql/log"
	"github.com/ichaly/fluentgql/utl"
	"go.uber.org/fx"
)

var (
	// Version 当前版本号
	Version = "V0.0.0"
	// GitCommit Git提交哈希
	GitCommit = "Unknown"
	// BuildTime 构建时间
	BuildTime = ""
)

// Plugin 插件接口
type Plugin interface {
	// Base 插件基础路径
	Base() string
	// Init 初始化插件
	Init(fiber.Router)
}

// PluginGroup 插件组
type PluginGroup struct {
	fx.In
	Plugins     []Plugin `group:"plugin"`
	Middlewares []Plugin `group:"middleware"`
}

// Mount 先挂载中间件再挂载插件，相同基础路径共享路由组
func Mount(a *fiber.App, g PluginGroup) {
	routers := map[string]fiber.Router{"/": a}
	getRouter := func(basePath string) fiber.Router {
		base := utl.NormalizePath(basePath)
		if r, exists := routers[base]; exists {
			return r
		}
		r := a.Group(base)
		routers[base] = r
		return r
	}

	for _, m := range append(g.Middlewares, g.Plugins...) {
		m.Init(getRouter(m.Base()))
	}
}

// Bootstrap 挂载插件并在启动阶段监听端口，端口占用会让启动失败
func Bootstrap(l fx.Lifecycle, c *Config, a *fiber.App, g PluginGroup) {
	if BuildTime == "" {
		BuildTime = time.Now().Format(time.DateTime)
	}
	Mount(a, g)

	l.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			ln, err := net.Listen("tcp", net.JoinHostPort(c.Host, c.Port))
			if err != nil {
				return err
			}
			go func() {
				if err := a.Listener(ln); err != nil && !errors.Is(err, net.ErrClosed) {
					log.Error().Err(err).Str("app", c.Name).Msg("服务异常退出")
				}
			}()
			log.Info().Str("addr", ln.Addr().String()).Str("version", Version).
				Str("commit", GitCommit).Str("build", BuildTime).Msg("服务已启动")
			return nil
		},
		OnStop: func(ctx context.Context) error {
			defer log.Info().Str("app", c.Name).Msg("已关闭")
			return a.ShutdownWithContext(ctx)
		},
	})
}
