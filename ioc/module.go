package ioc

import (
	"github.com/ichaly/fluentgql/gql"
	"github.com/ichaly/fluentgql/std"
	"go.uber.org/fx"
)

// Config 配置文件路径由 fx.Supply 提供
var Config = fx.Module("config",
	fx.Provide(
		fx.Annotate(
			std.WithFilePath,
			fx.ResultTags(`group:"konfigOptions"`),
		),
		fx.Annotate(
			std.NewKonfig,
			fx.ParamTags(`group:"konfigOptions"`),
		),
		std.NewConfig,
		std.NewLogger,
		gql.NewConfig,
	),
)

// Database 查询缓存与主键生成以插件形式注入
// 宿主通过 group:"entity" 提供实体，开发模式下自动迁移
var Database = fx.Module("database",
	fx.Provide(
		std.NewStore,
		fx.Annotated{
			Group:  "gorm",
			Target: std.NewQueryCache,
		},
		fx.Annotated{
			Group:  "gorm",
			Target: std.NewSonyFlake,
		},
		fx.Annotate(
			std.NewConnect,
			fx.ParamTags(``, `group:"gorm"`, `group:"entity"`),
		),
	),
)

// GraphQL 执行器挂载宿主提供的 *gql.Schema
var GraphQL = fx.Module("graphql",
	fx.Provide(
		func() (*std.Validator, error) {
			return std.NewValidator(std.LocaleChinese)
		},
		fx.Annotate(
			gql.NewExecutor,
			fx.As(new(std.Plugin)),
			fx.ResultTags(`group:"plugin"`),
		),
	),
)

// Server 认证作为中间件先于其他插件挂载
var Server = fx.Module("server",
	fx.Provide(
		std.NewFiber,
		fx.Annotate(
			std.NewAuth,
			fx.As(new(std.Plugin)),
			fx.ResultTags(`group:"middleware"`),
		),
		fx.Annotate(
			std.NewHealth,
			fx.As(new(std.Plugin)),
			fx.ResultTags(`group:"plugin"`),
		),
	),
	fx.Invoke(std.Bootstrap),
)
