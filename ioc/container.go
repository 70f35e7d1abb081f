package ioc

import "go.uber.org/fx"

// Get 组装全部模块，schema 与实体由 app 提供，顺序无关，依赖由 fx 解析
func Get(app ...fx.Option) fx.Option {
	return fx.Options(append([]fx.Option{Config, Database, GraphQL, Server}, app...)...)
}
