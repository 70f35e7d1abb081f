package demo

import "go.uber.org/fx"

// Module 向容器提供部门与员工的实体和schema
var Module = fx.Module("demo",
	fx.Provide(
		fx.Annotate(
			Entities,
			fx.ResultTags(`group:"entity,flatten"`),
		),
		NewSchema,
	),
)
