package cmd

import (
	"github.com/ichaly/fluentgql/internal/demo"
	"github.com/ichaly/fluentgql/ioc"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
)

var startCmd = &cobra.Command{
	Use:     "start",
	Aliases: []string{"run", "s", "r"},
	Short:   "Start Service.",
	RunE: func(cmd *cobra.Command, args []string) error {
		app := fx.New(
			ioc.Get(demo.Module),
			fx.Supply(configFile(cmd)),
			fx.WithLogger(func() fxevent.Logger { return fxevent.NopLogger }),
		)
		// 依赖图有误时直接返回，不进入运行
		if err := app.Err(); err != nil {
			return err
		}
		app.Run()
		return nil
	},
}
