package cmd

import (
	"fmt"
	"os"

	"github.com/ichaly/fluentgql/gql"
	"github.com/ichaly/fluentgql/internal/demo"
	"github.com/ichaly/fluentgql/std"
	"github.com/spf13/cobra"
)

const outputFlag = "output"

var sdlCmd = &cobra.Command{
	Use:   "sdl",
	Short: "Print or save the schema SDL.",
	RunE: func(cmd *cobra.Command, args []string) error {
		file := configFile(cmd)
		var opts []std.KonfigOption
		if _, err := os.Stat(file); err == nil {
			opts = append(opts, std.WithFilePath(file))
		}
		k, err := std.NewKonfig(opts...)
		if err != nil {
			return err
		}
		c, err := gql.NewConfig(k)
		if err != nil {
			return err
		}
		v, err := std.NewValidator()
		if err != nil {
			return err
		}
		// 生成SDL不需要连接数据库
		s, err := demo.NewSchema(nil, c, v)
		if err != nil {
			return err
		}

		output, _ := cmd.Flags().GetString(outputFlag)
		if output == "" {
			output = c.SDL
		}
		if output != "" {
			return s.Save(output)
		}
		sdl, err := s.SDL()
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), sdl)
		return err
	},
}

func init() {
	sdlCmd.Flags().StringP(outputFlag, "o", "", "write SDL to file instead of stdout")
}
