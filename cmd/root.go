package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/ichaly/fluentgql/std"
	"github.com/ichaly/fluentgql/utl"
	"github.com/spf13/cobra"
)

const configFlag = "config"

var rootCmd = &cobra.Command{
	Use:     "fluentgql",
	Short:   "GraphQL service built on fluent loaders.",
	Version: std.Version,
}

func init() {
	rootCmd.PersistentFlags().StringP(
		configFlag, "c", "", "config file, default cfg/config.yml",
	)
	rootCmd.AddCommand(startCmd, sdlCmd)
}

// configFile 未指定时使用项目下的 cfg/config.yml
func configFile(cmd *cobra.Command) string {
	file, _ := cmd.Flags().GetString(configFlag)
	if file == "" {
		file = filepath.Join(utl.Root(), "cfg", "config.yml")
	}
	return file
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
