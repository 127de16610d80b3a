package cmd

import (
	"github.com/spf13/cobra"

	"github.com/yeisme/linkvault/pkg/app"
)

var (
	serveCmd = &cobra.Command{
		Use:     "serve",
		Short:   "start the HTTP server",
		Aliases: []string{"server", "run"},
		RunE: func(cmd *cobra.Command, args []string) error {
			a := app.NewApp(configPath)

			defer func() {
				if a.Scheduler != nil {
					_ = a.Scheduler.Shutdown()
				}
			}()

			return a.Run()
		},
	}
)

// registerServeCommands 注册服务启动命令.
func registerServeCommands() {
	rootCmd.AddCommand(serveCmd)
}
