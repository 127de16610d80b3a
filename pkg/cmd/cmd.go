// Package cmd contains the command line applications for the project.
package cmd

import (
	"github.com/spf13/cobra"
)

var (
	// 全局持久化标志.
	configPath string
	debug      bool

	rootCmd = &cobra.Command{
		Use:   "linkvault",
		Short: "A command line tool for collecting files through shareable links",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to the config file")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug output")

	registerConfigsCommands()
	registerDBCommands()
	registerKVCommands()
	registerMQCommands()
	registerServeCommands()
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
