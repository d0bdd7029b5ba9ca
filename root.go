package main

import (
	"os"

	"github.com/spf13/cobra"

	"slidepack/config"
)

const defaultConfigFile = "slidepack.toml"

func newRootCommand() *cobra.Command {
	var configFlag string

	loadConfig := func() (*config.Config, error) {
		return config.Load(configFlag)
	}

	serveCmd := newServeCommand(loadConfig)
	rootCmd := &cobra.Command{
		Use:           "slidepack",
		Short:         "Fetch presentation slides and repackage them as zip, PDF or PowerPoint",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          serveCmd.RunE,
	}

	defaultConfig := os.Getenv("SLIDEPACK_CONFIG")
	if defaultConfig == "" {
		defaultConfig = defaultConfigFile
	}
	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", defaultConfig, "Configuration file path")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(newHistoryCommand(loadConfig))
	return rootCmd
}
