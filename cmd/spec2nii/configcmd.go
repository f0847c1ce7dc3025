package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/clemoune/spec2nii/pkg/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the configuration file",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a configuration file with the default settings",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.CreateDefaultConfigFile(cfgFile); err != nil {
			return fmt.Errorf("failed to write configuration: %v", err)
		}
		fmt.Printf("Wrote default configuration to %s\n", cfgFile)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd)
}
