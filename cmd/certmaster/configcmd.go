// Copyright (c) 2025 ToeiRei
// Certmaster - SSH certificate authority service
// This source code is licensed under the MIT license found in the LICENSE file.

package main

import (
	"fmt"
	"log"

	"github.com/goccy/go-yaml"
	"github.com/spf13/cobra"

	"github.com/toeirei/certmaster/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the Certmaster configuration file",
}

// configInitCmd writes a starter config to the user (or system) config dir.
var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default configuration file",
	Run: func(cmd *cobra.Command, args []string) {
		system, _ := cmd.Flags().GetBool("system")
		cfg := config.DefaultConfig()
		if err := config.WriteConfigFile(&cfg, system); err != nil {
			log.Fatalf("Error writing config file: %v", err)
		}
		fmt.Println("Default configuration written.")
	},
}

// configShowCmd prints the effective configuration after layering defaults,
// file, environment and flags.
var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration as YAML",
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := config.LoadConfig[config.Config](cmd.Root(), config.Defaults(), &cfgFile)
		if err != nil {
			log.Fatalf("Error loading configuration: %v", err)
		}
		out, err := yaml.Marshal(cfg)
		if err != nil {
			log.Fatalf("Error encoding configuration: %v", err)
		}
		fmt.Print(string(out))
	},
}

func init() {
	configInitCmd.Flags().Bool("system", false, "Write the system-wide config instead of the user config")
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
}
