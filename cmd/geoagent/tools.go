package main

import (
	"fmt"

	"github.com/spf13/cobra"

	agenttools "geoagent/internal/agent/tools"
	"geoagent/internal/config"
	"geoagent/internal/geo"
)

var toolsCmd = &cobra.Command{
	Use:   "tools",
	Short: "List the registered tools and their parameters",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}

		registry := agenttools.NewRegistry()
		if err := geo.RegisterAll(registry, cfg.OutputsDir); err != nil {
			return err
		}

		for _, tool := range registry.All() {
			fmt.Printf("%s\n    %s\n", tool.Name(), tool.Description())
			params := tool.Parameters()
			for name, prop := range params.Properties {
				required := ""
				for _, r := range params.Required {
					if r == name {
						required = " (required)"
						break
					}
				}
				fmt.Printf("    - %s: %s%s\n", name, prop.Type, required)
			}
			fmt.Println()
		}
		return nil
	},
}
