package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"geoagent/internal/agent"
	"geoagent/internal/agent/tools"
	"geoagent/internal/config"
	"geoagent/internal/geo"
	"geoagent/internal/logger"
	"geoagent/internal/session"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "geoagent",
	Short: "Conversational geospatial analysis agent",
	Long: `geoagent is a conversational agent for geospatial data analysis.

It exposes filtering, clustering, heatmap rendering, GIF assembly and
cluster visualization as tools to an LLM planner. Ask in natural language;
the model plans the tool calls, geoagent runs them on local files.

Usage:
  geoagent serve
  geoagent chat "cluster the start points in my_vehicle_data.xlsx into 5 groups"`,
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config file")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(toolsCmd)
	rootCmd.AddCommand(versionCmd)
}

// initRuntime loads env and config and wires the agent with the full tool
// registry.
func initRuntime() (*config.Config, *agent.Agent, *tools.Registry, error) {
	// .env is optional; environment variables may come from the shell.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		logger.Warnf("Could not load .env file: %v", err)
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, nil, err
	}

	logger.Init(cfg.DataDir)

	registry := tools.NewRegistry()
	if err := geo.RegisterAll(registry, cfg.OutputsDir); err != nil {
		return nil, nil, nil, fmt.Errorf("failed to register tools: %w", err)
	}
	logger.Infof("Registered %d tools: %v", len(registry.Names()), registry.Names())

	client, err := agent.NewModelClient(cfg)
	if err != nil {
		return nil, nil, nil, err
	}

	return cfg, agent.New(client, registry, cfg), registry, nil
}

// newStore builds the configured session store.
func newStore(cfg *config.Config) (session.Store, error) {
	if cfg.Session.Backend == "sqlite" {
		logger.Infof("Using SQLite session store at %s", cfg.Session.SQLitePath)
		return session.NewSQLiteStore(cfg.Session.SQLitePath)
	}
	return session.NewMemoryStore(), nil
}
