package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"geoagent/internal/logger"
	"geoagent/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP chat API",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, agentInstance, _, err := initRuntime()
		if err != nil {
			return err
		}
		defer logger.CloseLogFiles()

		store, err := newStore(cfg)
		if err != nil {
			return err
		}
		defer store.Close()

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		sigs := make(chan os.Signal, 1)
		signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
		go func() {
			<-sigs
			logger.Infof("Shutdown signal received, exiting...")
			cancel()
		}()

		srv := server.New(agentInstance, store, cfg)
		return srv.ListenAndServe(ctx)
	},
}
