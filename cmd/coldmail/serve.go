package main

import (
	"fmt"

	"github.com/jonathan/coldmail/internal/server"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	servePort int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the local console server",
	Long:  `Start an HTTP server that exposes one generation session over JSON, Server-Sent Events and an HTML results view.`,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Port to listen on (default: config server.port)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	port := cfg.Server.Port
	if cmd.Flags().Changed("port") {
		port = servePort
	}

	ctrl, err := newSessionController()
	if err != nil {
		return err
	}

	srv, err := server.New(server.Config{
		Port:       port,
		Controller: ctrl,
		Clipboard:  clipboardFor(),
		Logger:     appLog,
	})
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	appLog.Info("serving console", zap.Int("port", port), zap.String("endpoint", cfg.Endpoint))
	return srv.Start(cmd.Context())
}
