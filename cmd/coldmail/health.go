package main

import (
	"fmt"

	"github.com/jonathan/coldmail/internal/client"
	"github.com/spf13/cobra"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check that the email generation service is reachable",
	RunE:  runHealth,
}

func init() {
	rootCmd.AddCommand(healthCmd)
}

func runHealth(cmd *cobra.Command, _ []string) error {
	c, err := client.New(cfg.Endpoint, &client.Options{Timeout: cfg.Timeout, Logger: appLog})
	if err != nil {
		return fmt.Errorf("failed to create client: %w", err)
	}

	health, err := c.Health(cmd.Context())
	if err != nil {
		return fmt.Errorf("service at %s is unreachable: %s", c.BaseURL(), client.UserMessage(err))
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Service: %s\n", c.BaseURL())
	fmt.Fprintf(out, "Status: %s\n", health.Status)

	// The info route is optional.
	if info, err := c.Info(cmd.Context()); err == nil {
		fmt.Fprintf(out, "Version: %s\n", info.Version)
		if info.Message != "" {
			fmt.Fprintf(out, "Message: %s\n", info.Message)
		}
	}
	return nil
}
