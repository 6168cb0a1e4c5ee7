package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/saas-dashboard/dashboard/internal/app"
	"github.com/saas-dashboard/dashboard/internal/backend"
)

// newCheckCmd checks that the backend answers. An anonymous /me is expected
// to fail with 401, which still proves the backend is up.
func newCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Check that the configured backend is reachable",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := app.LoadConfig()
			if err != nil {
				return err
			}
			client, err := backend.NewClient(cfg.BackendBaseURL, backend.Options{Timeout: cfg.BackendTimeout, Logger: app.NewLogger(cfg)})
			if err != nil {
				return err
			}
			if _, err := client.FetchCSRFToken(cmd.Context()); err != nil {
				return fmt.Errorf("fetch csrf token from %s: %w", cfg.BackendBaseURL, err)
			}
			if _, err := client.Me(cmd.Context()); err != nil && !errors.Is(err, backend.ErrUnauthorized) {
				return fmt.Errorf("check %s: %w", cfg.BackendBaseURL, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "backend %s reachable\n", cfg.BackendBaseURL)
			return nil
		},
	}
}
