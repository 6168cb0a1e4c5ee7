package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/saas-dashboard/dashboard/internal/app"
)

var rootCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Role-aware admin dashboard in front of the SAAS backend",
	Long: `Serves the admin dashboard. Browser sessions are kept in redis and every
backend call is made on behalf of the signed-in user.

	dashboard serve
	dashboard check`,
	SilenceUsage: true,
}

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rootCmd.AddCommand(newServeCmd(), newCheckCmd())
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
