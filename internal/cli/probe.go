package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/vietddude/clinicnet/internal/infra/api"
	"github.com/vietddude/clinicnet/internal/recovery/classifier"
)

var probeCmd = &cobra.Command{
	Use:   "probe",
	Short: "Check once whether the clinic backend is reachable",
	Run:   runProbe,
}

func init() {
	rootCmd.AddCommand(probeCmd)
}

func runProbe(cmd *cobra.Command, args []string) {
	cfg := loadConfig()

	client := api.NewClient(cfg.API, nil)
	defer func() {
		_ = client.Close()
	}()

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Connectivity.Timeout)
	defer cancel()

	if err := client.Ping(ctx); err != nil {
		c := classifier.Classify(err)
		slog.Error("Backend check failed",
			"url", cfg.API.BaseURL+cfg.API.HealthPath,
			"category", c.Category,
			"code", c.Code,
			"error", err,
		)
		_, _ = fmt.Fprintln(os.Stdout, c.Message)
		os.Exit(1)
	}
	_, _ = fmt.Fprintln(os.Stdout, "reachable")
}
