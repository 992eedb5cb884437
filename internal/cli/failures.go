package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/vietddude/clinicnet/internal/infra/storage/postgres"
)

var failuresLimit int

var failuresCmd = &cobra.Command{
	Use:   "failures",
	Short: "List requests that failed after all retries",
	Run:   runFailures,
}

var resolveCmd = &cobra.Command{
	Use:   "resolve [id]",
	Short: "Mark an archived failure as resolved",
	Args:  cobra.ExactArgs(1),
	Run:   runResolve,
}

func init() {
	failuresCmd.Flags().IntVar(&failuresLimit, "limit", 50, "maximum number of rows")
	failuresCmd.AddCommand(resolveCmd)
	rootCmd.AddCommand(failuresCmd)
}

func openFailedRepo(ctx context.Context) (*postgres.DB, *postgres.FailedTaskRepo) {
	cfg := loadConfig()
	if !cfg.DatabaseEnabled() {
		slog.Error("database.url is not configured, failures are only kept in memory")
		os.Exit(1)
	}

	db, err := postgres.NewDB(ctx, cfg.Database)
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	return db, postgres.NewFailedTaskRepo(db)
}

func runFailures(cmd *cobra.Command, args []string) {
	ctx := context.Background()
	db, repo := openFailedRepo(ctx)
	defer func() {
		_ = db.Close()
	}()

	tasks, err := repo.List(ctx, failuresLimit)
	if err != nil {
		slog.Error("Failed to list failures", "error", err)
		os.Exit(1)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', tabwriter.Debug)
	_, _ = fmt.Fprintln(w, "ID\tOPERATION\tCATEGORY\tCODE\tATTEMPTS\tCREATED")
	for _, t := range tasks {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%s\n",
			t.ID, t.Operation, t.Category, t.Code, t.Attempts, t.CreatedAt.Format(time.RFC3339))
	}
	_ = w.Flush()
}

func runResolve(cmd *cobra.Command, args []string) {
	ctx := context.Background()
	db, repo := openFailedRepo(ctx)
	defer func() {
		_ = db.Close()
	}()

	if err := repo.MarkResolved(ctx, args[0]); err != nil {
		slog.Error("Failed to resolve failure", "id", args[0], "error", err)
		os.Exit(1)
	}
	slog.Info("Failure resolved", "id", args[0])
}
