package cli

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/mrlokans/shelf/internal/config"
	"github.com/mrlokans/shelf/internal/database"
	"github.com/mrlokans/shelf/internal/database/readingevents"
	"github.com/mrlokans/shelf/internal/entrypoint"
)

// ReconcileEventsCommand rebuilds the last-event cache of every user book
// from the reading event history.
type ReconcileEventsCommand struct {
	DatabasePath string
	NoProgress   bool
}

func NewReconcileEventsCommand() *ReconcileEventsCommand {
	return &ReconcileEventsCommand{}
}

func (cmd *ReconcileEventsCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("reconcile-events", flag.ExitOnError)

	fs.StringVar(&cmd.DatabasePath, "db", "", "Path to the sqlite database (defaults to DATABASE_PATH)")
	fs.BoolVar(&cmd.NoProgress, "no-progress", false, "Do not record the run in sync progress")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s reconcile-events [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Rebuild the cached last reading event of every tracked book.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s reconcile-events\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s reconcile-events -db ./shelf.db\n", os.Args[0])
	}

	return fs.Parse(args)
}

func (cmd *ReconcileEventsCommand) Run() error {
	cfg := config.NewConfig()
	if cmd.DatabasePath != "" {
		cfg.Database.Driver = config.DriverSQLite
		cfg.Database.Path = cmd.DatabasePath
	}

	db, err := database.NewDatabase(cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	repos, err := entrypoint.NewRepositories(db.DB, cfg.Catalog)
	if err != nil {
		return err
	}

	var reporter readingevents.ProgressReporter
	if !cmd.NoProgress {
		reporter = repos.Progress
	}

	result, err := repos.Events.ReconcileLastEvents(context.Background(), reporter)
	if err != nil {
		return fmt.Errorf("reconciliation failed: %w", err)
	}
	if result.Skipped {
		log.Printf("Another reconciliation is running, nothing done")
		return nil
	}

	fmt.Printf("Checked %d user books, repaired %d\n", result.Checked, result.Changed)
	return nil
}
