package cli

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/mrlokans/shelf/internal/config"
	"github.com/mrlokans/shelf/internal/database"
	"github.com/mrlokans/shelf/internal/entrypoint"
	"github.com/mrlokans/shelf/internal/metadata"
)

// ImportISBNCommand looks books up on Open Library and adds them to the
// catalog.
type ImportISBNCommand struct {
	ISBNs        []string
	DatabasePath string
	DryRun       bool
}

func NewImportISBNCommand() *ImportISBNCommand {
	return &ImportISBNCommand{}
}

func (cmd *ImportISBNCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("import-isbn", flag.ExitOnError)

	var isbns string
	fs.StringVar(&isbns, "isbn", "", "Comma-separated ISBNs to import (required)")
	fs.StringVar(&cmd.DatabasePath, "db", "", "Path to the sqlite database (defaults to DATABASE_PATH)")
	fs.BoolVar(&cmd.DryRun, "dry-run", false, "Print the looked up metadata without saving")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s import-isbn [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Create catalog books from Open Library metadata.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s import-isbn -isbn 9780441172719\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s import-isbn -isbn 9780441172719,0141439580 -dry-run\n", os.Args[0])
	}

	if err := fs.Parse(args); err != nil {
		return err
	}

	for _, isbn := range strings.Split(isbns, ",") {
		if isbn = strings.TrimSpace(isbn); isbn != "" {
			cmd.ISBNs = append(cmd.ISBNs, isbn)
		}
	}
	if len(cmd.ISBNs) == 0 {
		fs.Usage()
		return fmt.Errorf("at least one ISBN is required")
	}
	return nil
}

func (cmd *ImportISBNCommand) Run() error {
	cfg := config.NewConfig()
	if cmd.DatabasePath != "" {
		cfg.Database.Driver = config.DriverSQLite
		cfg.Database.Path = cmd.DatabasePath
	}

	client := metadata.NewOpenLibraryClient(cfg.Metadata.BaseURL)

	var repos *entrypoint.Repositories
	if !cmd.DryRun {
		db, err := database.NewDatabase(cfg.Database)
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer db.Close()

		repos, err = entrypoint.NewRepositories(db.DB, cfg.Catalog)
		if err != nil {
			return err
		}
	}

	failed := 0
	for _, isbn := range cmd.ISBNs {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		md, err := client.SearchByISBN(ctx, isbn)
		cancel()
		if err != nil {
			fmt.Fprintf(os.Stderr, "  %s: %v\n", isbn, err)
			failed++
			continue
		}

		if cmd.DryRun {
			fmt.Printf("  %s: %q by %s\n", isbn, md.Title, strings.Join(md.Authors, ", "))
			continue
		}

		book, err := repos.Books.CreateBook(context.Background(), md.ToCreateRequest())
		if err != nil {
			fmt.Fprintf(os.Stderr, "  %s: %v\n", isbn, err)
			failed++
			continue
		}
		fmt.Printf("  %s: created %q (%s)\n", isbn, book.Title, book.ID)
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d ISBNs could not be imported", failed, len(cmd.ISBNs))
	}
	return nil
}
