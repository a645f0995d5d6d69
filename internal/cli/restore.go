package cli

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/shockbytes/dante/internal/backup"
	"github.com/shockbytes/dante/internal/config"
)

// RestoreCommand applies a stored backup to the library.
type RestoreCommand struct {
	ID           string
	Strategy     string
	DatabasePath string
}

func NewRestoreCommand() *RestoreCommand {
	return &RestoreCommand{}
}

func (cmd *RestoreCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("restore", flag.ExitOnError)

	fs.StringVar(&cmd.ID, "id", "", "Backup id as shown by the backups command (required)")
	fs.StringVar(&cmd.Strategy, "strategy", string(backup.RestoreStrategyMerge), "Restore strategy: merge or overwrite")
	fs.StringVar(&cmd.DatabasePath, "db", config.DefaultDatabasePath, "Path to the library database file")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s restore -id <backup-id> [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Restore a backup into the library.\n\n")
		fmt.Fprintf(os.Stderr, "With -strategy merge (default), current books are kept and books already\n")
		fmt.Fprintf(os.Stderr, "present by title and author are not duplicated. With -strategy overwrite,\n")
		fmt.Fprintf(os.Stderr, "the library is cleared first.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return err
	}
	if cmd.ID == "" {
		return fmt.Errorf("required flag -id not provided")
	}
	return nil
}

func (cmd *RestoreCommand) Run() error {
	ctx := context.Background()

	app, err := NewApp(ctx, cmd.DatabasePath)
	if err != nil {
		return err
	}
	defer app.Close(ctx)

	entry, err := app.FindEntry(ctx, cmd.ID)
	if err != nil {
		return err
	}

	strategy := backup.RestoreStrategy(cmd.Strategy)
	if err := app.Orchestrator.Restore(ctx, entry, app.Reconciler, strategy); err != nil {
		return fmt.Errorf("restore failed: %w", err)
	}

	fmt.Printf("Restored backup %s (%d books) from %s with strategy %s\n",
		entry.ID, entry.BookCount, entry.StorageProvider, strategy)
	return nil
}
