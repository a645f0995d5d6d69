package cli

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/shockbytes/dante/internal/backup"
	"github.com/shockbytes/dante/internal/config"
)

// DeleteCommand removes one backup, or a whole provider's namespace.
type DeleteCommand struct {
	ID           string
	Provider     string
	All          bool
	DatabasePath string
}

func NewDeleteCommand() *DeleteCommand {
	return &DeleteCommand{}
}

func (cmd *DeleteCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("delete", flag.ExitOnError)

	fs.StringVar(&cmd.ID, "id", "", "Backup id to delete")
	fs.StringVar(&cmd.Provider, "provider", "", "Provider whose backups to purge (with -all)")
	fs.BoolVar(&cmd.All, "all", false, "Delete every backup of the given provider")
	fs.StringVar(&cmd.DatabasePath, "db", config.DefaultDatabasePath, "Path to the library database file")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s delete -id <backup-id> | -all -provider <tag>\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Delete a single backup, or purge all backups of one provider.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return err
	}
	if cmd.All {
		if cmd.Provider == "" {
			return fmt.Errorf("-all requires -provider")
		}
		return nil
	}
	if cmd.ID == "" {
		return fmt.Errorf("either -id or -all -provider must be given")
	}
	return nil
}

func (cmd *DeleteCommand) Run() error {
	ctx := context.Background()

	app, err := NewApp(ctx, cmd.DatabasePath)
	if err != nil {
		return err
	}
	defer app.Close(ctx)

	if cmd.All {
		tag := backup.StorageProvider(cmd.Provider)
		if err := app.Orchestrator.RemoveAllEntries(ctx, tag); err != nil {
			return fmt.Errorf("failed to purge %s backups: %w", tag, err)
		}
		fmt.Printf("Deleted all backups of provider %s\n", tag)
		return nil
	}

	entry, err := app.FindEntry(ctx, cmd.ID)
	if err != nil {
		return err
	}
	if err := app.Orchestrator.RemoveEntry(ctx, entry); err != nil {
		return fmt.Errorf("failed to delete backup: %w", err)
	}
	fmt.Printf("Deleted backup %s from %s\n", entry.ID, entry.StorageProvider)
	return nil
}
