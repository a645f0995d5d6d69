package cli

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/shockbytes/dante/internal/backup"
	"github.com/shockbytes/dante/internal/config"
)

// BackupCommand snapshots the library to one backup provider.
type BackupCommand struct {
	Provider     string
	DatabasePath string
}

func NewBackupCommand() *BackupCommand {
	return &BackupCommand{}
}

func (cmd *BackupCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("backup", flag.ExitOnError)

	fs.StringVar(&cmd.Provider, "provider", string(backup.StorageProviderLocal), "Target provider: local, gdrive, remote, or csv")
	fs.StringVar(&cmd.DatabasePath, "db", config.DefaultDatabasePath, "Path to the library database file")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s backup [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Snapshot the library (books and reading progress) to a backup provider.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s backup\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s backup -provider csv\n", os.Args[0])
	}

	return fs.Parse(args)
}

func (cmd *BackupCommand) Run() error {
	ctx := context.Background()

	app, err := NewApp(ctx, cmd.DatabasePath)
	if err != nil {
		return err
	}
	defer app.Close(ctx)

	content, err := app.Snapshot()
	if err != nil {
		return err
	}

	tag := backup.StorageProvider(cmd.Provider)
	if err := app.Orchestrator.Backup(ctx, tag, content); err != nil {
		return fmt.Errorf("backup to %s failed: %w", tag, err)
	}

	fmt.Printf("Backed up %d books and %d page records to %s\n",
		len(content.Books), len(content.Records), tag)
	return nil
}
