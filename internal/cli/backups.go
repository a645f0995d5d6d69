package cli

import (
	"context"
	"flag"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/shockbytes/dante/internal/config"
)

// BackupsCommand lists the stored backups of every active provider.
type BackupsCommand struct {
	DatabasePath string
}

func NewBackupsCommand() *BackupsCommand {
	return &BackupsCommand{}
}

func (cmd *BackupsCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("backups", flag.ExitOnError)

	fs.StringVar(&cmd.DatabasePath, "db", config.DefaultDatabasePath, "Path to the library database file")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s backups [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "List all stored backups across providers, newest first.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
	}

	return fs.Parse(args)
}

func (cmd *BackupsCommand) Run() error {
	ctx := context.Background()

	app, err := NewApp(ctx, cmd.DatabasePath)
	if err != nil {
		return err
	}
	defer app.Close(ctx)

	entries, err := app.Orchestrator.Backups(ctx)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Println("No backups found.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tPROVIDER\tBOOKS\tDEVICE\tCREATED")
	for _, e := range entries {
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\n",
			e.Entry.ID, e.Entry.StorageProvider, e.Entry.BookCount,
			e.Entry.Device, e.Entry.Timestamp.Local().Format(time.RFC822))
	}
	if err := w.Flush(); err != nil {
		return err
	}

	if at, provider, ok := app.Orchestrator.LastBackup(); ok {
		fmt.Printf("\nLast backup: %s via %s\n", at.Local().Format(time.RFC822), provider)
	}
	return nil
}
