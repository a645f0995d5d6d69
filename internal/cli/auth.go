package cli

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/shockbytes/dante/internal/auth"
	"github.com/shockbytes/dante/internal/config"
	"github.com/shockbytes/dante/internal/entities"
)

// AuthCommand stores or clears the access token the cloud providers use.
type AuthCommand struct {
	Token        string
	Source       string
	AccountID    string
	Clear        bool
	DatabasePath string
}

func NewAuthCommand() *AuthCommand {
	return &AuthCommand{}
}

func (cmd *AuthCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("auth", flag.ExitOnError)

	fs.StringVar(&cmd.Token, "token", "", "Access token for the backup backends")
	fs.StringVar(&cmd.Source, "source", string(entities.AccountSourceGoogle), "Account source: google, mail, or anonymous")
	fs.StringVar(&cmd.AccountID, "account", "", "Account identifier the token belongs to")
	fs.BoolVar(&cmd.Clear, "clear", false, "Remove the stored token for the given source and account")
	fs.StringVar(&cmd.DatabasePath, "db", config.DefaultDatabasePath, "Path to the library database file")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s auth -token <token> -account <id> [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Store the access token used by the cloud backup providers.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return err
	}
	if cmd.Clear {
		if cmd.AccountID == "" {
			return fmt.Errorf("-clear requires -account")
		}
		return nil
	}
	if cmd.Token == "" || cmd.AccountID == "" {
		return fmt.Errorf("required flags -token and -account not provided")
	}
	return nil
}

func (cmd *AuthCommand) Run() error {
	ctx := context.Background()

	app, err := NewApp(ctx, cmd.DatabasePath)
	if err != nil {
		return err
	}
	defer app.Close(ctx)

	store := auth.NewTokenStore(app.Database.DB)
	source := entities.AccountSource(cmd.Source)

	if cmd.Clear {
		if err := store.DeleteToken(source, cmd.AccountID); err != nil {
			return fmt.Errorf("failed to remove token: %w", err)
		}
		fmt.Printf("Removed token for %s account %s\n", source, cmd.AccountID)
		return nil
	}

	now := time.Now()
	token := &entities.AuthToken{
		Source:      source,
		AccountID:   cmd.AccountID,
		AccessToken: cmd.Token,
		TokenType:   "Bearer",
		LastUsedAt:  &now,
	}
	if err := store.SaveToken(token); err != nil {
		return fmt.Errorf("failed to store token: %w", err)
	}
	fmt.Printf("Stored token for %s account %s\n", source, cmd.AccountID)
	return nil
}
