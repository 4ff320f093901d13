package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/alecthomas/kong"
	"github.com/joho/godotenv"
)

// Globals are flags shared by every subcommand.
type Globals struct {
	DB  string `short:"d" default:"nalog.sqlite3" env:"NALOG_DB" help:"SQLite database path."`
	Log string `short:"l" env:"NALOG_LOG" help:"Also write logs to this file."`
}

// CLI is the root command.
type CLI struct {
	Globals

	Serve ServeCmd `cmd:"" default:"withargs" help:"Run the HTTP API (creates the database on first run)."`
	Init  InitCmd  `cmd:"" help:"Create a new database with an admin account."`
}

func main() {
	// A missing .env is fine; anything else is worth knowing about.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "error: loading .env: %v\n", err)
		os.Exit(1)
	}

	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("nalog"),
		kong.Description("Order and demo approval workflow for warehouse inventory."),
		kong.UsageOnError(),
	)

	closeLog, err := setupLogger(cli.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	if closeLog != nil {
		defer closeLog()
	}

	if err := ctx.Run(&cli.Globals); err != nil {
		ctx.Errorf("%v", err)
		if closeLog != nil {
			closeLog()
		}
		os.Exit(1)
	}
}
