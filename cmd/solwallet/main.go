package main

import (
	"fmt"
	"log"
	"log/slog"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/brojonat/solwallet/client"
	"github.com/brojonat/solwallet/service/config"
)

var (
	// Version information (set via ldflags during build)
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	if err := config.LoadDotEnv(); err != nil {
		log.Fatal(err)
	}
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "solwallet",
		Usage: "Solana wallet API CLI",
		Description: `A command-line client for the solwallet API.

Query balances, tokens and history, prepare unsigned transfers, request devnet
airdrops and follow wallet activity events.`,
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		Commands: []*cli.Command{
			balanceCommand(),
			tokensCommand(),
			assetsCommand(),
			historyCommand(),
			transferCommand(),
			airdropCommand(),
			activityCommand(),
			{
				Name:  "events",
				Usage: "Wallet event stream commands",
				Subcommands: []*cli.Command{
					subscribeCommand(),
				},
			},
			{
				Name:  "server",
				Usage: "Server utility commands",
				Subcommands: []*cli.Command{
					healthCommand(),
					versionCommand(),
				},
			},
		},
		// Global flags available to all commands
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "server-url",
				Aliases: []string{"s"},
				Usage:   "solwallet API URL",
				EnvVars: []string{"SERVER_URL"},
				Value:   "http://localhost:8080",
			},
			&cli.StringFlag{
				Name:    "nats-url",
				Usage:   "NATS server URL",
				EnvVars: []string{"NATS_URL"},
				Value:   "nats://localhost:4222",
			},
			&cli.BoolFlag{
				Name:    "json",
				Aliases: []string{"j"},
				Usage:   "Output in JSON format",
			},
			&cli.BoolFlag{
				Name:  "verbose",
				Usage: "Log client requests to stderr",
			},
		},
	}
}

// newClient builds an API client from the global flags.
func newClient(c *cli.Context) *client.Client {
	level := slog.LevelError
	if c.Bool("verbose") {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	return client.NewClient(c.String("server-url"), nil, logger)
}

func requireAddress(c *cli.Context) (string, error) {
	if c.NArg() < 1 {
		return "", fmt.Errorf("wallet address is required")
	}
	return c.Args().Get(0), nil
}
