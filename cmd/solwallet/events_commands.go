package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	natspkg "github.com/brojonat/solwallet/service/nats"
	"github.com/brojonat/solwallet/service/wallet"
)

// subscribeCommand streams wallet events from NATS JetStream.
func subscribeCommand() *cli.Command {
	return &cli.Command{
		Name:      "subscribe",
		Usage:     "Stream transfer and airdrop events",
		ArgsUsage: "[wallet_address]",
		Description: `Subscribe to wallet events published to NATS JetStream.

Events are published to the subject wallet.{address}. Without an address all
wallets are streamed.

Example:
  solwallet events subscribe 7xKXtg2CW87d97TXJSDpbD5jBkheTqA83TZRuJosgAsU --json`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "durable",
				Usage: "Durable consumer name (survives restarts)",
			},
			&cli.BoolFlag{
				Name:  "from-start",
				Usage: "Replay retained events before streaming new ones",
			},
		},
		Action: func(c *cli.Context) error {
			opts := natspkg.SubscribeOptions{
				Address:   c.Args().Get(0),
				Durable:   c.String("durable"),
				FromStart: c.Bool("from-start"),
			}

			ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
			defer stop()

			logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
			w := c.App.Writer
			jsonOutput := c.Bool("json")

			if !jsonOutput {
				fmt.Fprintf(os.Stderr, "Streaming wallet events from %s (Ctrl+C to stop)...\n", c.String("nats-url"))
			}
			return subscribe(ctx, c.String("nats-url"), opts, logger, func(e *natspkg.WalletEvent) {
				if jsonOutput {
					printJSON(w, e)
					return
				}
				printEvent(w, e)
			})
		},
	}
}

// subscribe is swapped in tests.
var subscribe = func(ctx context.Context, natsURL string, opts natspkg.SubscribeOptions, logger *slog.Logger, handle func(*natspkg.WalletEvent)) error {
	return natspkg.Subscribe(ctx, natsURL, opts, logger, handle)
}

func printEvent(w io.Writer, e *natspkg.WalletEvent) {
	line := fmt.Sprintf("%s  %-18s %s  %v", e.OccurredAt.Local().Format("15:04:05"), e.Kind, wallet.FormatAddress(e.Address), e.Amount)
	if e.Recipient != "" {
		line += " -> " + wallet.FormatAddress(e.Recipient)
	}
	if e.Signature != "" {
		line += "  " + wallet.FormatAddress(e.Signature)
	}
	if e.Error != "" {
		printWarning(w, line+"  "+e.Error)
		return
	}
	fmt.Fprintln(w, line)
}
