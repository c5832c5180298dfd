package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/brojonat/solwallet/client"
	"github.com/brojonat/solwallet/service/wallet"
)

func transferCommand() *cli.Command {
	return &cli.Command{
		Name:  "transfer",
		Usage: "Prepare an unsigned transfer for a passkey signer",
		Description: `Assemble an unsigned SOL or SPL token transfer.

The output contains the base64 wire transaction (zeroed signatures) and the
base64 message the sender must sign.

Example:
  solwallet transfer --from SENDER --to RECIPIENT --amount 0.5
  solwallet transfer --from SENDER --to RECIPIENT --amount 10 --mint MINT`,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "from", Usage: "Sender (fee payer) address", Required: true},
			&cli.StringFlag{Name: "to", Usage: "Recipient address", Required: true},
			&cli.Float64Flag{Name: "amount", Usage: "Amount in SOL or token units", Required: true},
			&cli.StringFlag{Name: "mint", Usage: "Token mint; omit for SOL"},
		},
		Action: func(c *cli.Context) error {
			req := wallet.TransferRequest{
				From:   c.String("from"),
				To:     c.String("to"),
				Amount: c.Float64("amount"),
				Mint:   c.String("mint"),
			}

			prepared, err := newClient(c).PrepareTransfer(c.Context, req)
			if err != nil {
				return fmt.Errorf("failed to prepare transfer: %w", err)
			}

			return output(c, prepared, func(w io.Writer) error {
				printSuccess(w, "Transfer prepared (%s)", prepared.Kind)
				fmt.Fprintf(w, "  From:       %s\n", prepared.From)
				fmt.Fprintf(w, "  To:         %s\n", prepared.To)
				fmt.Fprintf(w, "  Amount:     %v (%d base units)\n", prepared.Amount, prepared.BaseUnits)
				fmt.Fprintf(w, "  Blockhash:  %s\n", prepared.Blockhash)
				if prepared.CreatesRecipientAccount {
					fmt.Fprintf(w, "  Creates recipient token account %s\n", prepared.RecipientTokenAccount)
				}
				fmt.Fprintf(w, "  Message:    %s\n", prepared.Message)
				fmt.Fprintf(w, "  Transaction:\n%s\n", prepared.Transaction)
				return nil
			})
		},
	}
}

func airdropCommand() *cli.Command {
	return &cli.Command{
		Name:      "airdrop",
		Usage:     "Request devnet SOL for a wallet",
		ArgsUsage: "WALLET_ADDRESS",
		Flags: []cli.Flag{
			&cli.Float64Flag{
				Name:  "sol",
				Value: 1,
				Usage: "Amount of SOL to request",
			},
			&cli.BoolFlag{
				Name:  "wait",
				Usage: "Poll a durable airdrop until it finishes",
			},
			&cli.DurationFlag{
				Name:  "timeout",
				Value: 2 * time.Minute,
				Usage: "How long --wait polls",
			},
		},
		Subcommands: []*cli.Command{
			airdropStatusCommand(),
		},
		Action: func(c *cli.Context) error {
			address, err := requireAddress(c)
			if err != nil {
				return err
			}

			cl := newClient(c)
			resp, err := cl.Airdrop(c.Context, address, c.Float64("sol"))
			if err != nil {
				return fmt.Errorf("airdrop failed: %w", err)
			}

			if resp.Accepted != nil && c.Bool("wait") {
				ctx, cancel := context.WithTimeout(c.Context, c.Duration("timeout"))
				defer cancel()
				status, err := waitForAirdrop(ctx, cl, resp.Accepted.WorkflowID, 2*time.Second)
				if err != nil {
					return err
				}
				return printAirdropStatus(c, status)
			}

			if resp.Accepted != nil {
				return output(c, resp.Accepted, func(w io.Writer) error {
					printSuccess(w, "Airdrop started")
					fmt.Fprintf(w, "  Workflow: %s\n", resp.Accepted.WorkflowID)
					fmt.Fprintf(w, "  Check with: solwallet airdrop status %s\n", resp.Accepted.WorkflowID)
					return nil
				})
			}
			return output(c, resp.Result, func(w io.Writer) error {
				printAirdropResult(w, resp.Result)
				return nil
			})
		},
	}
}

func airdropStatusCommand() *cli.Command {
	return &cli.Command{
		Name:      "status",
		Usage:     "Show the state of a durable airdrop",
		ArgsUsage: "WORKFLOW_ID",
		Action: func(c *cli.Context) error {
			if c.NArg() < 1 {
				return fmt.Errorf("workflow ID is required")
			}
			status, err := newClient(c).AirdropStatus(c.Context, c.Args().Get(0))
			if err != nil {
				return fmt.Errorf("failed to get airdrop status: %w", err)
			}
			return printAirdropStatus(c, status)
		},
	}
}

// waitForAirdrop polls until the workflow leaves the running state. When ctx
// ends first, the last status seen is returned alongside ctx.Err().
func waitForAirdrop(ctx context.Context, cl *client.Client, workflowID string, interval time.Duration) (*client.AirdropStatus, error) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var last *client.AirdropStatus
	for {
		if ctx.Err() != nil {
			return last, fmt.Errorf("airdrop %s still running: %w", workflowID, ctx.Err())
		}
		status, err := cl.AirdropStatus(ctx, workflowID)
		if err != nil {
			if ctx.Err() != nil {
				return last, fmt.Errorf("airdrop %s still running: %w", workflowID, ctx.Err())
			}
			return last, fmt.Errorf("failed to get airdrop status: %w", err)
		}
		last = status
		if status.Status != "running" {
			return status, nil
		}
		select {
		case <-ctx.Done():
			return last, fmt.Errorf("airdrop %s still running: %w", workflowID, ctx.Err())
		case <-ticker.C:
		}
	}
}

func printAirdropStatus(c *cli.Context, status *client.AirdropStatus) error {
	return output(c, status, func(w io.Writer) error {
		fmt.Fprintf(w, "Workflow: %s\n", status.WorkflowID)
		fmt.Fprintf(w, "Status:   %s\n", status.Status)
		if status.Error != "" {
			printWarning(w, status.Error)
		}
		if status.Result != nil {
			printAirdropResult(w, status.Result)
		}
		return nil
	})
}

func printAirdropResult(w io.Writer, r *wallet.AirdropResult) {
	if r.Error != "" {
		printWarning(w, fmt.Sprintf("Airdrop %s: %s", r.Status, r.Error))
	} else {
		printSuccess(w, "Airdrop %s: %v SOL to %s", r.Status, r.SOL, wallet.FormatAddress(r.Address))
	}
	fmt.Fprintf(w, "  Signature: %s\n", r.Signature)
	if r.ExplorerURL != "" {
		fmt.Fprintf(w, "  Explorer:  %s\n", r.ExplorerURL)
	}
}
