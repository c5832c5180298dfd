package main

import (
	"fmt"
	"io"
	"strconv"

	"github.com/pterm/pterm"
	"github.com/urfave/cli/v2"

	"github.com/brojonat/solwallet/service/wallet"
)

func balanceCommand() *cli.Command {
	return &cli.Command{
		Name:      "balance",
		Usage:     "Show the SOL balance of a wallet",
		ArgsUsage: "WALLET_ADDRESS",
		Action: func(c *cli.Context) error {
			address, err := requireAddress(c)
			if err != nil {
				return err
			}

			view, err := newClient(c).Balance(c.Context, address)
			if err != nil {
				return fmt.Errorf("failed to get balance: %w", err)
			}

			return output(c, view, func(w io.Writer) error {
				fmt.Fprintf(w, "Address: %s\n", view.Address)
				fmt.Fprintf(w, "Balance: %s SOL\n", wallet.FormatBalance(view.SOL, 4))
				printWarning(w, view.Error)
				return nil
			})
		},
	}
}

func tokensCommand() *cli.Command {
	return &cli.Command{
		Name:      "tokens",
		Usage:     "List the token holdings of a wallet",
		ArgsUsage: "WALLET_ADDRESS",
		Action: func(c *cli.Context) error {
			address, err := requireAddress(c)
			if err != nil {
				return err
			}

			view, err := newClient(c).Tokens(c.Context, address)
			if err != nil {
				return fmt.Errorf("failed to get tokens: %w", err)
			}

			return output(c, view, func(w io.Writer) error {
				printWarning(w, view.Error)
				if len(view.Tokens) == 0 {
					fmt.Fprintln(w, "No tokens found")
					return nil
				}
				data := pterm.TableData{{"Mint", "Amount", "Decimals", "Token Account"}}
				for _, t := range view.Tokens {
					data = append(data, []string{
						wallet.FormatAddress(t.Mint),
						wallet.FormatBalance(t.Amount, int(t.Decimals)),
						strconv.Itoa(int(t.Decimals)),
						wallet.FormatAddress(t.TokenAccount),
					})
				}
				return printTable(w, data)
			})
		},
	}
}

func assetsCommand() *cli.Command {
	return &cli.Command{
		Name:      "assets",
		Usage:     "List transferable assets, SOL first",
		ArgsUsage: "WALLET_ADDRESS",
		Action: func(c *cli.Context) error {
			address, err := requireAddress(c)
			if err != nil {
				return err
			}

			view, err := newClient(c).Assets(c.Context, address)
			if err != nil {
				return fmt.Errorf("failed to get assets: %w", err)
			}

			return output(c, view, func(w io.Writer) error {
				printWarning(w, view.Error)
				data := pterm.TableData{{"Symbol", "Name", "Amount", "Mint"}}
				for _, a := range view.Assets {
					data = append(data, []string{
						a.Symbol,
						a.Name,
						wallet.FormatBalance(a.Amount, int(a.Decimals)),
						wallet.FormatAddress(a.Mint),
					})
				}
				return printTable(w, data)
			})
		},
	}
}

func historyCommand() *cli.Command {
	return &cli.Command{
		Name:      "history",
		Aliases:   []string{"transactions", "txns"},
		Usage:     "List recent transactions of a wallet",
		ArgsUsage: "WALLET_ADDRESS",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "limit",
				Aliases: []string{"n"},
				Usage:   "Maximum number of transactions (server default when 0)",
			},
			&cli.StringSliceFlag{
				Name:  "jq",
				Usage: "jq filter each transaction must satisfy (repeatable, all must match)",
			},
		},
		Action: func(c *cli.Context) error {
			address, err := requireAddress(c)
			if err != nil {
				return err
			}
			codes, err := compileFilters(c.StringSlice("jq"))
			if err != nil {
				return err
			}

			view, err := newClient(c).History(c.Context, address, c.Int("limit"))
			if err != nil {
				return fmt.Errorf("failed to get history: %w", err)
			}
			view.Transactions, err = filterTransactions(codes, view.Transactions)
			if err != nil {
				return err
			}

			return output(c, view, func(w io.Writer) error {
				printWarning(w, view.Error)
				if len(view.Transactions) == 0 {
					fmt.Fprintln(w, "No transactions found")
					return nil
				}
				data := pterm.TableData{{"Signature", "Time", "Slot", "Amount", "From", "Status"}}
				for _, tx := range view.Transactions {
					from := "-"
					if tx.FromAddress != nil {
						from = wallet.FormatAddress(*tx.FromAddress)
					}
					data = append(data, []string{
						wallet.FormatAddress(tx.Signature),
						formatTime(tx.BlockTime),
						strconv.FormatUint(tx.Slot, 10),
						txAmount(tx),
						from,
						txStatus(tx),
					})
				}
				return printTable(w, data)
			})
		},
	}
}

func activityCommand() *cli.Command {
	return &cli.Command{
		Name:      "activity",
		Usage:     "List transfers and airdrops recorded for a wallet",
		ArgsUsage: "WALLET_ADDRESS",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "limit",
				Value: 50,
				Usage: "Maximum number of entries",
			},
			&cli.IntFlag{
				Name:  "offset",
				Usage: "Number of entries to skip",
			},
		},
		Action: func(c *cli.Context) error {
			address, err := requireAddress(c)
			if err != nil {
				return err
			}

			page, err := newClient(c).Activity(c.Context, address, c.Int("limit"), c.Int("offset"))
			if err != nil {
				return fmt.Errorf("failed to get activity: %w", err)
			}

			return output(c, page, func(w io.Writer) error {
				if len(page.Activities) == 0 {
					fmt.Fprintln(w, "No activity found")
					return nil
				}
				data := pterm.TableData{{"Created", "Kind", "Amount", "Recipient", "Status", "Signature"}}
				for _, a := range page.Activities {
					recipient, sig := "-", "-"
					if a.Recipient != nil {
						recipient = wallet.FormatAddress(*a.Recipient)
					}
					if a.Signature != nil {
						sig = wallet.FormatAddress(*a.Signature)
					}
					created := a.CreatedAt
					data = append(data, []string{
						formatTime(&created),
						a.Kind,
						wallet.FormatBalance(a.Amount, 4),
						recipient,
						a.Status,
						sig,
					})
				}
				return printTable(w, data)
			})
		},
	}
}
