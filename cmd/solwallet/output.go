package main

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/itchyny/gojq"
	"github.com/pterm/pterm"
	"github.com/urfave/cli/v2"

	"github.com/brojonat/solwallet/service/solana"
	"github.com/brojonat/solwallet/service/wallet"
)

// printJSON writes v as indented JSON.
func printJSON(w io.Writer, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

// output writes v as JSON with --json, otherwise calls human.
func output(c *cli.Context, v interface{}, human func(w io.Writer) error) error {
	if c.Bool("json") {
		return printJSON(c.App.Writer, v)
	}
	return human(c.App.Writer)
}

func printTable(w io.Writer, data pterm.TableData) error {
	table, err := pterm.DefaultTable.WithHasHeader().WithData(data).Srender()
	if err != nil {
		return fmt.Errorf("failed to render table: %w", err)
	}
	_, err = fmt.Fprintln(w, table)
	return err
}

func printWarning(w io.Writer, msg string) {
	if msg != "" {
		fmt.Fprintln(w, pterm.Warning.Sprint(msg))
	}
}

func printSuccess(w io.Writer, format string, args ...interface{}) {
	fmt.Fprintln(w, pterm.Success.Sprintf(format, args...))
}

func formatTime(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04:05")
}

func txStatus(tx *solana.Transaction) string {
	if tx.Err != nil {
		return "failed"
	}
	return "ok"
}

func txAmount(tx *solana.Transaction) string {
	if tx.TokenMint == nil {
		return wallet.FormatBalance(float64(tx.Amount)/1e9, 4) + " SOL"
	}
	return fmt.Sprintf("%d (%s)", tx.Amount, wallet.FormatAddress(*tx.TokenMint))
}

// compileFilters parses and compiles jq expressions.
func compileFilters(filters []string) ([]*gojq.Code, error) {
	codes := make([]*gojq.Code, len(filters))
	for i, filter := range filters {
		query, err := gojq.Parse(filter)
		if err != nil {
			return nil, fmt.Errorf("failed to parse jq filter %q: %w", filter, err)
		}
		codes[i], err = gojq.Compile(query)
		if err != nil {
			return nil, fmt.Errorf("failed to compile jq filter %q: %w", filter, err)
		}
	}
	return codes, nil
}

// matchesAll reports whether every filter yields a truthy first result for v.
// v is round-tripped through JSON so the filters see the wire shape.
func matchesAll(codes []*gojq.Code, v interface{}) (bool, error) {
	if len(codes) == 0 {
		return true, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return false, err
	}
	var input interface{}
	if err := json.Unmarshal(data, &input); err != nil {
		return false, err
	}

	for _, code := range codes {
		iter := code.Run(input)
		result, ok := iter.Next()
		if !ok {
			return false, nil
		}
		if err, isErr := result.(error); isErr {
			return false, err
		}
		if !isTruthy(result) {
			return false, nil
		}
	}
	return true, nil
}

// filterTransactions keeps the transactions every filter matches.
func filterTransactions(codes []*gojq.Code, txns []*solana.Transaction) ([]*solana.Transaction, error) {
	out := make([]*solana.Transaction, 0, len(txns))
	for _, tx := range txns {
		ok, err := matchesAll(codes, tx)
		if err != nil {
			return nil, fmt.Errorf("jq filter failed on %s: %w", tx.Signature, err)
		}
		if ok {
			out = append(out, tx)
		}
	}
	return out, nil
}

// isTruthy checks if a jq result value is truthy.
// In jq, false and null are falsy, everything else is truthy.
func isTruthy(v interface{}) bool {
	if v == nil {
		return false
	}
	if b, ok := v.(bool); ok {
		return b
	}
	return true
}
