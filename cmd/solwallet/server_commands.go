package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/urfave/cli/v2"
)

func healthCommand() *cli.Command {
	return &cli.Command{
		Name:  "health",
		Usage: "Check server health",
		Flags: []cli.Flag{
			&cli.DurationFlag{
				Name:  "timeout",
				Usage: "Request timeout",
				Value: 5 * time.Second,
			},
		},
		Action: func(c *cli.Context) error {
			serverURL := c.String("server-url")
			if serverURL == "" {
				return fmt.Errorf("server-url is required (set SERVER_URL env var or use --server-url)")
			}

			ctx, cancel := context.WithTimeout(c.Context, c.Duration("timeout"))
			defer cancel()

			if err := newClient(c).Health(ctx); err != nil {
				return fmt.Errorf("health check failed: %w", err)
			}

			return output(c, map[string]string{"status": "healthy", "url": serverURL}, func(w io.Writer) error {
				printSuccess(w, "Server is healthy")
				fmt.Fprintf(w, "  URL: %s\n", serverURL)
				return nil
			})
		},
	}
}

func versionCommand() *cli.Command {
	return &cli.Command{
		Name:  "version",
		Usage: "Show CLI and server version information",
		Action: func(c *cli.Context) error {
			serverVersion, err := newClient(c).Version(c.Context)
			if err != nil {
				serverVersion = "unavailable (" + err.Error() + ")"
			}

			info := map[string]string{
				"version": version,
				"commit":  commit,
				"built":   date,
				"server":  serverVersion,
			}
			return output(c, info, func(w io.Writer) error {
				fmt.Fprintf(w, "solwallet CLI\n")
				fmt.Fprintf(w, "  Version: %s\n", version)
				fmt.Fprintf(w, "  Commit:  %s\n", commit)
				fmt.Fprintf(w, "  Built:   %s\n", date)
				fmt.Fprintf(w, "  Server:  %s\n", serverVersion)
				return nil
			})
		},
	}
}
