// Command optoken issues a signed token for the operator HTTP API.
package main

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/spec-kit/ticket-bot/internal/auth"
	"github.com/spec-kit/ticket-bot/internal/config"
)

func main() {
	if err := newApp(config.Load).Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp(load func() (*config.Config, error)) *cli.App {
	return &cli.App{
		Name:  "optoken",
		Usage: "issue a signed token for the operator HTTP API",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "operator",
				Usage:    "operator name recorded in the token subject",
				Required: true,
				EnvVars:  []string{"OPTOKEN_OPERATOR"},
			},
			&cli.StringSliceFlag{
				Name:  "scopes",
				Value: cli.NewStringSlice(auth.ScopeRead),
				Usage: "granted scopes (" + auth.ScopeRead + ", " + auth.ScopeWrite + "); repeat or comma separate",
			},
		},
		Action: func(c *cli.Context) error {
			cfg, err := load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			return issue(c.App.Writer, cfg, c.String("operator"), c.StringSlice("scopes"))
		},
	}
}

func issue(w io.Writer, cfg *config.Config, operator string, scopes []string) error {
	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes)
	token, expires, err := tokens.GenerateToken(operator, cleanScopes(scopes)...)
	if err != nil {
		return fmt.Errorf("failed to issue token: %w", err)
	}
	fmt.Fprintln(w, token)
	log.Printf("expires %s", expires.Format(time.RFC3339))
	return nil
}

func cleanScopes(raw []string) []string {
	var out []string
	for _, s := range raw {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
