package main

import (
	"fmt"
	"os"
	"time"

	"seatbook/pkg/auth"
	"seatbook/pkg/config"
	"seatbook/pkg/logger"
	"seatbook/pkg/model"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"
)

// token mints bearer tokens for local development and integration tests.
func main() {
	_ = godotenv.Load()
	log := logger.New(logger.Config{Level: logger.INFO, Format: logger.TEXT, Output: os.Stderr, Service: "token"})

	app := &cli.App{
		Name:  "token",
		Usage: "sign a seatbook access token",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "subject", Aliases: []string{"s"}, Usage: "caller alias (token sub)", Required: true},
			&cli.StringFlag{Name: "user-id", Aliases: []string{"u"}, Usage: "user id (uid claim)"},
			&cli.StringFlag{Name: "role", Aliases: []string{"r"}, Usage: "USER or ADMIN", Value: model.RoleUser},
			&cli.DurationFlag{Name: "ttl", Usage: "token lifetime", Value: time.Hour},
			&cli.StringFlag{Name: "secret", Usage: "HS256 signing secret", EnvVars: []string{config.EnvJWTSecret}, Required: true},
			&cli.StringFlag{Name: "issuer", Usage: "token issuer", EnvVars: []string{config.EnvJWTIssuer}, Value: config.DefaultJWTIssuer},
		},
		Action: func(c *cli.Context) error {
			role := c.String("role")
			if role != model.RoleUser && role != model.RoleAdmin {
				return fmt.Errorf("role must be %s or %s, got %q", model.RoleUser, model.RoleAdmin, role)
			}
			token, err := auth.NewToken(c.String("secret"), c.String("issuer"), model.CallerIdentity{
				Subject: c.String("subject"),
				UserID:  c.String("user-id"),
				Role:    role,
			}, c.Duration("ttl"))
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(c.App.Writer, token)
			return err
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal("Failed to sign token", "error", err)
	}
}
