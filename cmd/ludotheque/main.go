package main

import (
	"fmt"
	"os"

	"github.com/ludotheque/ludotheque/pkg/auth"
	"github.com/ludotheque/ludotheque/pkg/catalogsync"
	"github.com/ludotheque/ludotheque/pkg/config"
	"github.com/ludotheque/ludotheque/pkg/cursor"
	"github.com/ludotheque/ludotheque/pkg/database"
	"github.com/ludotheque/ludotheque/pkg/migrations"
	"github.com/ludotheque/ludotheque/pkg/models"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
	"github.com/segmentio/encoding/json"
	"github.com/urfave/cli/v2"
)

func main() {
	log := logger.New()

	cfg, err := config.New()
	if err != nil {
		log.Err(err).Fatal("config error")
	}

	db, err := database.New(cfg)
	if err != nil {
		log.Err(err).Fatal("database error")
	}
	defer db.Close()

	authService := auth.NewService(db, cfg.JWTSecret)

	app := &cli.App{
		Name:  "ludotheque",
		Usage: "administrative commands",
		Before: func(c *cli.Context) error {
			_, err := migrations.BringUpToDate(c.Context, db)
			return errors.WithStack(err)
		},
		Commands: []*cli.Command{
			{
				Name:  "sync-catalog",
				Usage: "run one catalog sync in the foreground",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "force",
						Usage: "ignore the minimum interval since the last run",
					},
				},
				Action: func(c *cli.Context) error {
					// A separate process can't see the API's in-memory lock, so
					// don't run this while the API's scheduler is syncing.
					syncer := catalogsync.NewFromConfig(cfg, db, cursor.NewLocker())
					res, err := syncer.Run(c.Context, c.Bool("force"), catalogsync.NewLogger(log))
					if res != nil {
						out, merr := json.MarshalIndent(res, "", "  ")
						if merr != nil {
							return errors.WithStack(merr)
						}
						fmt.Println(string(out))
					}
					return err
				},
			},
			{
				Name:  "users",
				Usage: "manage library owners",
				Subcommands: []*cli.Command{
					{
						Name:      "create",
						Usage:     "create a user and print a bearer token",
						ArgsUsage: "<username>",
						Action: func(c *cli.Context) error {
							user, err := authService.CreateUser(c.Context, c.Args().First())
							if err != nil {
								return err
							}
							return printToken(authService, user)
						},
					},
					{
						Name:      "token",
						Usage:     "print a fresh bearer token for an existing user",
						ArgsUsage: "<username>",
						Action: func(c *cli.Context) error {
							user, err := authService.GetUserByUsername(c.Context, c.Args().First())
							if err != nil {
								return err
							}
							return printToken(authService, user)
						},
					},
				},
			},
		},
	}
	if err := app.Run(os.Args); err != nil {
		log.Err(err).Fatal("app run error")
	}
}

func printToken(authService *auth.Service, user *models.User) error {
	token, err := authService.GenerateToken(user)
	if err != nil {
		return err
	}
	fmt.Printf("user %d (%s)\n%s\n", user.ID, user.Username, token)
	return nil
}
