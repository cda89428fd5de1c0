// cmd/trustctl/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v3"
	"gorm.io/gorm"

	"github.com/labtrust/trust-engine/internal/config"
	"github.com/labtrust/trust-engine/internal/database"
	"github.com/labtrust/trust-engine/internal/router"
)

var ErrUserRequired = errors.New("USER_ID argument required")

func main() {
	if err := run(); err != nil {
		logrus.WithError(err).Error("trustctl failed")
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	db, err := database.Initialize(cfg.Database)
	if err != nil {
		return err
	}
	defer database.Close(db)

	app := &cli.Command{
		Name:  "trustctl",
		Usage: "Trust engine maintenance tool",
		Commands: []*cli.Command{
			{
				Name:  "migrate",
				Usage: "Run schema migrations",
				Action: func(ctx context.Context, _ *cli.Command) error {
					return database.RunMigrations(db.WithContext(ctx))
				},
			},
			{
				Name:  "seed-badges",
				Usage: "Upsert the badge catalog",
				Action: func(ctx context.Context, _ *cli.Command) error {
					return database.SeedBadgeCatalog(db.WithContext(ctx))
				},
			},
			{
				Name:      "recompute-reputation",
				Usage:     "Recompute one user's reputation and SME status",
				ArgsUsage: "USER_ID",
				Action: withServices(db, cfg, func(ctx context.Context, c *cli.Command, svc *router.Services) error {
					userID := c.Args().First()
					if userID == "" {
						return ErrUserRequired
					}

					change, err := svc.Reputation.RecalculateReputation(ctx, userID)
					if err != nil {
						return err
					}
					if change == nil {
						logrus.WithField("user_id", userID).Warn("User not found")
						return nil
					}

					logrus.WithFields(logrus.Fields{
						"user_id":   userID,
						"old_score": change.OldScore,
						"new_score": change.NewScore,
						"is_sme":    change.IsSME,
					}).Info("Reputation recomputed")
					return nil
				}),
			},
			{
				Name:  "reconcile-reputation",
				Usage: "Recompute reputation for every user",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "batch-size",
						Value: 500,
						Usage: "Users per progress batch",
					},
				},
				Action: withServices(db, cfg, func(ctx context.Context, c *cli.Command, svc *router.Services) error {
					processed, err := svc.Reputation.ReconcileAll(ctx, int(c.Int("batch-size")))
					logrus.WithField("processed", processed).Info("Reputation reconcile finished")
					return err
				}),
			},
			{
				Name:  "evaluate-badges",
				Usage: "Evaluate badge criteria for every user",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:    "workers",
						Aliases: []string{"w"},
						Value:   4,
						Usage:   "Concurrent evaluations",
					},
				},
				Action: withServices(db, cfg, func(ctx context.Context, c *cli.Command, svc *router.Services) error {
					_, err := svc.Badges.EvaluateAll(ctx, int(c.Int("workers")))
					return err
				}),
			},
		},
	}

	return app.Run(context.Background(), os.Args)
}

func withServices(db *gorm.DB, cfg *config.Config, fn func(context.Context, *cli.Command, *router.Services) error) cli.ActionFunc {
	return func(ctx context.Context, c *cli.Command) error {
		svc, err := router.NewServices(db, cfg, nil)
		if err != nil {
			return err
		}
		return fn(ctx, c, svc)
	}
}
