package cmd

import (
	"context"
	"fmt"
	"strconv"

	"github.com/urfave/cli/v3"
	"github.com/zhulik/pal"

	"podfed/internal/cmd/flags"
	"podfed/internal/config"
	"podfed/internal/core"
	"podfed/internal/persistence"
)

func migrationServices(runner pal.ServiceImpl) func(*config.Config) ([]pal.ServiceImpl, error) {
	return func(*config.Config) ([]pal.ServiceImpl, error) {
		return []pal.ServiceImpl{
			pal.Provide[core.DB, persistence.DB](),
			pal.Provide[core.Migrator, persistence.Migrator](),
			runner,
		}, nil
	}
}

var migrateCmd = &cli.Command{
	Name:  "migrate",
	Usage: "Migrate the database schema",
	Flags: []cli.Flag{
		flags.DatabaseURL,
	},
	Commands: []*cli.Command{
		{
			Name:  "up",
			Usage: "Apply every pending migration",
			Action: func(ctx context.Context, c *cli.Command) error {
				return run(ctx, c, migrationServices(
					pal.Provide[*persistence.MigrationUpRunner, persistence.MigrationUpRunner](),
				))
			},
		},
		{
			Name:  "down",
			Usage: "Revert every migration",
			Action: func(ctx context.Context, c *cli.Command) error {
				return run(ctx, c, migrationServices(
					pal.Provide[*persistence.MigrationDownRunner, persistence.MigrationDownRunner](),
				))
			},
		},
		{
			Name:      "to",
			Usage:     "Migrate up or down to the given version",
			ArgsUsage: "<version>",
			Action: func(ctx context.Context, c *cli.Command) error {
				version, err := strconv.ParseUint(c.Args().First(), 10, 64)
				if err != nil {
					return fmt.Errorf("invalid version %q: %w", c.Args().First(), err)
				}

				return run(ctx, c, func(cfg *config.Config) ([]pal.ServiceImpl, error) {
					services, err := migrationServices(
						pal.Provide[*persistence.MigrationToRunner, persistence.MigrationToRunner](),
					)(cfg)
					if err != nil {
						return nil, err
					}
					return append(services,
						pal.ProvideConst[*persistence.MigrationVersion](&persistence.MigrationVersion{Value: uint(version)}),
					), nil
				})
			},
		},
	},
}
