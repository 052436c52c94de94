package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"syscall"
	"time"

	"github.com/urfave/cli/v3"
	"github.com/zhulik/pal"
	"github.com/zhulik/pal/inspect"

	"podfed/internal/cmd/flags"
	"podfed/internal/config"
	"podfed/pkg/clicfg"
)

const VERSION = "0.1.0"

var cmd = &cli.Command{
	Name:    "podfed",
	Usage:   "podfed makes every podcast in the PodcastIndex followable from the fediverse",
	Version: VERSION,
	Flags: []cli.Flag{
		flags.LogLevel,
		flags.Inspect,
	},
	Commands: []*cli.Command{
		serveCmd,
		migrateCmd,
		podcastCmd,
	},
}

func Run() {
	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

// parseConfig reads the flags of c and its parents into a Config and sets up
// the process logger.
func parseConfig(c *cli.Command) (*config.Config, *slog.Logger, error) {
	cfg := &config.Config{}
	if err := clicfg.ParseFlags(c, cfg); err != nil {
		return nil, nil, err
	}

	logger, err := initLogger(cfg.LogLevel)
	if err != nil {
		return nil, nil, err
	}

	return cfg, logger, nil
}

// run starts the services built by build until SIGINT or SIGTERM, or until
// every runner returned.
func run(ctx context.Context, c *cli.Command, build func(cfg *config.Config) ([]pal.ServiceImpl, error)) error {
	cfg, logger, err := parseConfig(c)
	if err != nil {
		return err
	}

	services, err := build(cfg)
	if err != nil {
		return err
	}

	services = append(services,
		pal.ProvideConst[*slog.Logger](logger),
		pal.ProvideConst[*config.Config](cfg),
	)

	if c.Bool(flags.Inspect.Name) {
		services = append(services, inspect.Provide()...)
	}

	return pal.New(services...).
		InitTimeout(5*time.Second).
		HealthCheckTimeout(1*time.Second).
		ShutdownTimeout(10*time.Second).
		Run(ctx, syscall.SIGINT, syscall.SIGTERM)
}
