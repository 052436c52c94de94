package cmd

import (
	"context"
	"fmt"
	"strconv"

	"github.com/k0kubun/pp"
	"github.com/urfave/cli/v3"

	"podfed/internal/cmd/flags"
	"podfed/internal/podcastindex"
)

var episodesLimit = &cli.IntFlag{
	Name:  "episodes",
	Usage: "How many recent episodes to print",
	Value: 5,
}

var podcastCmd = &cli.Command{
	Name:      "podcast",
	Usage:     "Print what the bridge knows about a podcast",
	ArgsUsage: "<podcast id>",
	Flags: []cli.Flag{
		flags.PodcastIndexKey,
		flags.PodcastIndexSecret,
		flags.PodcastIndexURL,
		flags.UserAgent,
		flags.HTTPTimeout,
		episodesLimit,
	},
	Action: func(ctx context.Context, c *cli.Command) error {
		id, err := strconv.ParseUint(c.Args().First(), 10, 64)
		if err != nil || id == 0 {
			return fmt.Errorf("invalid podcast id %q", c.Args().First())
		}

		cfg, logger, err := parseConfig(c)
		if err != nil {
			return err
		}

		metadata := &podcastindex.Metadata{Logger: logger, Config: cfg}
		if err := metadata.Init(ctx); err != nil {
			return err
		}
		defer metadata.Shutdown(ctx) //nolint:errcheck

		feed, err := metadata.GetPodcast(ctx, id)
		if err != nil {
			return err
		}
		pp.Println(feed)

		episodes, err := metadata.GetEpisodes(ctx, id, int(c.Int(episodesLimit.Name)))
		if err != nil {
			return err
		}
		pp.Println(episodes)

		return nil
	},
}
