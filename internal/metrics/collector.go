package metrics

import (
	"context"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"gorm.io/gorm/schema"

	"podfed/internal/core"
)

var (
	tableCount = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "podfed_table_count",
		Help: "Record count for a table.",
	}, []string{"table"})
)

const collectInterval = 15 * time.Second

// Collector periodically publishes row counts of the bridge's tables.
type Collector struct {
	Logger *slog.Logger
	DB     core.DB
}

func (c *Collector) Init(_ context.Context) error {
	c.Logger = c.Logger.With("component", "metrics.Collector")
	return nil
}

func (c *Collector) Run(ctx context.Context) error {
	ticker := time.NewTicker(collectInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			c.Collect(ctx)
		}
	}
}

func (c *Collector) Collect(ctx context.Context) {
	for _, model := range core.Models() {
		tabler, ok := model.(schema.Tabler)
		if !ok {
			continue
		}
		if err := c.collectTableCount(ctx, tabler); err != nil {
			c.Logger.Warn("Failed to count table", "table", tabler.TableName(), "error", err)
		}
	}
}

func (c *Collector) collectTableCount(ctx context.Context, tabler schema.Tabler) error {
	var count int64
	err := c.DB.Model(tabler).WithContext(ctx).Count(&count).Error
	if err != nil {
		return err
	}
	tableCount.WithLabelValues(tabler.TableName()).Set(float64(count))
	return nil
}
