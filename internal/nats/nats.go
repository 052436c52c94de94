// Package nats remembers which live items were announced, in a JetStream
// key-value bucket shared by every bridge process.
package nats

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	libnats "github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"podfed/internal/config"
)

const (
	bucket = "podfed"

	// ClaimTTL bounds how long a live item stays claimed.
	ClaimTTL = 24 * time.Hour
)

var ErrClaim = errors.New("live item claim failed")

// NATS claims keys with KeyValue.Create, which fails for existing keys. Without
// a configured URL it falls back to a process-local Memory.
type NATS struct {
	Logger *slog.Logger
	Config *config.Config

	js     jetstream.JetStream
	kv     jetstream.KeyValue
	memory *Memory
}

func (n *NATS) Init(ctx context.Context) error {
	n.Logger = n.Logger.With("component", "nats.NATS")

	if n.Config.NATSURL == "" {
		n.Logger.Warn("NATS URL is not set, live items are deduplicated in memory")
		n.memory = NewMemory(ClaimTTL, time.Now)
		return nil
	}

	nc, err := libnats.Connect(n.Config.NATSURL, libnats.Name(bucket))
	if err != nil {
		return err
	}

	js, err := jetstream.New(nc)
	if err != nil {
		return err
	}

	n.js = js

	if n.Config.NATSInit {
		if err := n.initNATS(ctx); err != nil {
			return err
		}
	}

	kv, err := js.KeyValue(ctx, bucket)
	if err != nil {
		return err
	}
	n.kv = kv

	return nil
}

func (n *NATS) HealthCheck(context.Context) error {
	if n.js == nil {
		return nil
	}
	_, err := n.js.Conn().RTT()
	return err
}

func (n *NATS) Shutdown(context.Context) error {
	if n.js == nil {
		return nil
	}
	return n.js.Conn().Drain()
}

func (n *NATS) Claim(ctx context.Context, key string) (bool, error) {
	if n.memory != nil {
		return n.memory.Claim(ctx, key)
	}

	_, err := n.kv.Create(ctx, kvKey(key), []byte(strconv.FormatInt(time.Now().Unix(), 10)))
	if errors.Is(err, jetstream.ErrKeyExists) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("%w: %w", ErrClaim, err)
	}

	return true, nil
}

func (n *NATS) initNATS(ctx context.Context) error {
	n.Logger.Info("Initializing NATS")

	_, err := n.js.CreateOrUpdateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket:      bucket,
		Description: "Announced live items",
		TTL:         ClaimTTL,
	})
	if err != nil {
		return err
	}
	n.Logger.Info("KeyValue created or updated", "name", bucket)

	return nil
}

// kvKey maps an arbitrary claim key onto the key alphabet JetStream accepts.
func kvKey(key string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(key))
}
