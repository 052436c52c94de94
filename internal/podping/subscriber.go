// Package podping reads feed update notifications from a podping websocket
// relay.
package podping

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/gorilla/websocket"

	"podfed/internal/config"
	"podfed/internal/core"
	"podfed/internal/metrics"
	"podfed/pkg/async"
)

const (
	DefaultURL = "wss://api.livewire.io/ws/podping"

	messageTypePodping = "podping"
)

var (
	ErrConnect   = errors.New("podping connect failed")
	ErrStream    = errors.New("podping stream failed")
	ErrMalformed = errors.New("malformed podping message")
)

// message is a relay frame: a sequence number, a frame type and the podpings
// of one block.
type message struct {
	N int64  `json:"n"`
	T string `json:"t"`
	P []struct {
		I string       `json:"i"`
		P core.Podping `json:"p"`
	} `json:"p"`
}

// Decode returns the podpings carried by a relay frame. Frames of other types
// carry none.
func Decode(data []byte) ([]core.Podping, error) {
	var msg message
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
	}

	if msg.T != messageTypePodping {
		return nil, nil
	}

	podpings := make([]core.Podping, 0, len(msg.P))
	for _, p := range msg.P {
		podpings = append(podpings, p.P)
	}
	return podpings, nil
}

type Subscriber struct {
	Logger *slog.Logger
	Config *config.Config
}

func (s *Subscriber) Init(_ context.Context) error {
	s.Logger = s.Logger.With("component", "podping.Subscriber")
	return nil
}

func (s *Subscriber) url() string {
	if s.Config.PodpingURL != "" {
		return s.Config.PodpingURL
	}
	return DefaultURL
}

func (s *Subscriber) Subscribe(ctx context.Context) (<-chan async.Result[core.Podping], error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, s.url(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnect, err)
	}

	s.Logger.Info("Connected to podping stream", "url", s.url())

	// ReadMessage does not observe ctx.
	stop := context.AfterFunc(ctx, func() { conn.Close() })

	return async.Generator(ctx, func(ctx context.Context, yield async.Yielder[core.Podping]) error {
		defer conn.Close()
		defer stop()

		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				return fmt.Errorf("%w: %w", ErrStream, err)
			}

			podpings, err := Decode(data)
			if err != nil {
				s.Logger.Warn("Skipping podping message", "error", err)
				continue
			}

			for _, podping := range podpings {
				metrics.Podpings.WithLabelValues(podping.Reason).Inc()

				if !yield(podping) {
					return nil
				}
			}
		}
	}), nil
}
