package source

import (
	"context"
	"fmt"

	"github.com/nats-io/nats.go"

	"tweetarchive/internal/config"
	"tweetarchive/internal/logging"
)

// NATS subscribes to a core NATS subject. Core NATS has no redelivery, so
// Ack and Nack are no-ops.
type NATS struct {
	nc  *nats.Conn
	cfg config.NATSConfig
	sub *nats.Subscription
}

func ConnectNATS(cfg config.NATSConfig) (*NATS, error) {
	if cfg.Subject == "" {
		return nil, fmt.Errorf("nats subject is empty")
	}
	url := cfg.URL
	if url == "" {
		url = nats.DefaultURL
	}
	nc, err := nats.Connect(url, nats.Name("tweetarchive"))
	if err != nil {
		return nil, fmt.Errorf("could not connect to NATS: %w", err)
	}
	logging.Info("nats_connected", map[string]any{"url": url, "subject": cfg.Subject})
	return &NATS{nc: nc, cfg: cfg}, nil
}

func (n *NATS) Deliveries(ctx context.Context) (<-chan Delivery, error) {
	msgs := make(chan *nats.Msg, 256)
	var err error
	if n.cfg.QueueGroup != "" {
		n.sub, err = n.nc.ChanQueueSubscribe(n.cfg.Subject, n.cfg.QueueGroup, msgs)
	} else {
		n.sub, err = n.nc.ChanSubscribe(n.cfg.Subject, msgs)
	}
	if err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", n.cfg.Subject, err)
	}
	out := make(chan Delivery)
	go func() {
		defer close(out)
		defer n.sub.Unsubscribe()
		for {
			select {
			case <-ctx.Done():
				return
			case m := <-msgs:
				select {
				case out <- Delivery{Body: m.Data, Ack: noop, Nack: noopNack}:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

// Err is always nil; the connection reconnects on its own.
func (n *NATS) Err() error { return nil }

func (n *NATS) Close() error {
	n.nc.Close()
	return nil
}
