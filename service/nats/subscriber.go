package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// SubscribeOptions controls which events Subscribe delivers.
type SubscribeOptions struct {
	// Address limits events to one wallet; empty means all wallets.
	Address string
	// Durable names a consumer that survives restarts; empty means ephemeral.
	Durable string
	// FromStart replays retained events instead of only new ones.
	FromStart bool
}

// Subscribe streams wallet events to handle until ctx is done.
func Subscribe(ctx context.Context, natsURL string, opts SubscribeOptions, logger *slog.Logger, handle func(*WalletEvent)) error {
	nc, err := nats.Connect(natsURL, nats.Name("solwallet-subscriber"))
	if err != nil {
		return fmt.Errorf("failed to connect to NATS: %w", err)
	}
	defer nc.Close()

	js, err := jetstream.New(nc)
	if err != nil {
		return fmt.Errorf("failed to create JetStream context: %w", err)
	}

	subject := StreamSubjects
	if opts.Address != "" {
		subject = Subject(opts.Address)
	}

	cfg := jetstream.ConsumerConfig{
		FilterSubject: subject,
		AckPolicy:     jetstream.AckExplicitPolicy,
		DeliverPolicy: jetstream.DeliverNewPolicy,
	}
	if opts.FromStart {
		cfg.DeliverPolicy = jetstream.DeliverAllPolicy
	}
	if opts.Durable != "" {
		cfg.Durable = opts.Durable
		cfg.Name = opts.Durable
	}

	cons, err := js.CreateOrUpdateConsumer(ctx, StreamName, cfg)
	if err != nil {
		return fmt.Errorf("failed to create consumer: %w", err)
	}

	cc, err := cons.Consume(func(msg jetstream.Msg) {
		var event WalletEvent
		if err := json.Unmarshal(msg.Data(), &event); err != nil {
			logger.Warn("discarding malformed wallet event",
				"subject", msg.Subject(),
				"error", err,
			)
		} else {
			handle(&event)
		}
		if err := msg.Ack(); err != nil {
			logger.Warn("failed to ack wallet event", "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("failed to start consuming: %w", err)
	}
	defer cc.Stop()

	<-ctx.Done()
	return nil
}
