package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const DefaultChannel = "storefront:events"

// RedisRelay carries events over a redis pub/sub channel.
type RedisRelay struct {
	client  *redis.Client
	channel string
	log     zerolog.Logger
}

func NewRedisRelay(client *redis.Client, channel string, log zerolog.Logger) *RedisRelay {
	if channel == "" {
		channel = DefaultChannel
	}
	return &RedisRelay{client: client, channel: channel, log: log}
}

func (r *RedisRelay) Publish(ctx context.Context, ev Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event failed: %w", err)
	}
	if err := r.client.Publish(ctx, r.channel, payload).Err(); err != nil {
		return fmt.Errorf("redis publish failed: %w", err)
	}
	return nil
}

func (r *RedisRelay) Listen(ctx context.Context, fn func(Event)) error {
	sub := r.client.Subscribe(ctx, r.channel)
	defer sub.Close()

	// subscription confirmed before consuming
	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("redis subscribe failed: %w", err)
	}

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var ev Event
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				r.log.Warn().Err(err).Str("channel", r.channel).Msg("dropping malformed event")
				continue
			}
			fn(ev)
		}
	}
}
