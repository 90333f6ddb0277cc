// Package pubsub pushes notifications to live subscribers over redis channels.
package pubsub

import (
	"context"
	"encoding/json"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/trezcool/campusdesk/core"
	"github.com/trezcool/campusdesk/core/notification"
)

const channelPrefix = "notifications:"

// Channel is the redis channel a recipient's notifications are published on.
func Channel(recipientID string) string { return channelPrefix + recipientID }

type RedisPublisher struct {
	client *redis.Client
}

var _ notification.Publisher = (*RedisPublisher)(nil)

func NewRedisPublisher(client *redis.Client) *RedisPublisher {
	return &RedisPublisher{client: client}
}

// NewRedisClient returns nil when no redis address is configured.
func NewRedisClient(conf *core.Config) *redis.Client {
	if conf.Redis.Address == "" {
		return nil
	}
	return redis.NewClient(&redis.Options{
		Addr:     conf.Redis.Address,
		Password: conf.Redis.Password,
	})
}

func (p *RedisPublisher) Publish(ctx context.Context, notif notification.Notification) error {
	payload, err := json.Marshal(notif)
	if err != nil {
		return errors.Wrap(err, "encoding notification")
	}
	if err := p.client.Publish(ctx, Channel(notif.RecipientID), payload).Err(); err != nil {
		return errors.Wrap(err, "publishing notification")
	}
	return nil
}

// Subscribe streams the notifications published for recipientID until ctx is done.
func (p *RedisPublisher) Subscribe(ctx context.Context, recipientID string) (<-chan notification.Notification, error) {
	sub := p.client.Subscribe(ctx, Channel(recipientID))
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, errors.Wrap(err, "subscribing to notifications")
	}

	out := make(chan notification.Notification)
	go func() {
		defer close(out)
		defer func() { _ = sub.Close() }()

		msgs := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				var notif notification.Notification
				if err := json.Unmarshal([]byte(msg.Payload), &notif); err != nil {
					continue
				}
				select {
				case out <- notif:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}
