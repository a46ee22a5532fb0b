package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/rueidis"
)

// RedisPublisher publishes JSON events on Redis pub/sub channels named after the topic.
type RedisPublisher struct {
	client rueidis.Client
	prefix string
}

func NewRedisPublisher(client rueidis.Client, channelPrefix string) *RedisPublisher {
	return &RedisPublisher{
		client: client,
		prefix: channelPrefix,
	}
}

func (r *RedisPublisher) Publish(ctx context.Context, topic string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode %s event: %w", topic, err)
	}

	cmd := r.client.B().Publish().Channel(r.prefix + topic).Message(string(data)).Build()
	if err := r.client.Do(ctx, cmd).Error(); err != nil {
		return fmt.Errorf("publish %s event: %w", topic, err)
	}
	return nil
}
