package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/hirepipe/interviewflow/backend"
)

const statusChannelPrefix = "interviewflow:status:"

type redisNotifier struct {
	rdb redis.UniversalClient
}

// NewRedisNotifier publishes status changes to a per-instance redis channel
// and to a shared firehose channel.
func NewRedisNotifier(rdb redis.UniversalClient) Notifier {
	return &redisNotifier{rdb: rdb}
}

func (n *redisNotifier) StatusChanged(ctx context.Context, snapshot *backend.StatusSnapshot) error {
	data, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("marshaling status snapshot: %w", err)
	}

	if err := n.rdb.Publish(ctx, statusChannelPrefix+snapshot.InstanceID, data).Err(); err != nil {
		return fmt.Errorf("publishing status snapshot: %w", err)
	}

	if err := n.rdb.Publish(ctx, statusChannelPrefix+"all", data).Err(); err != nil {
		return fmt.Errorf("publishing status snapshot: %w", err)
	}

	return nil
}
