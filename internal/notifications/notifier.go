// Package notifications publishes moderation events into Redis channels so
// connected admin consoles can refresh their user lists in real time.
package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"runtime/debug"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// ModerationChannel carries batch-level moderation events.
	ModerationChannel = "admin:moderation"
)

// ModerationEvent is the payload published after a bulk commit lands.
type ModerationEvent struct {
	BatchID   string    `json:"batch_id"`
	ActorID   uint      `json:"actor_id"`
	UserIDs   []uint    `json:"user_ids"`
	Actions   int       `json:"actions"`
	Timestamp time.Time `json:"timestamp"`
}

// Notifier provides helpers to publish moderation events into Redis channels
type Notifier struct {
	rdb *redis.Client
}

// NewNotifier creates a new Notifier instance using the provided Redis client.
func NewNotifier(rdb *redis.Client) *Notifier {
	return &Notifier{rdb: rdb}
}

// PublishModeration sends a moderation event to the shared admin channel.
func (n *Notifier) PublishModeration(ctx context.Context, event ModerationEvent) error {
	if n.rdb == nil {
		return nil
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	return n.rdb.Publish(ctx, ModerationChannel, string(payload)).Err()
}

// UserNotice is the payload a moderated user receives on their own channel.
type UserNotice struct {
	BatchID   string    `json:"batch_id"`
	Timestamp time.Time `json:"timestamp"`
}

// PublishUser sends a notification payload to a user's channel, used when a
// moderated user should be told about the action taken against them.
func (n *Notifier) PublishUser(ctx context.Context, userID uint, payload string) error {
	if n.rdb == nil {
		return nil
	}
	return n.rdb.Publish(ctx, UserChannel(userID), payload).Err()
}

// NotifyModeratedUsers tells every user touched by the event that action
// was taken against their account.
func (n *Notifier) NotifyModeratedUsers(ctx context.Context, event ModerationEvent) error {
	if n.rdb == nil {
		return nil
	}
	payload, err := json.Marshal(UserNotice{
		BatchID:   event.BatchID,
		Timestamp: event.Timestamp,
	})
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	for _, userID := range event.UserIDs {
		if err := n.PublishUser(ctx, userID, string(payload)); err != nil {
			return err
		}
	}
	return nil
}

// StartModerationSubscriber subscribes to the moderation channel and calls
// onMessage for each incoming event.
func (n *Notifier) StartModerationSubscriber(
	ctx context.Context, onMessage func(channel string, payload string),
) error {
	if n.rdb == nil {
		return nil
	}
	sub := n.rdb.Subscribe(ctx, ModerationChannel)
	ch := sub.Channel()

	go func() {
		defer func() { _ = sub.Close() }()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				func() {
					defer func() {
						if r := recover(); r != nil {
							log.Printf("PANIC in ModerationSubscriber: %v\n%s", r, debug.Stack())
						}
					}()
					onMessage(msg.Channel, msg.Payload)
				}()
			}
		}
	}()

	return nil
}

// UserChannel derives the Redis channel name for a user.
func UserChannel(userID uint) string {
	return "notifications:user:" + strconv.FormatUint(uint64(userID), 10)
}
