package realtime

import (
	"context"
	"encoding/json"
	"log"

	"github.com/redis/go-redis/v9"
)

// NewRedis creates a new Redis client
func NewRedis(addr, password string) *redis.Client {
	if addr == "" {
		addr = "localhost:6379"
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       0,
	})

	log.Printf("Redis client created (addr: %s)\n", addr)
	return rdb
}

// Bridge subscribes to the given channel and forwards each Envelope to the
// local hub. Run it in its own goroutine; it returns when ctx is cancelled.
func Bridge(ctx context.Context, rdb *redis.Client, hub *Hub, channel string) {
	sub := rdb.Subscribe(ctx, channel)
	defer sub.Close()

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-sub.Channel():
			if !ok {
				return
			}
			var env Envelope
			if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
				log.Printf("Error unmarshaling pubsub envelope: %v", err)
				continue
			}
			hub.SendToUser(env.UserID, env.Data)
		}
	}
}
