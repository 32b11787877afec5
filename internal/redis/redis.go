package redis

import (
	"context"

	"github.com/redis/go-redis/v9"
)

// Connect establishes a connection to the shared directory store
func Connect(directoryURL string) (*redis.Client, error) {
	opt, err := redis.ParseURL(directoryURL)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(opt)

	// Verify connection
	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return client, nil
}
