package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

type Client struct {
	*redis.Client
}

func NewClient(redisURL string) (*Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return &Client{client}, nil
}

func (c *Client) Close() error {
	return c.Client.Close()
}

// TranscriptChannel is the pub/sub channel carrying live transcript events
// for one user's dashboard clients.
func TranscriptChannel(userID string) string {
	return fmt.Sprintf("transcripts:%s", userID)
}

// PendingIdentifierKey holds provider identifiers that arrived before the
// conversation session row existed, keyed by live connection.
func PendingIdentifierKey(connectionID string) string {
	return fmt.Sprintf("pending_ids:%s", connectionID)
}
