package redisclient

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// wakeChannel is the pub/sub channel used to nudge idle workers after an
// enqueue, cutting poll latency. Delivery is best effort; polling is the
// source of truth.
const wakeChannel = "authhub:jobs:wake"

type Client struct {
	redisdb *redis.Client
}

type Config struct {
	Addr     string
	Password string
	DB       int
}

func New(cfg Config) *Client {
	redisdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})

	return &Client{redisdb: redisdb}
}

// this ping function checks redis connectivity

func (c *Client) Ping(ctx context.Context) error {
	return c.redisdb.Ping(ctx).Err()
}

// this closes the client

func (c *Client) Close() error {
	return c.redisdb.Close()
}

// Wake publishes a nudge for any listening worker. Failure is ignorable:
// the worker still polls.
func (c *Client) Wake(ctx context.Context) error {
	return c.redisdb.Publish(ctx, wakeChannel, "1").Err()
}

// Listen subscribes to the wake channel and returns a receive channel plus
// a stop function. The caller owns the lifecycle.
func (c *Client) Listen(ctx context.Context) (<-chan struct{}, func()) {
	sub := c.redisdb.Subscribe(ctx, wakeChannel)
	out := make(chan struct{}, 1)

	go func() {
		for range sub.Channel() {
			select {
			case out <- struct{}{}:
			default:
				// a pending wake-up is already queued
			}
		}
		close(out)
	}()

	return out, func() { _ = sub.Close() }
}
