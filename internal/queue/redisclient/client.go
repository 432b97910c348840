package redisclient

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrEmpty means the queue had nothing to hand out before the poll timeout.
var ErrEmpty = errors.New("queue empty")

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
		ReadTimeout:  0, // blocking pops manage their own deadline
		WriteTimeout: 2 * time.Second,
	})

	return &Client{redisdb: redisdb}
}

// this ping function checks redis connectivity

func (c *Client) Ping(ctx context.Context) error {
	return c.redisdb.Ping(ctx).Err()
}

func (c *Client) Close() error {
	return c.redisdb.Close()
}

// Enqueue pushes a raw payload onto the named list queue.
func (c *Client) Enqueue(ctx context.Context, queue string, raw []byte) error {
	return c.redisdb.LPush(ctx, queue, raw).Err()
}

// Dequeue blocks up to timeout for the next payload. ErrEmpty on timeout.
func (c *Client) Dequeue(ctx context.Context, queue string, timeout time.Duration) ([]byte, error) {
	res, err := c.redisdb.BRPop(ctx, timeout, queue).Result()

	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrEmpty
		}
		return nil, err
	}

	// BRPOP returns [key, value]
	if len(res) != 2 {
		return nil, ErrEmpty
	}

	return []byte(res[1]), nil
}

// Raw exposes the underlying client for anything the wrapper doesn't cover.
func (c *Client) Raw() *redis.Client {
	return c.redisdb
}
