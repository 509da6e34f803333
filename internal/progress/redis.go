package progress

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const channelPrefix = "rdt:progress:"

func jobChannel(jobID string) string {
	return channelPrefix + jobID
}

// RedisConfig configures the Redis client progress events are published
// over and relayed through.
type RedisConfig struct {
	Addr         string        `yaml:"Addr"`
	Password     string        `yaml:"Password"`
	DB           int           `yaml:"DB"`
	PoolSize     int           `yaml:"PoolSize"`
	MinIdleConns int           `yaml:"MinIdleConns"`
	DialTimeout  time.Duration `yaml:"DialTimeout"`
	ReadTimeout  time.Duration `yaml:"ReadTimeout"`
	WriteTimeout time.Duration `yaml:"WriteTimeout"`
}

// NewRedisClient builds a *redis.Client from cfg, filling in defaults for
// the zero value of the tuning fields.
func NewRedisClient(cfg *RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})
}

// Publisher publishes job progress events to Redis. Job goroutines hold one
// of these; they know nothing about websockets or the Hub.
type Publisher struct {
	client *redis.Client
}

// NewPublisher wraps client.
func NewPublisher(client *redis.Client) *Publisher {
	return &Publisher{client: client}
}

// Publish sends event on its job's Redis channel.
func (p *Publisher) Publish(ctx context.Context, event *Event) error {
	data, err := event.ToJSON()
	if err != nil {
		return fmt.Errorf("progress: marshaling event: %w", err)
	}
	if err := p.client.Publish(ctx, jobChannel(event.JobID), data).Err(); err != nil {
		return fmt.Errorf("progress: publishing event: %w", err)
	}
	return nil
}

// Relay subscribes to every job's progress channel and rebroadcasts
// received events through hub. It blocks until ctx is cancelled or the
// subscription fails.
type Relay struct {
	client *redis.Client
	hub    *Hub
	logger *zap.Logger
}

// NewRelay builds a Relay that rebroadcasts through hub.
func NewRelay(client *redis.Client, hub *Hub, logger *zap.Logger) *Relay {
	return &Relay{client: client, hub: hub, logger: logger}
}

// Run subscribes to the progress channel pattern and forwards every message
// to the Hub until ctx is done.
func (r *Relay) Run(ctx context.Context) error {
	sub := r.client.PSubscribe(ctx, channelPrefix+"*")
	defer sub.Close()

	ch := sub.Channel()
	r.logger.Info("progress: relay subscribed", zap.String("pattern", channelPrefix+"*"))

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return fmt.Errorf("progress: relay subscription channel closed")
			}
			event, err := EventFromJSON([]byte(msg.Payload))
			if err != nil {
				r.logger.Warn("progress: relay dropping malformed event", zap.Error(err))
				continue
			}
			r.hub.BroadcastToJob(event)
		}
	}
}
