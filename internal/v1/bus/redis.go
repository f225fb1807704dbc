// Package bus implements an optional, circuit-breaker-guarded Redis
// pub/sub fan-out of room-list changes across hub instances, grounded on
// the teacher's internal/v1/bus/redis.go Service. Single-instance
// deployments never construct a Service; every method on a nil *Service
// is a safe no-op, matching the teacher's "graceful degradation" style.
package bus

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker"

	"github.com/screenhub/signalhub/internal/v1/logging"
	"github.com/screenhub/signalhub/internal/v1/metrics"
	"go.uber.org/zap"
)

const roomUpdatesChannel = "signalhub:room_updates"

// RoomUpdateEvent is published whenever a hub instance creates a new
// session, so sibling instances can fan the notification out to their
// own locally-connected subscribers.
type RoomUpdateEvent struct {
	Room     string `json:"room"`
	SenderID string `json:"sender_id"`
}

// Service wraps a Redis client behind a circuit breaker.
type Service struct {
	client *redis.Client
	cb     *gobreaker.CircuitBreaker
}

// NewService dials addr and verifies connectivity before returning.
func NewService(addr, password string) (*Service, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           0,
		DialTimeout:  10 * time.Second,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		PoolSize:     10,
		MinIdleConns: 2,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		return struct{}{}, rdb.Ping(ctx).Err()
	}, backoff.WithBackOff(backoff.NewExponentialBackOff()), backoff.WithMaxTries(5))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	st := gobreaker.Settings{
		Name:        "redis",
		MaxRequests: 5,
		Interval:    time.Minute,
		Timeout:     15 * time.Second,
		OnStateChange: func(name string, from, to gobreaker.State) {
			var stateVal float64
			switch to {
			case gobreaker.StateClosed:
				stateVal = 0
			case gobreaker.StateOpen:
				stateVal = 1
			case gobreaker.StateHalfOpen:
				stateVal = 2
			}
			metrics.CircuitBreakerState.WithLabelValues("redis").Set(stateVal)
		},
	}

	logging.Info(ctx, "connected to redis pub/sub", zap.String("addr", addr))
	return &Service{client: rdb, cb: gobreaker.NewCircuitBreaker(st)}, nil
}

// Client exposes the underlying Redis client, nil-safe for a nil Service.
func (s *Service) Client() *redis.Client {
	if s == nil {
		return nil
	}
	return s.client
}

// PublishRoomUpdate broadcasts room's creation to sibling instances.
// senderID is carried in the event to identify the publishing instance;
// Subscribe does not filter on it, so a publishing instance that is also
// subscribed receives its own event back.
func (s *Service) PublishRoomUpdate(ctx context.Context, room, senderID string) error {
	if s == nil || s.client == nil {
		return nil
	}

	_, err := s.cb.Execute(func() (interface{}, error) {
		data, err := json.Marshal(RoomUpdateEvent{Room: room, SenderID: senderID})
		if err != nil {
			return nil, fmt.Errorf("marshal room update: %w", err)
		}
		return nil, s.client.Publish(ctx, roomUpdatesChannel, data).Err()
	})

	if err != nil {
		if err == gobreaker.ErrOpenState {
			metrics.CircuitBreakerFailures.WithLabelValues("redis").Inc()
			logging.Warn(ctx, "redis circuit breaker open: dropping room update publish", zap.String("room", room))
			return nil
		}
		metrics.BusOperations.WithLabelValues("publish", "error").Inc()
		logging.Error(ctx, "redis publish failed", zap.String("room", room), zap.Error(err))
		return err
	}
	metrics.BusOperations.WithLabelValues("publish", "ok").Inc()
	return nil
}

// Subscribe runs a background listener that invokes handler for every
// RoomUpdateEvent published on the channel, including this instance's own
// publishes, until ctx is done.
func (s *Service) Subscribe(ctx context.Context, handler func(RoomUpdateEvent)) {
	if s == nil || s.client == nil {
		return
	}

	pubsub := s.client.Subscribe(ctx, roomUpdatesChannel)
	go func() {
		defer pubsub.Close()
		logging.Info(ctx, "subscribed to redis channel", zap.String("channel", roomUpdatesChannel))

		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var event RoomUpdateEvent
				if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
					metrics.BusOperations.WithLabelValues("receive", "error").Inc()
					logging.Error(ctx, "failed to unmarshal redis message", zap.Error(err))
					continue
				}
				metrics.BusOperations.WithLabelValues("receive", "ok").Inc()
				handler(event)
			}
		}
	}()
}

// Ping verifies Redis connectivity; used by the readiness health check.
func (s *Service) Ping(ctx context.Context) error {
	if s == nil || s.client == nil {
		return nil
	}
	_, err := s.cb.Execute(func() (interface{}, error) {
		return nil, s.client.Ping(ctx).Err()
	})
	if err != nil && err == gobreaker.ErrOpenState {
		metrics.CircuitBreakerFailures.WithLabelValues("redis").Inc()
	}
	return err
}

// Close shuts down the Redis connection.
func (s *Service) Close() error {
	if s == nil || s.client == nil {
		return nil
	}
	return s.client.Close()
}
