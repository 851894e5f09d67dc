// Package kafka provides the swap-event publisher: broker readiness probing, topic bootstrap and a no-op fallback
package kafka

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/UnendingLoop/FaceSwap/internal/settings"
	kafkago "github.com/segmentio/kafka-go"
	wbfkafka "github.com/wb-go/wbf/kafka"
	"github.com/wb-go/wbf/retry"
	"github.com/wb-go/wbf/zlog"
)

// Publisher - то, что нужно сервису и main от продюсера
type Publisher interface {
	SendWithRetry(ctx context.Context, strategy retry.Strategy, key []byte, v []byte) error
	Close() error
}

var _ Publisher = (*wbfkafka.Producer)(nil)

// NoopPublisher swallows events when no broker is configured
type NoopPublisher struct{}

func (NoopPublisher) SendWithRetry(ctx context.Context, strategy retry.Strategy, key []byte, v []byte) error {
	return nil
}

func (NoopPublisher) Close() error { return nil }

// NewPublisher waits for the broker, makes sure the topic exists and returns a producer.
// With an empty broker address events are switched off.
func NewPublisher(ctx context.Context, cfg settings.KafkaSettings, delay time.Duration) (Publisher, error) {
	if !cfg.Enabled() {
		zlog.Logger.Info().Msg("KAFKA_BROKER is empty, swap events are disabled")
		return NoopPublisher{}, nil
	}

	if err := WaitKafkaReady(ctx, cfg.Broker, delay); err != nil {
		return nil, err
	}
	if err := InitKafkaTopics(ctx, cfg.Broker, delay, cfg.Topic); err != nil {
		return nil, err
	}

	return wbfkafka.NewProducer([]string{cfg.Broker}, cfg.Topic), nil
}

func topicsRequest(topics ...string) *kafkago.CreateTopicsRequest {
	req := &kafkago.CreateTopicsRequest{
		Topics: make([]kafkago.TopicConfig, 0, len(topics)),
	}

	for _, t := range topics {
		req.Topics = append(req.Topics, kafkago.TopicConfig{
			Topic:             t,
			NumPartitions:     1,
			ReplicationFactor: 1,
		})
	}
	return req
}

// InitKafkaTopics - creates topics in kafka, retrying until ctx is done
func InitKafkaTopics(ctx context.Context, brokerAddr string, delay time.Duration, topics ...string) error {
	client := &kafkago.Client{
		Addr:    kafkago.TCP(brokerAddr),
		Timeout: 10 * time.Second,
	}
	req := topicsRequest(topics...)

	for {
		resp, err := client.CreateTopics(ctx, req)
		if err == nil && topicsCreated(resp.Errors) {
			zlog.Logger.Info().Strs("topics", topics).Msg("All topics created successfully!")
			return nil
		}
		if err != nil {
			zlog.Logger.Warn().Err(err).Dur("next_retry_in", delay).Msg("Failed to run topics creation request")
		}

		if err := sleepCtx(ctx, delay); err != nil {
			return fmt.Errorf("topics creation canceled: %w", err)
		}
	}
}

// topicsCreated считает уже существующий топик успехом
func topicsCreated(errs map[string]error) bool {
	ok := true
	for topic, err := range errs {
		switch {
		case err == nil, errors.Is(err, kafkago.TopicAlreadyExists):
		default:
			zlog.Logger.Warn().Err(err).Str("topic", topic).Msg("Topic creation error")
			ok = false
		}
	}
	return ok
}

// WaitKafkaReady - blocks until the broker accepts TCP connections or ctx is done
func WaitKafkaReady(ctx context.Context, brokerAddr string, delay time.Duration) error {
	dialer := &kafkago.Dialer{Timeout: 5 * time.Second}
	for {
		conn, err := dialer.DialContext(ctx, "tcp", brokerAddr)
		if err == nil {
			if errConn := conn.Close(); errConn != nil {
				zlog.Logger.Warn().Err(errConn).Msg("Failed to close connection after testing Kafka readiness")
			}
			zlog.Logger.Info().Str("broker", brokerAddr).Msg("Kafka is ready!")
			return nil
		}

		zlog.Logger.Warn().Err(err).Dur("next_retry_in", delay).Msg("Kafka not ready")
		if err := sleepCtx(ctx, delay); err != nil {
			return fmt.Errorf("waiting for kafka canceled: %w", err)
		}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
