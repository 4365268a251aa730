// Package notify holds post-write subscribers that mirror new weather
// records and alert events to other systems.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"weatherdash/internal/models"

	"github.com/go-redis/redis/v8"
)

// DefaultStreamMaxLen bounds the stream so it cannot grow forever
const DefaultStreamMaxLen = 500

// StreamClient is the subset of *redis.Client used for publishing
type StreamClient interface {
	XAdd(ctx context.Context, a *redis.XAddArgs) *redis.StringCmd
}

// StreamPublisher publishes every new record, with the alerts it fired, to a Redis stream
type StreamPublisher struct {
	client StreamClient
	stream string
	maxLen int64
}

func NewStreamPublisher(client StreamClient, stream string) *StreamPublisher {
	return &StreamPublisher{
		client: client,
		stream: stream,
		maxLen: DefaultStreamMaxLen,
	}
}

func (p *StreamPublisher) Name() string {
	return "redis-stream"
}

// OnRecord serializes the record and its events and publishes them to the stream
func (p *StreamPublisher) OnRecord(ctx context.Context, rec *models.WeatherRecord, events []models.AlertEvent) error {
	if events == nil {
		events = []models.AlertEvent{}
	}

	data, err := json.Marshal(map[string]interface{}{
		"type":   "weather",
		"record": rec,
		"alerts": events,
	})
	if err != nil {
		return fmt.Errorf("failed to serialize record for %s: %w", rec.City, err)
	}

	id, err := p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		MaxLen: p.maxLen,
		Approx: true,
		Values: map[string]interface{}{
			"city": rec.City,
			"data": string(data),
		},
	}).Result()
	if err != nil {
		return fmt.Errorf("failed to publish to Redis stream %s: %w", p.stream, err)
	}

	log.Printf("Published weather for %s to Redis (%s)", rec.City, id)
	return nil
}
