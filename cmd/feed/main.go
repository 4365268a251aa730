// Command feed follows the Redis stream the dashboard publishes to and
// prints every observation with the alerts it fired.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"weatherdash/internal/config"
	"weatherdash/internal/models"

	"github.com/go-redis/redis/v8"
)

const (
	consumerGroup = "weatherdash_feed"
	readCount     = 10
	readBlock     = 5 * time.Second
)

// update is one stream entry as written by notify.StreamPublisher
type update struct {
	Type   string               `json:"type"`
	Record models.WeatherRecord `json:"record"`
	Alerts []models.AlertEvent  `json:"alerts"`
}

func main() {
	consumerName := flag.String("consumer", "feed-1", "consumer name within the group")
	alertsOnly := flag.Bool("alerts-only", false, "only print updates that fired alerts")
	flag.Parse()

	redisCfg := config.GetRedisConfig()
	redisClient := redis.NewClient(redisCfg.Options())
	defer redisClient.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	stream := redisCfg.Stream
	err := redisClient.XGroupCreateMkStream(ctx, stream, consumerGroup, "$").Err()
	if err != nil && !strings.HasPrefix(err.Error(), "BUSYGROUP") {
		log.Fatalf("Failed to create consumer group: %v", err)
	}

	log.Printf("Following Redis stream %s at %s. Press Ctrl+C to stop...", stream, redisCfg.Addr)

	for ctx.Err() == nil {
		streams, err := redisClient.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    consumerGroup,
			Consumer: *consumerName,
			Streams:  []string{stream, ">"},
			Count:    readCount,
			Block:    readBlock,
		}).Result()

		if ctx.Err() != nil {
			break
		}
		if err != nil {
			if !errors.Is(err, redis.Nil) {
				log.Printf("Error reading from Redis: %v", err)
				time.Sleep(time.Second)
			}
			continue
		}

		for _, s := range streams {
			for _, msg := range s.Messages {
				u, err := decodeUpdate(msg.Values)
				if err != nil {
					log.Printf("Skipping message %s: %v", msg.ID, err)
				} else if !*alertsOnly || len(u.Alerts) > 0 {
					printUpdate(os.Stdout, u)
				}
				redisClient.XAck(context.Background(), stream, consumerGroup, msg.ID)
			}
		}
	}

	log.Println("Feed stopped")
}

func decodeUpdate(values map[string]interface{}) (*update, error) {
	raw, ok := values["data"].(string)
	if !ok {
		return nil, errors.New("message has no data field")
	}

	var u update
	if err := json.Unmarshal([]byte(raw), &u); err != nil {
		return nil, fmt.Errorf("failed to unmarshal message: %w", err)
	}
	if u.Record.City == "" {
		return nil, errors.New("message has no city")
	}
	return &u, nil
}

func printUpdate(w io.Writer, u *update) {
	rec := u.Record
	fmt.Fprintf(w, "%s  %s, %s  %.1f°F  %s\n",
		rec.Timestamp.Format("2006-01-02 15:04"), rec.City, rec.Country, rec.Temperature, rec.Description)
	for _, ev := range u.Alerts {
		fmt.Fprintf(w, "    [%s] %s\n", ev.Severity, ev.Message)
	}
}
