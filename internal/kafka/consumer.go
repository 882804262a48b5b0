package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"risk-service/internal/config"
	"risk-service/internal/logging"
	"risk-service/internal/models"
	"risk-service/internal/risk"
	"risk-service/internal/services"
)

// Consumer reads analyzed chat-message events and queues them for
// evaluation.
type Consumer struct {
	reader *kafka.Reader
	svc    *services.Service
	logger *logging.Logger
}

func NewConsumer(cfg config.Config, svc *services.Service) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        []string{cfg.Kafka.Broker},
		Topic:          cfg.Kafka.Topic,
		GroupID:        cfg.Kafka.GroupID,
		MinBytes:       1,
		MaxBytes:       10e6,
		CommitInterval: time.Second,
		MaxWait:        time.Second,
	})
	return &Consumer{reader: reader, svc: svc, logger: svc.Logger()}
}

func (c *Consumer) Start(ctx context.Context, wg *sync.WaitGroup) {
	wg.Add(1)
	go func() {
		defer wg.Done()
		c.logger.Infof("Kafka consumer started on topic %s", c.reader.Config().Topic)

		for {
			msg, err := c.reader.ReadMessage(ctx)
			if err != nil {
				if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					c.logger.Infof("Kafka consumer stopped")
					return
				}
				c.logger.Errorf("Read message failed: %v", err)
				time.Sleep(500 * time.Millisecond)
				continue
			}

			var event models.ChatMessageEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				c.logger.Errorf("Unmarshal message failed: %v", err)
				continue
			}

			if event.UserID == "" || event.Message == "" {
				c.logger.Errorf("Invalid message: missing user_id or message")
				continue
			}

			c.svc.QueueTask(services.Task{
				RequestID: uuid.NewString(),
				Input: risk.Input{
					UserID:  event.UserID,
					Message: event.Message,
					Emotion: models.EmotionSignal{
						Emotion:    event.Emotion,
						Confidence: event.EmotionConfidence,
					},
					Sentiment: models.SentimentSignal{
						Score:    event.SentimentScore,
						Polarity: models.SentimentPolarity(event.SentimentPolarity),
					},
					PatternFactors: event.PatternFactors,
				},
			})
		}
	}()
}

func (c *Consumer) Close() {
	if err := c.reader.Close(); err != nil {
		c.logger.Errorf("Kafka reader close failed: %v", err)
	}
}
