package completionsvc

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/segmentio/kafka-go"

	"github.com/trezcool/coursecertificate/core"
	"github.com/trezcool/coursecertificate/core/certificate"
	"github.com/trezcool/coursecertificate/core/event"
)

// message is the JSON payload of the LMS completion topic.
type message struct {
	Type        string    `json:"type"`
	CourseID    string    `json:"course_id"`
	ActivityID  string    `json:"activity_id"`
	UserID      string    `json:"user_id"`
	CompletedAt time.Time `json:"completed_at"`
}

// Decode maps a completion topic payload to its event.
func Decode(payload []byte) (event.Event, error) {
	var msg message
	if err := json.Unmarshal(payload, &msg); err != nil {
		return nil, errors.Wrap(err, "decoding completion message")
	}
	if msg.CourseID == "" || msg.UserID == "" {
		return nil, errors.New("completion message: course_id and user_id are required")
	}

	switch msg.Type {
	case certificate.EventCompletionReset:
		return certificate.CompletionReset{CourseID: msg.CourseID, UserID: msg.UserID}, nil
	case certificate.EventActivityCompleted:
		if msg.ActivityID == "" {
			return nil, errors.New("completion message: activity_id is required")
		}
		if msg.CompletedAt.IsZero() {
			msg.CompletedAt = time.Now()
		}
		return certificate.ActivityCompleted{
			CourseID:    msg.CourseID,
			ActivityID:  msg.ActivityID,
			UserID:      msg.UserID,
			CompletedAt: msg.CompletedAt.UTC(),
		}, nil
	default:
		return nil, errors.Errorf("completion message: unknown type %q", msg.Type)
	}
}

// Consumer feeds the event bus with the LMS completion topic.
type Consumer struct {
	reader *kafka.Reader
	bus    *event.Bus
	logger core.Logger
}

func NewConsumer(conf *core.Config, bus *event.Bus, logger core.Logger) (*Consumer, error) {
	if len(conf.Kafka.Brokers) == 0 {
		return nil, core.NewConfigurationError("kafka", errors.New("at least one broker is required"))
	}
	if conf.Kafka.GroupID == "" || conf.Kafka.Topic == "" {
		return nil, core.NewConfigurationError("kafka", errors.New("group id and topic are required"))
	}
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  conf.Kafka.Brokers,
		GroupID:  conf.Kafka.GroupID,
		Topic:    conf.Kafka.Topic,
		MinBytes: 1,
		MaxBytes: 10e6,
		MaxWait:  500 * time.Millisecond,
	})
	return &Consumer{reader: reader, bus: bus, logger: logger}, nil
}

// Run consumes messages until ctx is done. Undecodable messages are logged and skipped.
func (c *Consumer) Run(ctx context.Context) error {
	for {
		msg, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return errors.Wrap(err, "reading completion topic")
		}

		ev, err := Decode(msg.Value)
		if err != nil {
			c.logger.Warn(
				fmt.Sprintf("completionsvc.Consumer: skipping message %d of partition %d: %v", msg.Offset, msg.Partition, err),
				err,
			)
			continue
		}
		c.bus.Publish(ctx, ev)
	}
}

func (c *Consumer) Close() error {
	return c.reader.Close()
}
