// Package stream publishes finished scan reports to Kafka.
package stream

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/sugawarayuuta/sonnet"

	"github.com/alanyoungcy/triscan/internal/domain"
)

// messageWriter is the part of *kafka.Writer the publisher uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Publisher implements domain.ReportPublisher. Each report becomes one
// message keyed by report ID.
type Publisher struct {
	w     messageWriter
	topic string
}

// NewPublisher creates a synchronous publisher for topic.
func NewPublisher(brokers []string, topic string) (*Publisher, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("stream: no brokers configured")
	}
	if topic == "" {
		return nil, fmt.Errorf("stream: topic is required")
	}
	w := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireOne,
		BatchTimeout: 100 * time.Millisecond,
	}
	return &Publisher{w: w, topic: topic}, nil
}

// PublishReport writes report to the topic.
func (p *Publisher) PublishReport(ctx context.Context, report domain.ScanReport) error {
	msg, err := reportMessage(report)
	if err != nil {
		return err
	}
	if err := p.w.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("stream: publish report %s to %s: %w", report.ID, p.topic, err)
	}
	return nil
}

// Close flushes pending writes.
func (p *Publisher) Close() error {
	return p.w.Close()
}

func reportMessage(report domain.ScanReport) (kafka.Message, error) {
	payload, err := sonnet.Marshal(report)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("stream: marshal report %s: %w", report.ID, err)
	}
	return kafka.Message{
		Key:   []byte(report.ID),
		Value: payload,
		Time:  report.FinishedAt,
		Headers: []kafka.Header{
			{Key: "opportunities", Value: []byte(strconv.Itoa(len(report.Opportunities)))},
			{Key: "failed", Value: []byte(strings.Join(report.Failed(), ","))},
		},
	}, nil
}

// EnsureTopic creates topic through the cluster controller. An existing
// topic is not an error.
func EnsureTopic(ctx context.Context, brokers []string, topic string) error {
	if len(brokers) == 0 {
		return fmt.Errorf("stream: no brokers configured")
	}

	conn, err := kafka.DialContext(ctx, "tcp", brokers[0])
	if err != nil {
		return fmt.Errorf("stream: dial broker %s: %w", brokers[0], err)
	}
	defer conn.Close()

	controller, err := conn.Controller()
	if err != nil {
		return fmt.Errorf("stream: get controller: %w", err)
	}
	ctrl, err := kafka.DialContext(ctx, "tcp", net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	if err != nil {
		return fmt.Errorf("stream: dial controller: %w", err)
	}
	defer ctrl.Close()

	err = ctrl.CreateTopics(kafka.TopicConfig{
		Topic:             topic,
		NumPartitions:     1,
		ReplicationFactor: 1,
	})
	if err != nil && !strings.Contains(err.Error(), "already exists") {
		return fmt.Errorf("stream: create topic %s: %w", topic, err)
	}
	return nil
}

var _ domain.ReportPublisher = (*Publisher)(nil)
