package events

import (
	"context"
	"crypto/tls"
	"fmt"
	"time"

	kafka "github.com/segmentio/kafka-go"
	"github.com/segmentio/kafka-go/sasl"
	"github.com/segmentio/kafka-go/sasl/plain"
)

const (
	dialRetryInterval = 750 * time.Millisecond
	dialTimeout       = 30 * time.Second
	writeBackoffFloor = 1 * time.Second
	writeBackoffCeil  = 10 * time.Second
)

type ProducerConfig struct {
	Brokers  []string
	ClientID string
	SSL      bool
	Username string
	Password string
}

// Producer wraps a single kafka writer. Messages are keyed so that all events
// of one aggregate land on the same partition.
type Producer struct {
	writer  *kafka.Writer
	brokers []string
	tlsCfg  *tls.Config
	sasl    sasl.Mechanism
}

func NewProducer(cfg ProducerConfig) *Producer {
	var tlsCfg *tls.Config
	if cfg.SSL {
		tlsCfg = &tls.Config{MinVersion: tls.VersionTLS12}
	}

	var mechanism sasl.Mechanism
	if cfg.Username != "" {
		mechanism = plain.Mechanism{Username: cfg.Username, Password: cfg.Password}
	}

	transport := &kafka.Transport{
		ClientID: cfg.ClientID,
		TLS:      tlsCfg,
		SASL:     mechanism,
	}

	writer := &kafka.Writer{
		Addr:            kafka.TCP(cfg.Brokers...),
		Balancer:        &kafka.Hash{},
		RequiredAcks:    kafka.RequireAll,
		WriteBackoffMin: writeBackoffFloor,
		WriteBackoffMax: writeBackoffCeil,
		Transport:       transport,
	}

	return &Producer{
		writer:  writer,
		brokers: cfg.Brokers,
		tlsCfg:  tlsCfg,
		sasl:    mechanism,
	}
}

func (p *Producer) Publish(ctx context.Context, topic, key string, value []byte, headers map[string]string) error {
	message := kafka.Message{
		Topic: topic,
		Key:   []byte(key),
		Value: value,
	}
	for name, val := range headers {
		message.Headers = append(message.Headers, kafka.Header{Key: name, Value: []byte(val)})
	}

	return p.writer.WriteMessages(ctx, message)
}

// Ping blocks until one broker accepts a connection or the dial window
// expires. Used as a boot gate so the service fails fast on a bad cluster.
func (p *Producer) Ping(ctx context.Context) error {
	dialer := &kafka.Dialer{
		Timeout:       dialRetryInterval,
		DualStack:     true,
		TLS:           p.tlsCfg,
		SASLMechanism: p.sasl,
	}

	ctx, cancel := context.WithTimeout(ctx, dialTimeout)
	defer cancel()

	ticker := time.NewTicker(dialRetryInterval)
	defer ticker.Stop()

	var lastErr error
	for {
		for _, broker := range p.brokers {
			conn, err := dialer.DialContext(ctx, "tcp", broker)
			if err == nil {
				return conn.Close()
			}
			lastErr = err
		}

		select {
		case <-ctx.Done():
			if lastErr == nil {
				lastErr = ctx.Err()
			}
			return fmt.Errorf("kafka brokers not reachable: %w", lastErr)
		case <-ticker.C:
		}
	}
}

func (p *Producer) Close() error {
	return p.writer.Close()
}
