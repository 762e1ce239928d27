// v0
// internal/telemetry/sink.go

// Package telemetry forwards dashboard readings and control actions to
// optional external brokers (Kafka, MQTT).
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/segmentio/kafka-go"

	"github.com/MayorChristopher/poultry-management-system/internal/breaker"
)

// Kind is the stream a message belongs to. It becomes the topic suffix.
type Kind string

const (
	KindReading Kind = "readings"
	KindAction  Kind = "actions"
)

// Message is one encoded payload.
type Message struct {
	Kind    Kind
	Key     string
	Payload []byte
	Time    time.Time
}

// Sink publishes messages to one broker.
type Sink interface {
	Name() string
	Publish(ctx context.Context, msg Message) error
	Close() error
}

type kafkaWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaSink writes to <prefix>.<kind>.
type KafkaSink struct {
	w      kafkaWriter
	prefix string
	log    *slog.Logger
}

// NewKafkaSink builds a writer with hash partitioning on the message key.
func NewKafkaSink(brokers []string, prefix string, log *slog.Logger) *KafkaSink {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
		BatchTimeout:           50 * time.Millisecond,
	}
	return newKafkaSink(w, prefix, log)
}

func newKafkaSink(w kafkaWriter, prefix string, log *slog.Logger) *KafkaSink {
	return &KafkaSink{w: w, prefix: prefix, log: log.With(slog.String("sink", "kafka"))}
}

// Name implements Sink.
func (k *KafkaSink) Name() string { return "kafka" }

// Topic returns the topic a kind is written to.
func (k *KafkaSink) Topic(kind Kind) string { return k.prefix + "." + string(kind) }

// Publish implements Sink.
func (k *KafkaSink) Publish(ctx context.Context, msg Message) error {
	topic := k.Topic(msg.Kind)
	err := k.w.WriteMessages(ctx, kafka.Message{Topic: topic, Key: []byte(msg.Key), Value: msg.Payload, Time: msg.Time})
	if err != nil {
		return fmt.Errorf("kafka write %s: %w", topic, err)
	}
	k.log.Debug("published", slog.String("topic", topic), slog.String("key", msg.Key))
	return nil
}

// Close implements Sink.
func (k *KafkaSink) Close() error { return k.w.Close() }

// MQTTSink publishes to <prefix>/<kind> at QoS 0.
type MQTTSink struct {
	client  mqtt.Client
	prefix  string
	timeout time.Duration
	log     *slog.Logger
}

// ErrPublishTimeout is returned when the broker does not acknowledge in time.
var ErrPublishTimeout = errors.New("mqtt publish timed out")

// NewMQTTSink connects to broker. The client reconnects on its own after the
// first successful connection.
func NewMQTTSink(broker, clientID, prefix string, log *slog.Logger) (*MQTTSink, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectTimeout(5 * time.Second)
	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(5 * time.Second) {
		return nil, fmt.Errorf("mqtt connect %s: timed out", broker)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("mqtt connect %s: %w", broker, err)
	}
	return newMQTTSink(client, prefix, log), nil
}

func newMQTTSink(client mqtt.Client, prefix string, log *slog.Logger) *MQTTSink {
	return &MQTTSink{
		client:  client,
		prefix:  strings.TrimSuffix(prefix, "/"),
		timeout: 5 * time.Second,
		log:     log.With(slog.String("sink", "mqtt")),
	}
}

// Name implements Sink.
func (m *MQTTSink) Name() string { return "mqtt" }

// Topic returns the topic a kind is published on.
func (m *MQTTSink) Topic(kind Kind) string { return m.prefix + "/" + string(kind) }

// Publish implements Sink.
func (m *MQTTSink) Publish(_ context.Context, msg Message) error {
	topic := m.Topic(msg.Kind)
	token := m.client.Publish(topic, 0, false, msg.Payload)
	if !token.WaitTimeout(m.timeout) {
		return ErrPublishTimeout
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqtt publish %s: %w", topic, err)
	}
	m.log.Debug("published", slog.String("topic", topic))
	return nil
}

// Close implements Sink.
func (m *MQTTSink) Close() error {
	m.client.Disconnect(250)
	return nil
}

// Guarded wraps a sink with a circuit breaker.
type Guarded struct {
	Sink
	brk *breaker.Breaker
}

// Guard returns s protected by brk.
func Guard(s Sink, brk *breaker.Breaker) *Guarded {
	return &Guarded{Sink: s, brk: brk}
}

// Publish runs the inner publish through the breaker.
func (g *Guarded) Publish(ctx context.Context, msg Message) error {
	return g.brk.Execute(ctx, func(ctx context.Context) error {
		return g.Sink.Publish(ctx, msg)
	})
}

// Breaker exposes the guard for inspection.
func (g *Guarded) Breaker() *breaker.Breaker { return g.brk }
