package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"rideshare-service/internal/config"
	"rideshare-service/internal/ws"

	"github.com/IBM/sarama"
)

const defaultMirrorBuffer = 1024

// NewProducer builds the synchronous producer used by the mirror.
func NewProducer(cfg config.KafkaConfig) (sarama.SyncProducer, error) {
	sc := sarama.NewConfig()
	sc.Producer.RequiredAcks = sarama.WaitForAll
	sc.Producer.Retry.Max = 5
	sc.Producer.Return.Successes = true
	sc.Producer.Compression = sarama.CompressionSnappy
	sc.Producer.Partitioner = sarama.NewHashPartitioner
	sc.Producer.MaxMessageBytes = 1000000
	sc.Version = sarama.V2_0_0_0
	sc.ClientID = cfg.ProducerName

	return sarama.NewSyncProducer(cfg.Brokers, sc)
}

// KafkaMirror publishes broadcast events to a topic. Mirror never blocks the
// broadcaster: records are queued and a background goroutine sends them. When
// the queue is full the record is dropped.
type KafkaMirror struct {
	producer sarama.SyncProducer
	topic    string
	queue    chan *sarama.ProducerMessage

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

func NewKafkaMirror(producer sarama.SyncProducer, topic string, buffer int) *KafkaMirror {
	if buffer <= 0 {
		buffer = defaultMirrorBuffer
	}
	m := &KafkaMirror{
		producer: producer,
		topic:    topic,
		queue:    make(chan *sarama.ProducerMessage, buffer),
	}
	m.wg.Add(1)
	go m.run()
	return m
}

func (m *KafkaMirror) Mirror(_ context.Context, target ws.Target, e ws.Event) {
	if e == nil || connectionLocal(e.Type()) {
		return
	}
	env, err := NewEnvelope(target, e)
	if err != nil {
		slog.Error("Failed to build mirror envelope", "type", e.Type(), "error", err)
		return
	}
	value, err := json.Marshal(env)
	if err != nil {
		slog.Error("Failed to encode mirror envelope", "type", e.Type(), "error", err)
		return
	}
	msg := &sarama.ProducerMessage{
		Topic: m.topic,
		Key:   sarama.StringEncoder(env.Key()),
		Value: sarama.ByteEncoder(value),
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return
	}
	select {
	case m.queue <- msg:
	default:
		slog.Warn("Mirror queue full, dropping event", "type", e.Type(), "key", env.Key())
	}
}

func (m *KafkaMirror) run() {
	defer m.wg.Done()
	for msg := range m.queue {
		partition, offset, err := m.producer.SendMessage(msg)
		if err != nil {
			slog.Error("Failed to mirror event", "topic", msg.Topic, "error", err)
			continue
		}
		slog.Debug("Mirrored event", "topic", msg.Topic, "partition", partition, "offset", offset)
	}
}

// Close flushes the queue and closes the producer.
func (m *KafkaMirror) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	close(m.queue)
	m.mu.Unlock()

	m.wg.Wait()
	return m.producer.Close()
}
