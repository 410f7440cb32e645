package bus

import (
	"context"
	"sync"
)

// Message is a published payload captured by Memory.
type Message struct {
	Topic   string
	Payload []byte
}

// Memory is an in-process Publisher that records every message.
type Memory struct {
	mu       sync.Mutex
	messages []Message
}

func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) Publish(_ context.Context, topic string, payload []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]byte, len(payload))
	copy(cp, payload)
	m.messages = append(m.messages, Message{Topic: topic, Payload: cp})
	return nil
}

func (m *Memory) Close() error { return nil }

// Messages returns a copy of everything published so far.
func (m *Memory) Messages() []Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Message, len(m.messages))
	copy(out, m.messages)
	return out
}

// Count returns how many messages were published to topic.
func (m *Memory) Count(topic string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, msg := range m.messages {
		if msg.Topic == topic {
			n++
		}
	}
	return n
}
