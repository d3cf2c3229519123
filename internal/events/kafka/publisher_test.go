package kafka

import (
	"context"
	"testing"

	"github.com/segmentio/kafka-go"
)

func TestNewPublisherDefaults(t *testing.T) {
	p := NewPublisher([]string{"localhost:9092"}, "")
	defer p.Close()

	if p.writer.Topic != DefaultTopic {
		t.Fatalf("expected topic %s, got %s", DefaultTopic, p.writer.Topic)
	}
	if _, ok := p.writer.Balancer.(*kafka.Hash); !ok {
		t.Fatalf("expected key hashing balancer, got %T", p.writer.Balancer)
	}
}

func TestPublishRejectsUnencodableEvent(t *testing.T) {
	p := NewPublisher([]string{"localhost:9092"}, "audit")
	defer p.Close()

	if err := p.Publish(context.Background(), "k", func() {}); err == nil {
		t.Fatal("expected marshal error")
	}
}
