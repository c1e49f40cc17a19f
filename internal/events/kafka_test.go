package events

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
)

func TestKafkaPublisherDoesNotBlock(t *testing.T) {
	// Nothing listens on port 1, so a synchronous write would retry for seconds.
	p := NewKafkaPublisher([]string{"127.0.0.1:1"}, "tiskarna.orders")
	if !p.writer.Async || p.writer.Completion == nil {
		t.Fatal("expected an asynchronous writer with a completion callback")
	}

	start := time.Now()
	err := p.Publish(context.Background(), OrderEvent{Type: TypeOrderSubmitted, OrderID: 1})
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("Publish blocked for %v", elapsed)
	}
}

func TestLogDelivery(t *testing.T) {
	// Must not panic for either outcome.
	logDelivery([]kafka.Message{{Key: []byte("1")}}, nil)
	logDelivery([]kafka.Message{{Key: []byte("1")}}, errors.New("broker down"))
}
