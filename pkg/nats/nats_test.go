package nats

import (
	"context"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/testcontainers/testcontainers-go"
	tcnats "github.com/testcontainers/testcontainers-go/modules/nats"
)

func setupNATS(t *testing.T) (jetstream.JetStream, jetstream.Consumer) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping nats container in short mode")
	}
	ctx := context.Background()

	container, err := tcnats.Run(ctx, "nats:2.10-alpine")
	if err != nil {
		t.Fatalf("failed to start nats container: %v", err)
	}
	t.Cleanup(func() {
		if err := testcontainers.TerminateContainer(container); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	endpoint, err := container.ConnectionString(ctx)
	if err != nil {
		t.Fatalf("failed to get endpoint: %v", err)
	}

	nc, err := nats.Connect(endpoint)
	if err != nil {
		t.Fatalf("failed to connect: %v", err)
	}
	t.Cleanup(func() {
		nc.Close()
	})

	js, err := jetstream.New(nc)
	if err != nil {
		t.Fatalf("failed to create jetstream: %v", err)
	}

	stream, err := js.CreateStream(ctx, jetstream.StreamConfig{
		Name:     "INBOX",
		Subjects: []string{"inbox.>"},
	})
	if err != nil {
		t.Fatalf("failed to create stream: %v", err)
	}

	consumer, err := stream.CreateOrUpdateConsumer(ctx, jetstream.ConsumerConfig{
		Durable:   "runtime",
		AckPolicy: jetstream.AckExplicitPolicy,
	})
	if err != nil {
		t.Fatalf("failed to create consumer: %v", err)
	}

	return js, consumer
}

func receive(t *testing.T, ch <-chan []byte) string {
	t.Helper()
	select {
	case v, ok := <-ch:
		if !ok {
			t.Fatal("channel closed")
		}
		return string(v)
	case <-time.After(10 * time.Second):
		t.Fatal("timeout waiting for payload")
	}
	return ""
}

func TestWatcher_EmitsPublishedMessages(t *testing.T) {
	js, consumer := setupNATS(t)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if _, err := js.Publish(ctx, "inbox.add", []byte("1")); err != nil {
		t.Fatalf("failed to publish: %v", err)
	}

	ch, err := New(consumer).Watch(ctx)
	if err != nil {
		t.Fatalf("Watch() error = %v", err)
	}
	if got := receive(t, ch); got != "1" {
		t.Errorf("expected 1, got %q", got)
	}

	if _, err := js.Publish(ctx, "inbox.add", []byte("2")); err != nil {
		t.Fatalf("failed to publish: %v", err)
	}
	if got := receive(t, ch); got != "2" {
		t.Errorf("expected 2, got %q", got)
	}
}

func TestWatcher_ClosesOnCancel(t *testing.T) {
	_, consumer := setupNATS(t)
	ctx, cancel := context.WithCancel(context.Background())

	ch, err := New(consumer).Watch(ctx)
	if err != nil {
		t.Fatalf("Watch() error = %v", err)
	}
	cancel()

	select {
	case _, ok := <-ch:
		if ok {
			t.Error("expected channel to be closed")
		}
	case <-time.After(5 * time.Second):
		t.Error("timeout waiting for close")
	}
}
