package queue

import (
	"context"
	"testing"
	"time"
)

func TestInMemory_PublishConsume(t *testing.T) {
	q := NewInMemory(4)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	msgs, err := q.Consume(ctx)
	if err != nil {
		t.Fatalf("consume failed: %v", err)
	}

	want := Message{Type: TypeSessionPhoto, Body: "session-123"}
	if err := q.Publish(ctx, want); err != nil {
		t.Fatalf("publish failed: %v", err)
	}

	select {
	case got := <-msgs:
		if got.Type != want.Type || got.Body != want.Body {
			t.Errorf("expected %+v, got %+v", want, got)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for message")
	}
}

func TestInMemory_PublishRespectsCancel(t *testing.T) {
	q := NewInMemory(1)
	ctx, cancel := context.WithCancel(context.Background())

	// Fill the buffer so the next publish blocks.
	if err := q.Publish(ctx, Message{Type: TypeStudentPhoto, Body: "a"}); err != nil {
		t.Fatalf("publish failed: %v", err)
	}
	cancel()
	if err := q.Publish(ctx, Message{Type: TypeStudentPhoto, Body: "b"}); err == nil {
		t.Error("expected publish on canceled context to fail")
	}
}
