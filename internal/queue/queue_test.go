package queue

import (
	"context"
	"testing"
	"time"
)

func TestInMemoryPublishConsume(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	q := NewInMemory(4)
	jobs, err := q.Consume(ctx)
	if err != nil {
		t.Fatalf("Consume() error: %v", err)
	}

	want := Job{Type: JobAbsenceAlert, StudentID: "S-001", Date: "2024-01-10"}
	if err := q.Publish(ctx, want); err != nil {
		t.Fatalf("Publish() error: %v", err)
	}

	select {
	case got := <-jobs:
		if got != want {
			t.Errorf("consumed %+v, want %+v", got, want)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for job")
	}
}

func TestInMemoryConsumeStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	q := NewInMemory(1)
	jobs, _ := q.Consume(ctx)
	cancel()

	select {
	case _, ok := <-jobs:
		if ok {
			t.Error("received a job after cancel")
		}
	case <-time.After(time.Second):
		t.Fatal("channel not closed after cancel")
	}
}

func TestInMemoryPublishRespectsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	q := NewInMemory(0) // unbuffered, nothing consuming
	if err := q.Publish(ctx, Job{Type: JobReport, StudentID: "S-001"}); err == nil {
		t.Error("Publish() on cancelled context returned nil error")
	}
}
