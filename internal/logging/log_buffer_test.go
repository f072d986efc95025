package logging

import (
	"sync"
	"testing"
	"time"
)

func TestLogBufferCircular(t *testing.T) {
	buffer := NewLogBuffer(2)
	buffer.Add(LogEntry{Message: "first"})
	buffer.Add(LogEntry{Message: "second"})
	buffer.Add(LogEntry{Message: "third"})

	entries := buffer.List()
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].Message != "second" || entries[1].Message != "third" {
		t.Fatalf("expected [second third], got [%s %s]", entries[0].Message, entries[1].Message)
	}
}

func TestLogBufferZeroSizeKeepsOne(t *testing.T) {
	buffer := NewLogBuffer(0)
	buffer.Add(LogEntry{Message: "one"})
	buffer.Add(LogEntry{Message: "two"})

	entries := buffer.List()
	if len(entries) != 1 || entries[0].Message != "two" {
		t.Fatalf("expected only the latest entry, got %v", entries)
	}
}

func TestLogBufferEmpty(t *testing.T) {
	buffer := NewLogBuffer(3)
	if entries := buffer.List(); entries != nil {
		t.Fatalf("expected nil entries, got %v", entries)
	}
}

func TestLogBufferConcurrentAdds(t *testing.T) {
	buffer := NewLogBuffer(50)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				buffer.Add(LogEntry{Timestamp: time.Now(), Message: "entry"})
			}
		}()
	}
	wg.Wait()

	if got := buffer.Len(); got != 50 {
		t.Fatalf("expected 50 entries, got %d", got)
	}
}
