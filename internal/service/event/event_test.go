package event

import (
	"fmt"
	"log"
	"testing"
)

func TestStreamSplitsLines(t *testing.T) {
	s := NewStream()
	fmt.Fprint(s, "first line\nsecond ")
	fmt.Fprint(s, "line\r\n")

	history, _, cancel := s.Subscribe()
	defer cancel()

	if len(history) != 2 {
		t.Fatalf("history = %d, want 2", len(history))
	}
	if history[0].Data != "first line" || history[1].Data != "second line" {
		t.Errorf("history = %+v", history)
	}
	if history[1].Seq != 2 || history[1].Type != EventLog {
		t.Errorf("event = %+v", history[1])
	}
}

func TestStreamSubscribe(t *testing.T) {
	s := NewStream()
	logger := log.New(s, "", 0)
	logger.Printf("before")

	history, events, cancel := s.Subscribe()
	defer cancel()
	if len(history) != 1 {
		t.Fatalf("history = %d", len(history))
	}

	logger.Printf("after")
	s.Publish(EventProgress, "1/2")
	fmt.Fprint(s, "tail without newline")
	s.Close("completed")

	var got []Event
	for evt := range events {
		got = append(got, evt)
	}
	if len(got) != 4 {
		t.Fatalf("events = %+v", got)
	}
	if got[0].Data != "after" || got[1].Type != EventProgress || got[2].Data != "tail without newline" {
		t.Errorf("events = %+v", got)
	}
	if got[3].Type != EventEnd || got[3].Data != "completed" {
		t.Errorf("last event = %+v", got[3])
	}

	if _, err := fmt.Fprint(s, "late\n"); err == nil {
		t.Error("write after close should fail")
	}
	if !s.Closed() {
		t.Error("stream should be closed")
	}
}

func TestSubscribeAfterClose(t *testing.T) {
	s := NewStream()
	fmt.Fprintln(s, "done")
	s.Close("failed")

	history, events, cancel := s.Subscribe()
	defer cancel()
	if len(history) != 2 || history[1].Type != EventEnd {
		t.Fatalf("history = %+v", history)
	}
	if _, ok := <-events; ok {
		t.Error("channel should be closed")
	}
}

func TestCancelUnsubscribes(t *testing.T) {
	s := NewStream()
	_, events, cancel := s.Subscribe()
	cancel()
	cancel()
	if _, ok := <-events; ok {
		t.Error("channel should be closed after cancel")
	}
	s.Publish(EventLog, "x") // 不应向已关闭通道发送
	s.Close("completed")
}
