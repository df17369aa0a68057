package progress

import (
	"bytes"
	"strings"
	"testing"
)

func TestBar(t *testing.T) {
	var buf bytes.Buffer
	b := New(&buf, "Single-turn SFT", 3)
	for i := 0; i < 3; i++ {
		b.Increment()
	}
	b.Wait()

	if !strings.Contains(buf.String(), "Single-turn SFT") {
		t.Errorf("progress output missing name: %q", buf.String())
	}
}

func TestBarEarlyStop(t *testing.T) {
	b := New(nil, "x", 10)
	b.Increment()
	b.Wait() // 不应阻塞
}

func TestBarWriter(t *testing.T) {
	var buf bytes.Buffer
	b := New(&buf, "x", 1)
	if _, err := b.Writer().Write([]byte("log line\n")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	b.Increment()
	b.Wait()

	if !strings.Contains(buf.String(), "log line") {
		t.Errorf("output missing log line: %q", buf.String())
	}
}
