package callback

import (
	"bytes"
	"context"
	"errors"
	"log"
	"strings"
	"testing"

	"github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/components"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

func TestLogger(t *testing.T) {
	ctx := context.Background()
	info := &callbacks.RunInfo{Name: "generator", Component: components.ComponentOfChatModel}

	t.Run("debug logs start and end", func(t *testing.T) {
		var buf bytes.Buffer
		l := NewLogger(log.New(&buf, "", 0), true)

		l.OnStart(ctx, info, &model.CallbackInput{Messages: []*schema.Message{
			schema.SystemMessage("sys"), schema.UserMessage("hi"),
		}})
		l.OnEnd(ctx, info, &model.CallbackOutput{Message: schema.AssistantMessage(strings.Repeat("x", 300), nil)})

		out := buf.String()
		if !strings.Contains(out, "stage=generator messages=2") {
			t.Errorf("missing start line: %q", out)
		}
		if !strings.Contains(out, "...") {
			t.Errorf("expected truncated output: %q", out)
		}
	})

	t.Run("quiet mode only logs errors", func(t *testing.T) {
		var buf bytes.Buffer
		l := NewLogger(log.New(&buf, "", 0), false)

		l.OnStart(ctx, info, &model.CallbackInput{})
		if buf.Len() != 0 {
			t.Errorf("expected no output, got %q", buf.String())
		}
		l.OnError(ctx, info, errors.New("boom"))
		if !strings.Contains(buf.String(), "error=boom") {
			t.Errorf("missing error line: %q", buf.String())
		}
	})
}
