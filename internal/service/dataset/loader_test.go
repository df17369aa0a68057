package dataset

import (
	"errors"
	"strings"
	"testing"

	"github.com/ashwinyue/next-augment/internal/model"
	"github.com/ashwinyue/next-augment/internal/testutil"
)

func TestDecode(t *testing.T) {
	tests := []struct {
		name     string
		mode     model.Mode
		input    string
		wantRows int
		wantLine int // 0 表示不期望出错
	}{
		{
			name:     "sft rows with bom and blank lines",
			mode:     model.ModeSingleSFT,
			input:    "\xEF\xBB\xBF{\"text\":\"a\"}\n\n{\"text\":\"b\"}\n",
			wantRows: 2,
		},
		{
			name:     "single align",
			mode:     model.ModeSingleAlign,
			input:    `{"context":"c","question":"q","answer":"a"}`,
			wantRows: 1,
		},
		{
			name:     "multi align",
			mode:     model.ModeMultiAlign,
			input:    `{"context":"c","conversation":[{"question":"q1","answer":"a1"},{"question":"q2","answer":"a2"}]}`,
			wantRows: 1,
		},
		{
			name:     "csv upload",
			mode:     model.ModeSingleSFT,
			input:    "text\nParis is the capital of France.\n",
			wantLine: 1,
		},
		{
			name:     "broken second line",
			mode:     model.ModeMultiSFT,
			input:    "{\"text\":\"a\"}\n{\"text\": \n",
			wantLine: 2,
		},
		{
			name:     "missing text field",
			mode:     model.ModeSingleSFT,
			input:    `{"context":"c"}`,
			wantLine: 1,
		},
		{
			name:     "alignment row without answer",
			mode:     model.ModeSingleAlign,
			input:    `{"context":"c","question":"q"}`,
			wantLine: 1,
		},
		{
			name:     "multi align turn without answer",
			mode:     model.ModeMultiAlign,
			input:    "{\"context\":\"c\",\"conversation\":[{\"question\":\"q1\",\"answer\":\"a1\"}]}\n{\"context\":\"c\",\"conversation\":[{\"question\":\"q1\",\"answer\":\"\"}]}\n",
			wantLine: 2,
		},
		{
			name:     "multi align without conversation",
			mode:     model.ModeMultiAlign,
			input:    `{"context":"c"}`,
			wantLine: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows, err := Decode(strings.NewReader(tt.input), "input.jsonl", tt.mode, 0)
			if tt.wantLine > 0 {
				var pe *model.InputParseError
				if !errors.As(err, &pe) {
					t.Fatalf("expected InputParseError, got %v", err)
				}
				if pe.Line != tt.wantLine {
					t.Errorf("line = %d, want %d", pe.Line, tt.wantLine)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(rows) != tt.wantRows {
				t.Errorf("rows = %d, want %d", len(rows), tt.wantRows)
			}
		})
	}
}

func TestDecodeEmpty(t *testing.T) {
	_, err := Decode(strings.NewReader("\n\n"), "empty.jsonl", model.ModeSingleSFT, 0)
	var pe *model.InputParseError
	if !errors.As(err, &pe) {
		t.Fatalf("expected InputParseError, got %v", err)
	}
}

func TestPreviewStopsEarly(t *testing.T) {
	var b strings.Builder
	for i := 0; i < PreviewLines; i++ {
		b.WriteString(`{"text":"ok"}` + "\n")
	}
	b.WriteString("not json\n")

	if err := Preview(strings.NewReader(b.String()), "big.jsonl", model.ModeSingleSFT); err != nil {
		t.Fatalf("preview should ignore lines after %d: %v", PreviewLines, err)
	}
	if _, err := Decode(strings.NewReader(b.String()), "big.jsonl", model.ModeSingleSFT, 0); err == nil {
		t.Fatal("full decode should fail")
	}
}

func TestLoad(t *testing.T) {
	path := testutil.WriteJSONL(t, map[string]string{"text": "one"}, map[string]string{"text": "two"})
	rows, err := Load(path, model.ModeMultiSFT)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 2 || rows[1].Text != "two" {
		t.Errorf("rows = %+v", rows)
	}

	_, err = Load(path+".missing", model.ModeMultiSFT)
	var pe *model.InputParseError
	if !errors.As(err, &pe) {
		t.Fatalf("expected InputParseError, got %v", err)
	}
}
