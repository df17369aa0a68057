package pipeline

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ashwinyue/next-augment/internal/model"
	"github.com/ashwinyue/next-augment/internal/testutil"
)

func testJob(t *testing.T, mode model.Mode, input string) model.JobConfig {
	t.Helper()
	return model.JobConfig{
		Mode:        mode,
		InputFile:   input,
		OutputDir:   filepath.Join(t.TempDir(), "output"),
		ModelName:   "org/model",
		MaxWorkers:  4,
		Variants:    model.DefaultVariants,
		Chunking:    model.Chunking{Strategy: model.ChunkNone},
		Credentials: model.Credentials{APIKey: "key"},
	}
}

func quietRun() (*RunContext, *bytes.Buffer) {
	var buf bytes.Buffer
	return &RunContext{Logger: log.New(&buf, "", 0), Progress: io.Discard}, &buf
}

func countCSVRows(t *testing.T, path string) int {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open csv: %v", err)
	}
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	if len(rows) == 0 {
		return 0
	}
	return len(rows) - 1
}

// sftResponder: 文本含 skip 时上下文无关；含 boom 时生成失败；其余生成一条合格问答
func sftResponder(system, user string) (string, error) {
	switch system {
	case promptCtx:
		return `{"is_relevant": ` + boolString(!strings.Contains(user, "skip")) + `}`, nil
	case promptGen:
		if strings.Contains(user, "boom") {
			return "", errors.New("connection reset")
		}
		return `{"qa_pairs":[{"question":"q","answer":"a"}]}`, nil
	case promptQAV:
		return `{"is_valid": true}`, nil
	}
	return "", errors.New("unexpected stage")
}

func boolString(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

func TestRunSingleSFT(t *testing.T) {
	var rows []interface{}
	for i := 0; i < 20; i++ {
		text := "passage"
		switch {
		case i%5 == 0:
			text = "skip this passage"
		case i%7 == 0:
			text = "boom passage"
		}
		rows = append(rows, map[string]string{"text": text})
	}
	input := testutil.WriteJSONL(t, rows...)
	job := testJob(t, model.ModeSingleSFT, input)

	stages, _ := scriptedStages(sftResponder)
	rc, logs := quietRun()
	lastDone := 0
	rc.OnProgress = func(done, total int) {
		if total != 20 || done != lastDone+1 {
			t.Errorf("progress %d/%d after %d", done, total, lastDone)
		}
		lastDone = done
	}

	res, err := Run(context.Background(), rc, job, stages)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if lastDone != 20 {
		t.Errorf("progress reached %d, want 20", lastDone)
	}

	// i%5==0: 0,5,10,15 被过滤；i%7==0 且不被 5 整除: 7,14 失败
	if res.Items != 20 || res.Filtered != 4 || res.Failed != 2 || res.Records != 14 {
		t.Errorf("result = %+v", res)
	}
	if res.Records != res.Items-res.Failed-res.Filtered {
		t.Errorf("records should equal items minus failed and filtered: %+v", res)
	}

	wantCSV, wantLog := job.ArtifactPaths()
	if res.TabularPath != wantCSV || res.LogPath != wantLog {
		t.Errorf("paths = %s, %s", res.TabularPath, res.LogPath)
	}
	if filepath.Base(wantCSV) != "org-model_single_sft.csv" {
		t.Errorf("csv name = %s", filepath.Base(wantCSV))
	}

	lines := testutil.ReadLines(t, res.LogPath)
	if len(lines) != countCSVRows(t, res.TabularPath) || len(lines) != res.Records {
		t.Errorf("log lines = %d, csv rows = %d, records = %d", len(lines), countCSVRows(t, res.TabularPath), res.Records)
	}
	for _, line := range lines {
		var rec model.SFTRecord
		if err := json.Unmarshal([]byte(line), &rec); err != nil || rec.Question != "q" {
			t.Errorf("bad line %q", line)
		}
	}

	for _, idx := range []string{"item 7 failed", "item 14 failed"} {
		if !strings.Contains(logs.String(), idx) {
			t.Errorf("log missing %q", idx)
		}
	}
}

func TestRunMalformedInputMakesNoCalls(t *testing.T) {
	input := testutil.WriteFile(t, "data.csv", "text\nParis is the capital of France.\n")
	job := testJob(t, model.ModeSingleSFT, input)

	stages, chatModel := scriptedStages(sftResponder)
	rc, _ := quietRun()

	_, err := Run(context.Background(), rc, job, stages)
	var pe *model.InputParseError
	if !errors.As(err, &pe) {
		t.Fatalf("expected InputParseError, got %v", err)
	}
	if n := chatModel.CallCount(); n != 0 {
		t.Errorf("calls = %d, want 0", n)
	}
	if _, err := os.Stat(job.OutputDir); !os.IsNotExist(err) {
		t.Error("no artifacts should be created for a rejected input")
	}
}

func TestRunRejectsInvalidConfig(t *testing.T) {
	input := testutil.WriteJSONL(t, map[string]string{"text": "x"})
	stages, chatModel := scriptedStages(sftResponder)
	rc, _ := quietRun()

	tests := []struct {
		name  string
		mut   func(*model.JobConfig)
		field string
	}{
		{name: "unknown mode", mut: func(j *model.JobConfig) { j.Mode = "dpo" }, field: "mode"},
		{name: "missing api key", mut: func(j *model.JobConfig) { j.Credentials.APIKey = "" }, field: "api_key"},
		{name: "zero workers", mut: func(j *model.JobConfig) { j.MaxWorkers = 0 }, field: "max_workers"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			job := testJob(t, model.ModeSingleSFT, input)
			tt.mut(&job)
			_, err := Run(context.Background(), rc, job, stages)
			var ce *model.ConfigError
			if !errors.As(err, &ce) || ce.Field != tt.field {
				t.Fatalf("expected ConfigError on %s, got %v", tt.field, err)
			}
		})
	}
	if n := chatModel.CallCount(); n != 0 {
		t.Errorf("calls = %d, want 0", n)
	}
}

func TestRunRespectsWorkerLimit(t *testing.T) {
	var inFlight, peak int32
	respond := func(system, user string) (string, error) {
		n := atomic.AddInt32(&inFlight, 1)
		defer atomic.AddInt32(&inFlight, -1)
		for {
			p := atomic.LoadInt32(&peak)
			if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		return `{"conversation":[{"question":"q","answer":"a"}]}`, nil
	}

	var rows []interface{}
	for i := 0; i < 24; i++ {
		rows = append(rows, map[string]string{"text": "passage"})
	}
	job := testJob(t, model.ModeMultiSFT, testutil.WriteJSONL(t, rows...))
	job.MaxWorkers = 3

	stages, chatModel := scriptedStages(respond)
	rc, _ := quietRun()
	res, err := Run(context.Background(), rc, job, stages)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Records != 24 || chatModel.CallCount() != 24 {
		t.Errorf("records = %d, calls = %d", res.Records, chatModel.CallCount())
	}
	if p := atomic.LoadInt32(&peak); p > 3 {
		t.Errorf("peak concurrency = %d, limit 3", p)
	}
}

func TestRunMultiAlign(t *testing.T) {
	input := testutil.WriteJSONL(t,
		map[string]interface{}{"context": "c1", "conversation": conversationOf(2)},
		map[string]interface{}{"context": "c2", "conversation": conversationOf(4)},
	)
	job := testJob(t, model.ModeMultiAlign, input)

	stages, _ := scriptedStages(personaResponder(""))
	rc, _ := quietRun()
	res, err := Run(context.Background(), rc, job, stages)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Records != 5 {
		t.Errorf("records = %d, want 5", res.Records)
	}

	lines := testutil.ReadLines(t, res.LogPath)
	if len(lines) != 5 || countCSVRows(t, res.TabularPath) != 5 {
		t.Fatalf("log lines = %d", len(lines))
	}
	var rec model.AlignmentRecord
	if err := json.Unmarshal([]byte(lines[0]), &rec); err != nil {
		t.Fatal(err)
	}
	if rec.Conversation.Chosen.From != model.TurnGPT || rec.Conversation.Rejected.Value == "" {
		t.Errorf("record = %+v", rec)
	}
	if filepath.Base(res.LogPath) != "org-model_multi_align.jsonl" {
		t.Errorf("log name = %s", filepath.Base(res.LogPath))
	}
}

func TestNewPipeline(t *testing.T) {
	for _, mode := range model.AllModes {
		p, err := New(mode, nil)
		if err != nil {
			t.Fatalf("New(%s): %v", mode, err)
		}
		if p.Mode() != mode {
			t.Errorf("mode = %s, want %s", p.Mode(), mode)
		}
	}

	_, err := New("pretrain", nil)
	var ce *model.ConfigError
	if !errors.As(err, &ce) {
		t.Fatalf("expected ConfigError, got %v", err)
	}
}

func TestPipelineRejectsOtherModes(t *testing.T) {
	p, _ := New(model.ModeSingleSFT, nil)
	job := testJob(t, model.ModeMultiSFT, testutil.WriteJSONL(t, map[string]string{"text": "x"}))
	_, err := p.Run(context.Background(), nil, job)
	var ce *model.ConfigError
	if !errors.As(err, &ce) {
		t.Fatalf("expected ConfigError, got %v", err)
	}
}

func TestRunLogsAboveSharedProgressBar(t *testing.T) {
	input := testutil.WriteJSONL(t,
		map[string]string{"text": "passage"},
		map[string]string{"text": "boom passage"},
		map[string]string{"text": "passage"},
	)
	job := testJob(t, model.ModeSingleSFT, input)
	stages, _ := scriptedStages(sftResponder)

	var buf bytes.Buffer
	rc := NewRunContext(&buf)
	res, err := Run(context.Background(), rc, job, stages)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Failed != 1 || res.Records != 2 {
		t.Errorf("result = %+v", res)
	}

	out := buf.String()
	for _, want := range []string{"Running mode=single-sft", "item 1 failed", model.ModeSingleSFT.Label(), "✅"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if rc.Logger.Writer() != io.Writer(&buf) {
		t.Error("logger output should be restored after the run")
	}
}
