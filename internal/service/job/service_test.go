package job

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ashwinyue/next-augment/internal/config"
	"github.com/ashwinyue/next-augment/internal/model"
	"github.com/ashwinyue/next-augment/internal/repository"
	"github.com/ashwinyue/next-augment/internal/service/event"
	"github.com/ashwinyue/next-augment/internal/service/file"
	"github.com/ashwinyue/next-augment/internal/service/llm"
	"github.com/ashwinyue/next-augment/internal/testutil"
	einomodel "github.com/cloudwego/eino/components/model"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		LLM: config.LLMConfig{
			ModelName:             "org/model",
			APIKey:                "key",
			BaseURL:               "http://llm.local/v1",
			GuidedDecodingBackend: "outlines",
		},
		Job: config.JobConfig{
			OutputDir:  filepath.Join(t.TempDir(), "output"),
			MaxWorkers: 2,
			Variants:   3,
			Chunking:   config.ChunkingConfig{Strategy: "none"},
		},
		Agents: map[string]config.AgentConfig{
			"context_validator": {SystemPrompt: "CTX"},
			"generator":         {SystemPrompt: "GEN"},
			"qa_validator":      {SystemPrompt: "QAV"},
		},
	}
}

func sftModel() *testutil.ChatModel {
	return testutil.NewChatModel(func(system, user string) (string, error) {
		switch system {
		case "CTX":
			return `{"is_relevant": true}`, nil
		case "GEN":
			return `{"qa_pairs":[{"question":"q","answer":"a"}]}`, nil
		case "QAV":
			return `{"is_valid": true}`, nil
		}
		return "", errors.New("unexpected stage")
	})
}

func factoryFor(chatModel einomodel.BaseChatModel) ChatModelFactory {
	return func(ctx context.Context, cfg llm.ChatModelConfig) (einomodel.BaseChatModel, error) {
		return chatModel, nil
	}
}

const twoRows = "{\"text\":\"one\"}\n{\"text\":\"two\"}\n"

func TestCreateAndRun(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)
	repo := repository.NewMemoryJobRepository()
	publishDir := t.TempDir()
	publisher, err := file.NewLocalStorage(publishDir)
	if err != nil {
		t.Fatal(err)
	}

	svc, err := NewService(cfg, repo, WithChatModelFactory(factoryFor(sftModel())), WithPublisher(publisher))
	if err != nil {
		t.Fatal(err)
	}

	job, err := svc.Create(ctx, &CreateRequest{
		Mode:      "single-sft",
		InputName: "passages.jsonl",
		Input:     strings.NewReader(twoRows),
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if job.Status != model.JobStatusPending || job.ModelName != "org/model" {
		t.Errorf("job = %+v", job)
	}

	svc.Wait()

	got, err := svc.Get(ctx, job.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != model.JobStatusCompleted {
		t.Fatalf("status = %s, error = %s", got.Status, got.ErrorMsg)
	}
	if got.Items != 2 || got.Records != 2 || got.StartedAt == nil || got.CompletedAt == nil {
		t.Errorf("job = %+v", got)
	}
	if !strings.HasPrefix(got.TabularPath, filepath.Join(cfg.Job.OutputDir, job.ID)) {
		t.Errorf("artifacts should live in the job directory: %s", got.TabularPath)
	}

	path, err := svc.Artifact(ctx, job.ID, "jsonl")
	if err != nil {
		t.Fatalf("Artifact: %v", err)
	}
	if n := len(testutil.ReadLines(t, path)); n != 2 {
		t.Errorf("log lines = %d", n)
	}
	if _, err := os.Stat(filepath.Join(publishDir, job.ID, "org-model_single_sft.csv")); err != nil {
		t.Errorf("csv not published: %v", err)
	}

	stream, ok := svc.Stream(job.ID)
	if !ok {
		t.Fatal("stream missing")
	}
	history, _, cancel := stream.Subscribe()
	cancel()
	last := history[len(history)-1]
	if last.Type != event.EventEnd || last.Data != string(model.JobStatusCompleted) {
		t.Errorf("last event = %+v", last)
	}
	progress := 0
	for _, evt := range history {
		if evt.Type == event.EventProgress {
			progress++
		}
	}
	if progress != 2 {
		t.Errorf("progress events = %d, want 2", progress)
	}

	jobs, total, err := svc.List(ctx, 0, 0)
	if err != nil || total != 1 || len(jobs) != 1 {
		t.Errorf("List = %d, %d, %v", len(jobs), total, err)
	}
}

func TestCreateRejectsBadInput(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)
	repo := repository.NewMemoryJobRepository()
	chatModel := sftModel()
	svc, err := NewService(cfg, repo, WithChatModelFactory(factoryFor(chatModel)))
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		req     *CreateRequest
		wantErr interface{}
	}{
		{
			name:    "csv upload",
			req:     &CreateRequest{Mode: "single-sft", InputName: "data.csv", Input: strings.NewReader("text\nhello\n")},
			wantErr: new(*model.InputParseError),
		},
		{
			name:    "wrong fields for mode",
			req:     &CreateRequest{Mode: "multi-align", Input: strings.NewReader(twoRows)},
			wantErr: new(*model.InputParseError),
		},
		{
			name:    "unknown mode",
			req:     &CreateRequest{Mode: "rlhf", Input: strings.NewReader(twoRows)},
			wantErr: new(*model.ConfigError),
		},
		{
			name:    "too many workers",
			req:     &CreateRequest{Mode: "single-sft", MaxWorkers: 500, Input: strings.NewReader(twoRows)},
			wantErr: new(*model.ConfigError),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(ctx, tt.req)
			if err == nil || !errors.As(err, tt.wantErr) {
				t.Fatalf("err = %v, want %T", err, tt.wantErr)
			}
		})
	}

	svc.Wait()
	if _, total, _ := repo.List(0, 10); total != 0 {
		t.Errorf("rejected uploads must not create jobs, got %d", total)
	}
	if chatModel.CallCount() != 0 {
		t.Errorf("calls = %d, want 0", chatModel.CallCount())
	}
}

func TestRunFailsWhenModelUnavailable(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemoryJobRepository()
	svc, err := NewService(testConfig(t), repo, WithChatModelFactory(
		func(ctx context.Context, cfg llm.ChatModelConfig) (einomodel.BaseChatModel, error) {
			return nil, errors.New("bad endpoint")
		}))
	if err != nil {
		t.Fatal(err)
	}

	job, err := svc.Create(ctx, &CreateRequest{Mode: "multi-sft", Input: strings.NewReader(twoRows)})
	if err != nil {
		t.Fatal(err)
	}
	svc.Wait()

	got, _ := svc.Get(ctx, job.ID)
	if got.Status != model.JobStatusFailed || !strings.Contains(got.ErrorMsg, "bad endpoint") {
		t.Errorf("job = %+v", got)
	}
	if _, err := svc.Artifact(ctx, job.ID, "csv"); !errors.Is(err, ErrArtifactNotReady) {
		t.Errorf("err = %v, want ErrArtifactNotReady", err)
	}
}

func TestArtifactFormat(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemoryJobRepository()
	svc, err := NewService(testConfig(t), repo, WithChatModelFactory(factoryFor(sftModel())))
	if err != nil {
		t.Fatal(err)
	}
	job, err := svc.Create(ctx, &CreateRequest{Mode: "single-sft", Input: strings.NewReader(twoRows)})
	if err != nil {
		t.Fatal(err)
	}
	svc.Wait()

	var ce *model.ConfigError
	if _, err := svc.Artifact(ctx, job.ID, "parquet"); !errors.As(err, &ce) {
		t.Errorf("err = %v, want ConfigError", err)
	}
	if _, err := svc.Artifact(ctx, "missing", "csv"); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
	path, err := svc.Artifact(ctx, job.ID, "csv")
	if err != nil || filepath.Ext(path) != ".csv" {
		t.Errorf("Artifact = %s, %v", path, err)
	}
}

func TestFinishedStreamsAreBounded(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)
	svc, err := NewService(cfg, repository.NewMemoryJobRepository(), WithChatModelFactory(factoryFor(sftModel())))
	if err != nil {
		t.Fatal(err)
	}
	svc.keepStreams = 2

	var ids []string
	for i := 0; i < 4; i++ {
		job, err := svc.Create(ctx, &CreateRequest{Mode: "single-sft", Input: strings.NewReader(twoRows)})
		if err != nil {
			t.Fatalf("Create: %v", err)
		}
		// 逐个等待，保证结束顺序与创建顺序一致
		svc.Wait()
		ids = append(ids, job.ID)
	}

	for i, id := range ids {
		_, ok := svc.Stream(id)
		if want := i >= 2; ok != want {
			t.Errorf("job %d stream kept = %v, want %v", i, ok, want)
		}
		got, err := svc.Get(ctx, id)
		if err != nil || got.Status != model.JobStatusCompleted {
			t.Errorf("job %d = %+v, %v", i, got, err)
		}
	}
}
