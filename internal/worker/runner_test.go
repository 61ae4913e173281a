package worker

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/sonicat/sonicat/internal/queue"
	"github.com/sonicat/sonicat/internal/task"
)

type echoWorker struct{ loaded bool }

func (w *echoWorker) LoadCatalogReplicas(ctx context.Context) error {
	w.loaded = true
	return nil
}

func (w *echoWorker) RunTask(ctx context.Context, t *task.Task) *task.Task {
	return t.Succeed()
}

type noPending struct{}

func (noPending) ContinuationKind(int64) string   { return "" }
func (noPending) NextTask(int64) (task.Task, bool) { return task.Task{}, false }

func TestRunner_DequeuesRunsAndRoutes(t *testing.T) {
	fake := queue.NewFake()
	ew := &echoWorker{}
	r := &Runner{
		AppName: "librosa",
		AppType: "analysis",
		Worker:  ew,
		Queues:  fake,
		Pending: noPending{},
		Log:     zap.NewNop().Sugar(),
	}

	if err := fake.Inbound().Enqueue(context.Background(), &task.Task{ID: 1, AppName: "librosa"}); err != nil {
		t.Fatalf("seed enqueue: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	deadline := time.Now().Add(2 * time.Second)
	for fake.Len("app_data") == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
	<-done

	if !ew.loaded {
		t.Error("LoadCatalogReplicas was not called")
	}
	if got := fake.Len("app_data"); got != 1 {
		t.Fatalf("app_data queue len = %d, want 1 (librosa/analysis routes there)", got)
	}
}
