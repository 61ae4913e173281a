package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/sonicat/sonicat/internal/task"
)

type fakeCatalog struct {
	assetIDs []int64
	cnames   map[int64]string
	managed  map[int64]bool
	files    map[int64][]File
}

func (f *fakeCatalog) AllAssetIDs(ctx context.Context, catalog string) ([]int64, error) {
	return f.assetIDs, nil
}
func (f *fakeCatalog) Cname(ctx context.Context, assetID int64) (string, error) {
	return f.cnames[assetID], nil
}
func (f *fakeCatalog) IsManaged(ctx context.Context, assetID int64) (bool, error) {
	return f.managed[assetID], nil
}
func (f *fakeCatalog) FilesByAsset(ctx context.Context, assetID int64, filetypes []string) ([]File, error) {
	return f.files[assetID], nil
}

type fakeLedger struct {
	completed []int64
	failed    []int64
	purged    []int64
}

func (l *fakeLedger) Completed(ctx context.Context, catalog string) ([]int64, error) {
	return l.completed, nil
}
func (l *fakeLedger) Failed(ctx context.Context, catalog string) ([]int64, error) {
	return l.failed, nil
}
func (l *fakeLedger) PurgeFailedSearch(ctx context.Context, catalog string, assetID int64) error {
	l.purged = append(l.purged, assetID)
	return nil
}

func newScheduler(t *testing.T, cat *fakeCatalog, ledgers map[string]Ledger, appActions []AppAction) *Scheduler {
	t.Helper()
	pending := task.NewPendingCache()
	return New(ledgers, pending, []CatalogTasks{
		{
			Name:     "demo",
			Moniker:  "demo",
			Catalog:  cat,
			TempRoot: "/tmp/sonicat-demo",
			Archive: func(assetID int64, cname string) string {
				return "/archive/" + cname + ".rar"
			},
			AppActions: appActions,
		},
	}, 0, time.Millisecond, nil)
}

func TestMakeTasksEmitsOnlyChainHeadForRawBytesApp(t *testing.T) {
	cat := &fakeCatalog{
		assetIDs: []int64{1},
		cnames:   map[int64]string{1: "Some Label - Some Title"},
		managed:  map[int64]bool{1: true},
		files:    map[int64][]File{1: {{ID: 10, Basename: "a.wav", Dirname: ""}}},
	}
	ledgers := map[string]Ledger{"librosa": &fakeLedger{}}
	s := newScheduler(t, cat, ledgers, []AppAction{{App: "librosa", Action: "basic"}})

	tasks, err := s.MakeTasks(context.Background(), nil)
	if err != nil {
		t.Fatal(err)
	}
	// Only the chain's head (file_mover.restore) is emitted; librosa.basic
	// and the terminal file_mover.remove are withheld in PendingCache and
	// released one at a time as each predecessor succeeds.
	if len(tasks) != 1 {
		t.Fatalf("got %d tasks, want 1 (restore only): %+v", len(tasks), tasks)
	}
	if tasks[0].AppName != "file_mover" || tasks[0].Action != "restore" {
		t.Errorf("tasks[0] = %+v, want file_mover.restore", tasks[0])
	}

	restoreID := tasks[0].ID
	if !s.Pending.Contains(restoreID) {
		t.Error("restore task should have a registered continuation")
	}

	successors, ok := s.Pending.Release(restoreID)
	if !ok || len(successors) != 1 || successors[0].AppName != "librosa" {
		t.Fatalf("restore's successor = %+v, ok=%v, want [librosa]", successors, ok)
	}
	if !s.Pending.Contains(successors[0].ID) {
		t.Error("librosa task should have a registered continuation")
	}

	terminal, ok := s.Pending.Release(successors[0].ID)
	if !ok || len(terminal) != 1 || terminal[0].AppName != "file_mover" || terminal[0].Action != "remove" {
		t.Fatalf("librosa's successor = %+v, ok=%v, want [file_mover.remove]", terminal, ok)
	}
	if !s.Pending.Contains(terminal[0].ID) {
		t.Error("terminal remove task should be tracked as in flight")
	}
}

func TestMakeTasksSkipsUnmanagedAssetNeedingRestore(t *testing.T) {
	cat := &fakeCatalog{
		assetIDs: []int64{1},
		cnames:   map[int64]string{1: "Some Label - Some Title"},
		managed:  map[int64]bool{1: false},
		files:    map[int64][]File{1: {{ID: 10, Basename: "a.wav"}}},
	}
	ledgers := map[string]Ledger{"librosa": &fakeLedger{}}
	s := newScheduler(t, cat, ledgers, []AppAction{{App: "librosa", Action: "basic"}})

	tasks, err := s.MakeTasks(context.Background(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(tasks) != 0 {
		t.Fatalf("got %d tasks, want 0 (unmanaged asset skipped)", len(tasks))
	}
}

func TestMakeTasksCompletedWinsOverFailed(t *testing.T) {
	cat := &fakeCatalog{
		assetIDs: []int64{1},
		cnames:   map[int64]string{1: "Some Label - Some Title"},
		managed:  map[int64]bool{1: true},
		files:    map[int64][]File{1: {{ID: 10, Basename: "a.txt"}}},
	}
	ledgers := map[string]Ledger{
		"path_parser": &fakeLedger{completed: []int64{1}, failed: []int64{1}},
	}
	s := newScheduler(t, cat, ledgers, []AppAction{{App: "path_parser", Action: "parse"}})

	tasks, err := s.MakeTasks(context.Background(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(tasks) != 0 {
		t.Fatalf("got %d tasks, want 0 (asset 1 completed, should not be reissued)", len(tasks))
	}
}

func TestMakeTasksIdlesWhenNoWork(t *testing.T) {
	cat := &fakeCatalog{}
	s := newScheduler(t, cat, map[string]Ledger{}, nil)
	s.IdleInterval = 5 * time.Millisecond

	start := time.Now()
	tasks, err := s.MakeTasks(context.Background(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(tasks) != 0 {
		t.Fatalf("got %d tasks, want 0", len(tasks))
	}
	if time.Since(start) < 5*time.Millisecond {
		t.Error("MakeTasks should have idled for IdleInterval")
	}
}

func TestRunCycleReleasesContinuationOnSuccess(t *testing.T) {
	cat := &fakeCatalog{}
	s := newScheduler(t, cat, map[string]Ledger{}, nil)
	next := task.Task{ID: 99, AppName: "file_mover", Action: "remove"}
	if err := s.Pending.Register(1, []task.Task{next}); err != nil {
		t.Fatal(err)
	}

	incoming := &task.Task{ID: 1, Result: task.Outcome{Success: true}}
	tasks, err := s.RunCycle(context.Background(), incoming)
	if err != nil {
		t.Fatal(err)
	}
	if len(tasks) != 1 || tasks[0].ID != 99 {
		t.Fatalf("RunCycle = %+v, want [task id 99]", tasks)
	}
	if s.Pending.Contains(1) {
		t.Error("continuation should be released, not still pending")
	}
}

func TestRunCycleDoesNotReleaseOnFailure(t *testing.T) {
	cat := &fakeCatalog{}
	s := newScheduler(t, cat, map[string]Ledger{}, nil)
	if err := s.Pending.Register(1, []task.Task{{ID: 99}}); err != nil {
		t.Fatal(err)
	}

	incoming := &task.Task{ID: 1, Result: task.Outcome{Success: false, Error: "boom"}}
	tasks, err := s.RunCycle(context.Background(), incoming)
	if err != nil {
		t.Fatal(err)
	}
	if len(tasks) != 0 {
		t.Fatalf("RunCycle on failure = %+v, want none", tasks)
	}
	if !s.Pending.Contains(1) {
		t.Error("continuation should remain pending after a failed predecessor")
	}
}

func TestDispatchPurgeFailedSearch(t *testing.T) {
	cat := &fakeCatalog{}
	ledger := &fakeLedger{}
	s := newScheduler(t, cat, map[string]Ledger{"discogs": ledger}, nil)

	cmd := &task.Task{
		Action: "purge_failed_search",
		Args:   map[string]any{"app": "discogs", "catalog": "demo", "asset_id": int64(7)},
	}
	result, err := s.Dispatch(context.Background(), cmd)
	if err != nil {
		t.Fatal(err)
	}
	if !result.Result.Success {
		t.Fatalf("Dispatch result = %+v, want success", result.Result)
	}
	if len(ledger.purged) != 1 || ledger.purged[0] != 7 {
		t.Errorf("purged = %v, want [7]", ledger.purged)
	}
}

func TestDispatchSetThreshold(t *testing.T) {
	cat := &fakeCatalog{}
	s := newScheduler(t, cat, map[string]Ledger{}, nil)

	cmd := &task.Task{Action: "set_threshold", Args: map[string]any{"value": int64(5)}}
	result, err := s.Dispatch(context.Background(), cmd)
	if err != nil {
		t.Fatal(err)
	}
	if !result.Result.Success {
		t.Fatalf("Dispatch result = %+v, want success", result.Result)
	}
	if got := s.GetThreshold(); got != 5 {
		t.Errorf("Threshold = %d, want 5", got)
	}
}
