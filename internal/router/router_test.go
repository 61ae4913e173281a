package router

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/sonicat/sonicat/internal/task"
)

// stubPending's successor is a fixed file_mover.remove Task, keyed off
// whether kind is non-empty, mirroring what PendingCache.NextTask returns
// for a registered continuation.
type stubPending struct{ kind string }

func (s stubPending) ContinuationKind(int64) string { return s.kind }

func (s stubPending) NextTask(int64) (task.Task, bool) {
	if s.kind == "" {
		return task.Task{}, false
	}
	return task.Task{ID: 7, AppName: s.kind, Action: "remove", Args: map[string]any{"path": "/tmp/x"}}, true
}

func TestRoute_SchedulerDispatch(t *testing.T) {
	got, _ := Route(&task.Task{AppName: "discogs"}, "tasks", "system", nil)
	if got != "discogs" {
		t.Errorf("Route = %q, want %q", got, "discogs")
	}
}

func TestRoute_PostAnalysis(t *testing.T) {
	got, _ := Route(&task.Task{AppName: "librosa"}, "librosa", "analysis", nil)
	if got != "app_data" {
		t.Errorf("Route = %q, want %q", got, "app_data")
	}
}

func TestRoute_CleanupBackToScheduler(t *testing.T) {
	got, _ := Route(&task.Task{AppName: "file_mover"}, "file_mover", "system", nil)
	if got != "tasks" {
		t.Errorf("Route = %q, want %q", got, "tasks")
	}
}

func TestRoute_InventoryToAppData(t *testing.T) {
	got, _ := Route(&task.Task{AppName: "inventory"}, "inventory", "tokens", nil)
	if got != "app_data" {
		t.Errorf("Route = %q, want %q", got, "app_data")
	}
}

func TestRoute_AppDataToFileMoverWhenArchiveContinuationPending(t *testing.T) {
	got, next := Route(&task.Task{ID: 42}, "app_data", "system", stubPending{kind: "file_mover"})
	if got != "file_mover" {
		t.Errorf("Route = %q, want %q", got, "file_mover")
	}
	if next == nil || next.AppName != "file_mover" || next.Action != "remove" {
		t.Errorf("Route enqueue task = %+v, want the registered file_mover.remove successor", next)
	}
}

func TestRoute_AppDataTerminalWhenNoContinuation(t *testing.T) {
	got, next := Route(&task.Task{ID: 42}, "app_data", "system", stubPending{kind: ""})
	if got != "" {
		t.Errorf("Route = %q, want empty", got)
	}
	if next != nil {
		t.Errorf("Route enqueue task = %+v, want nil", next)
	}
}

func TestRoute_MetadataAndTokensRouteToAppData(t *testing.T) {
	for _, typ := range []string{"analysis", "metadata", "tokens"} {
		if got, _ := Route(&task.Task{}, "discogs", typ, nil); got != "app_data" {
			t.Errorf("Route(type=%s) = %q, want %q", typ, got, "app_data")
		}
	}
}

func TestRoute_DefaultDropsUnknownType(t *testing.T) {
	got, _ := Route(&task.Task{}, "rutracker_scraper", "scraper", nil)
	if got != "" {
		t.Errorf("Route = %q, want empty default", got)
	}
}

// TestRoute_RuleTable exercises rule 3 (by worker type) as a single table,
// comparing the full set of resolved targets against what's expected in one
// diff rather than one assertion per type.
func TestRoute_RuleTable(t *testing.T) {
	types := []string{"analysis", "metadata", "tokens", "scraper", "system"}
	want := map[string]string{
		"analysis": "app_data",
		"metadata": "app_data",
		"tokens":   "app_data",
		"scraper":  "",
		"system":   "",
	}

	got := map[string]string{}
	for _, typ := range types {
		got[typ], _ = Route(&task.Task{}, "some_worker", typ, nil)
	}

	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Route by type mismatch (-want +got):\n%s", diff)
	}
}

// TestRoute_Totality checks invariant 4 from §8: route_target returns a
// defined (possibly empty) queue name for every syntactically valid Task —
// i.e. it never panics regardless of input.
func TestRoute_Totality(t *testing.T) {
	appNames := []string{"", "tasks", "file_mover", "inventory", "app_data", "discogs", "librosa"}
	appTypes := []string{"", "system", "analysis", "metadata", "tokens", "scraper"}
	for _, an := range appNames {
		for _, at := range appTypes {
			_, _ = Route(&task.Task{AppName: "whatever", ID: 1}, an, at, stubPending{kind: "file_mover"})
		}
	}
}
