package filemover

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/sonicat/sonicat/internal/task"
)

// App wraps a Mover as a worker.Worker, dispatching file_mover.{move, remove,
// archive, restore} (spec §4.4) by task action, mirroring the original
// FileMover.run_cycle's single action-to-method dispatch.
type App struct {
	Mover *Mover
	Log   *zap.SugaredLogger
}

// NewApp builds a file_mover worker using the system rar/unrar binaries.
func NewApp(log *zap.SugaredLogger) *App {
	return &App{Mover: New(), Log: log}
}

// LoadCatalogReplicas is a no-op for file_mover: it has no catalog replica
// of its own, only the filesystem it operates on directly.
func (a *App) LoadCatalogReplicas(ctx context.Context) error { return nil }

// RunTask dispatches one file_mover task by its action and records the
// filesystem effect's outcome on the task.
func (a *App) RunTask(ctx context.Context, t *task.Task) *task.Task {
	from, _ := t.Args["from"].(string)
	to, _ := t.Args["to"].(string)
	path, _ := t.Args["path"].(string)

	var err error
	switch t.Action {
	case "move":
		_, err = a.Mover.Move(ctx, from, to)
	case "remove":
		err = a.Mover.Remove(ctx, path)
	case "archive":
		err = a.Mover.Archive(ctx, from, to)
	case "restore":
		err = a.Mover.Restore(ctx, from, to)
	default:
		err = fmt.Errorf("filemover: unknown action %q", t.Action)
	}

	if err != nil {
		if a.Log != nil {
			a.Log.Errorw("file_mover action failed", "task_id", t.ID, "action", t.Action, "error", err)
		}
		return t.Fail(err)
	}
	return t.Succeed()
}
