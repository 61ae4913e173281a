// Package router implements the routing function from spec §4.3: a pure,
// I/O-free mapping from a completed Task to the name of the queue its
// result should be enqueued onto next. Grounded on the teacher's pipeline
// step dispatch in internal/task/manager.go (a switch over step.Type
// choosing the next effect) generalized from a fixed copy/delete/archive
// chain into a table of routing rules evaluated in order, first match
// wins.
package router

import "github.com/sonicat/sonicat/internal/task"

// PendingQueryer answers whether a parent task id has a registered
// continuation and, if so, what it is. AppRunner's route_task consults the
// scheduler's PendingCache through this narrow interface so router stays
// pure with respect to everything except this one read.
type PendingQueryer interface {
	// ContinuationKind returns the app_name of the next queued continuation
	// for parentID, or "" if there is none.
	ContinuationKind(parentID int64) string
	// NextTask returns the full registered continuation Task for parentID,
	// or (Task{}, false) if there is none. app_data's AppRunner runs in its
	// own OS process and never built the continuation itself (the
	// scheduler did, at make_tasks time) — it has to fetch the actual
	// successor payload here rather than route the Task it just finished.
	NextTask(parentID int64) (task.Task, bool)
}

// Route computes route_target(task, routerAppName, routerAppType). t is the
// Task just completed by the app named routerAppName of type
// routerAppType; pending resolves app_data's next continuation when
// needed. Returns the destination queue name (or "" to drop, and the
// caller should log) and the Task to enqueue there. That Task is normally
// t itself, except out of app_data, where it's the registered successor
// fetched from pending — not t, which is still the upstream worker's own
// result and carries none of file_mover.remove's arguments.
func Route(t *task.Task, routerAppName, routerAppType string, pending PendingQueryer) (string, *task.Task) {
	// Rule 1: scheduler -> worker hop. The Task names its own destination.
	if routerAppName == "tasks" {
		return t.AppName, t
	}

	// Rule 2: transform-specific edges (post-worker hops).
	switch routerAppName {
	case "file_mover":
		return "tasks", t
	case "inventory":
		return "app_data", t
	case "app_data":
		if pending != nil {
			if next, ok := pending.NextTask(t.ID); ok && next.AppName == "file_mover" {
				return "file_mover", &next
			}
		}
		return "", nil
	}

	// Rule 3: by worker type.
	switch routerAppType {
	case "analysis", "metadata", "tokens":
		return "app_data", t
	}

	// Rule 4: default.
	return "", nil
}
