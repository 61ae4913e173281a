// Package task defines the Task message exchanged between the scheduler,
// AppRunner harness, and workers (spec §3), plus the PendingTaskCache that
// tracks a Task's successor chain. Grounded on the teacher's internal/task
// package, which already paired a supervisor shape with a StateStore
// abstraction — generalized here from per-file pipeline state to Sonicat's
// Task/continuation model.
package task

// Task is a transient message. Identity is ID; lifetime runs from emission
// by the scheduler to acknowledgement after its result commits. A Task is
// never mutated after emission except by appending to Results.
type Task struct {
	ID      int64          `json:"id"`
	AppName string         `json:"app_name"`
	Action  string         `json:"action"`
	Args    map[string]any `json:"args,omitempty"`
	Results []Result       `json:"results,omitempty"`
	Result  Outcome        `json:"result"`

	// ParentID is the id of the Task whose completion released this one as
	// a continuation, 0 if this Task was emitted directly by make_tasks.
	ParentID int64 `json:"parent_id,omitempty"`

	// RouterAppName and RouterAppType are the originating app's identity
	// and role, consulted by the routing function (spec §4.3). They are
	// set by AppRunner before a completed Task is routed, not by the
	// scheduler at emission time.
	RouterAppName string `json:"router_app_name,omitempty"`
	RouterAppType string `json:"router_app_type,omitempty"`
}

// Result is one named output payload a worker appends to a Task. Workers
// may emit more than one (inventory emits both asset_data and file_data).
type Result struct {
	Name    string `json:"name"`
	Payload any    `json:"payload"`
}

// Outcome carries a Task's completion status.
type Outcome struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// AddResult appends a named result payload.
func (t *Task) AddResult(name string, payload any) {
	t.Results = append(t.Results, Result{Name: name, Payload: payload})
}

// Succeed marks the Task successful and returns it, for use as the last
// expression in a Worker's run_task.
func (t *Task) Succeed() *Task {
	t.Result = Outcome{Success: true}
	return t
}

// Fail marks the Task failed with err's message and returns it. Failure is
// a valid outcome, not an exception channel (spec §4.2) — workers call this
// instead of returning a Go error from run_task.
func (t *Task) Fail(err error) *Task {
	t.Result = Outcome{Success: false, Error: err.Error()}
	return t
}
