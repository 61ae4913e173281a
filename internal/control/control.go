// Package control implements command_bridge (spec §4.1's "dispatch as a
// control-plane command"): an HTTP surface over the scheduler, repurposing
// the teacher's internal/api.Server (health/tasks/reload/config endpoints
// over a bare http.ServeMux) onto a chi router with httprate rate limiting
// and a Prometheus /metrics endpoint, following the rest of the pack's
// chi+httprate+client_golang convention for an HTTP control plane.
package control

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/sonicat/sonicat/internal/task"
)

// Dispatcher handles one command_bridge command, the control-plane branch
// of Scheduler.RunCycle (spec §4.1): purge a ledger entry, force a catalog
// rescan, or adjust the per-cycle threshold.
type Dispatcher interface {
	Dispatch(ctx context.Context, cmd *task.Task) (*task.Task, error)
	// PendingCounts reports an in-flight task count per catalog name,
	// surfaced at GET /tasks (Scheduler reports the same process-wide
	// total for every catalog).
	PendingCounts() map[string]int
}

// Server is the command_bridge HTTP control plane.
type Server struct {
	log    *zap.SugaredLogger
	ctrl   Dispatcher
	router chi.Router
	srv    *http.Server
	addr   string
}

// New builds a Server. rateLimit is the requests-per-minute ceiling
// httprate.LimitByIP enforces on /command (spec §5's queue/throttle
// envelope applied here to the operator-facing surface, not the metadata
// API clients that already have their own apiclient.Throttle).
func New(log *zap.SugaredLogger, ctrl Dispatcher, addr string, rateLimit int) *Server {
	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(chimw.RequestID)

	s := &Server{log: log, ctrl: ctrl, router: r, addr: addr}

	r.Get("/health", s.handleHealth)
	r.Get("/tasks", s.handleTasks)
	r.Handle("/metrics", promhttp.Handler())

	commandRoute := chi.NewRouter()
	if rateLimit > 0 {
		commandRoute.Use(httprate.Limit(rateLimit, time.Minute, httprate.WithKeyFuncs(httprate.KeyByIP)))
	}
	commandRoute.Post("/", s.handleCommand)
	r.Mount("/command", commandRoute)

	return s
}

// Start begins serving in the background; ctx cancellation triggers
// Shutdown, mirroring the teacher's Server.Start.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	s.srv = &http.Server{Handler: s.router, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if s.log != nil {
			s.log.Infow("command_bridge listening", "addr", s.addr)
		}
		if err := s.srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			if s.log != nil {
				s.log.Errorw("command_bridge server error", "error", err)
			}
		}
	}()
	go func() {
		<-ctx.Done()
		_ = s.Shutdown(context.Background())
	}()
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}
	return s.srv.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"status": "ok"})
}

func (s *Server) handleTasks(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if s.ctrl == nil {
		_ = json.NewEncoder(w).Encode(map[string]int{})
		return
	}
	_ = json.NewEncoder(w).Encode(s.ctrl.PendingCounts())
}

// handleCommand accepts a command_bridge Task body and dispatches it via
// Dispatcher.Dispatch, returning the resulting Task as JSON. Each dispatch
// gets its own uuid correlation id for the two log lines bracketing it,
// separate from chi's per-HTTP-request id and from the Task's own
// monotonic-tick ID.

func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request) {
	if s.ctrl == nil {
		http.Error(w, "control unavailable", http.StatusServiceUnavailable)
		return
	}
	raw, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "read body: "+err.Error(), http.StatusBadRequest)
		return
	}
	var cmd task.Task
	if err := json.Unmarshal(raw, &cmd); err != nil {
		http.Error(w, "decode command: "+err.Error(), http.StatusBadRequest)
		return
	}
	cmd.AppName = "command_bridge"

	corrID := uuid.New().String()
	if s.log != nil {
		s.log.Infow("command_bridge dispatching", "correlation_id", corrID, "action", cmd.Action)
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()
	result, err := s.ctrl.Dispatch(ctx, &cmd)
	if err != nil {
		if s.log != nil {
			s.log.Errorw("command_bridge dispatch failed", "correlation_id", corrID, "error", err)
		}
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(result)
}
