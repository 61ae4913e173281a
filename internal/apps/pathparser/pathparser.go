// Package pathparser implements the path_parser worker (spec §4.4), the
// thin Worker-contract wrapper around internal/pathparser's pure
// tokenization logic.
package pathparser

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/sonicat/sonicat/internal/pathparser"
	"github.com/sonicat/sonicat/internal/task"
)

type App struct {
	Log *zap.SugaredLogger
}

func NewApp(log *zap.SugaredLogger) *App { return &App{Log: log} }

func (a *App) LoadCatalogReplicas(ctx context.Context) error { return nil }

// RunTask implements path_parser.parse(file_paths[]).
func (a *App) RunTask(ctx context.Context, t *task.Task) *task.Task {
	raw, _ := t.Args["file_paths"].([]any)
	if len(raw) == 0 {
		return t.Fail(fmt.Errorf("path_parser: no file_paths"))
	}

	for _, r := range raw {
		m, ok := r.(map[string]any)
		if !ok {
			continue
		}
		fileID, _ := m["file_id"].(int64)
		path, _ := m["path"].(string)

		parsed := pathparser.Parse(path)
		t.AddResult("path_tokens", map[string]any{
			"file_id": fileID,
			"key":     parsed.Key,
			"tempo":   parsed.Tempo,
			"tokens":  parsed.Tokens,
		})
	}
	return t.Succeed()
}
