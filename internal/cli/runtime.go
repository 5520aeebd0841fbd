package cli

import (
	"context"

	"go.uber.org/zap"

	"github.com/alamshoaib134/git-secret-scanner/config"
	"github.com/alamshoaib134/git-secret-scanner/internal/db"
	"github.com/alamshoaib134/git-secret-scanner/internal/git"
	"github.com/alamshoaib134/git-secret-scanner/internal/scan"
	"github.com/alamshoaib134/git-secret-scanner/internal/services"
)

// runtime is the assembled scan stack.
type runtime struct {
	engine   *scan.Engine
	store    *db.MemoryStore
	consumer *services.Consumer
	orch     *services.Orchestrator
}

// newHistory picks the git backend named in the config.
func newHistory(cfg config.Config, log *zap.SugaredLogger) git.History {
	timeouts := git.Timeouts{
		Clone:       cfg.CloneTimeout,
		Materialize: cfg.MaterializeTimeout,
		Command:     cfg.CommandTimeout,
	}
	if cfg.GitBackend == config.BackendGoGit {
		return git.NewGoGitHistory(timeouts, log)
	}
	return git.NewCLIHistory(cfg.GitPath, timeouts, log)
}

// buildRuntime assembles the stack. Background jobs run under ctx when
// async is set; otherwise only Execute is usable.
func buildRuntime(ctx context.Context, cfg config.Config, log *zap.SugaredLogger, async bool) (*runtime, error) {
	engine := scan.NewEngine(scan.DefaultCatalog(log))
	tree, err := scan.NewTreeScanner(engine, cfg.ExcludeGlobs, log)
	if err != nil {
		return nil, err
	}

	rt := &runtime{engine: engine, store: db.NewMemoryStore(cfg.JobTTL)}
	if async {
		rt.consumer = services.NewConsumer(ctx, cfg.MaxConcurrentScans, log)
	}
	rt.orch = services.NewOrchestrator(rt.store, newHistory(cfg, log), engine, tree, rt.consumer,
		services.Options{MaxCommits: cfg.MaxCommits, ScratchDir: cfg.ScratchDir}, log)
	return rt, nil
}
