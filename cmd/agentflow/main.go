// Command agentflow is a thin demonstration entrypoint over the Session
// Façade: it wires configuration, structured logging, optional tracing,
// the workflow store (with built-in templates installed), the node
// registry, a file-backed memory manager, and the reference OpenAI
// ModelAdapter into one session, then drives a single invocation from
// the command line, streaming each lifecycle event to stdout as it
// happens.
//
// Grounded on the teacher's cmd/server/main.go: flag parsing, config.Load,
// logger.Setup, a signal-driven graceful shutdown, and "log what's
// listening" startup messages, narrowed from an HTTP server's lifecycle
// to one synchronous graph invocation's lifecycle.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/flowglyph/agentflow/internal/config"
	"github.com/flowglyph/agentflow/internal/infrastructure/logger"
	"github.com/flowglyph/agentflow/internal/infrastructure/storage/eventlog"
	"github.com/flowglyph/agentflow/internal/infrastructure/tracing"
	"github.com/flowglyph/agentflow/pkg/executor"
	"github.com/flowglyph/agentflow/pkg/executor/builtin"
	"github.com/flowglyph/agentflow/pkg/memory/file"
	"github.com/flowglyph/agentflow/pkg/modeladapter/openai"
	"github.com/flowglyph/agentflow/pkg/models"
	"github.com/flowglyph/agentflow/pkg/session"
	"github.com/flowglyph/agentflow/pkg/store"
)

func main() {
	var (
		input      = flag.String("input", "ping", "task to send through the workflow graph")
		graphName  = flag.String("graph", "", "template name to run (simple, autonomous, hard_path); empty resolves the fallback chain")
		workflowID = flag.String("workflow", "", "explicit workflow id to load, overrides -graph")
		modelName  = flag.String("model", "", "model name override, falls back to AGENTFLOW_DEFAULT_MODEL")
	)
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "agentflow: load config:", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Logging)
	logger.SetDefault(log)
	log.Info("starting agentflow", "graph", *graphName, "workflow", *workflowID)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	provider, err := tracing.NewProvider(ctx, tracing.Config{
		Enabled:     cfg.Tracing.Enabled,
		ServiceName: cfg.Tracing.ServiceName,
	})
	if err != nil {
		log.Error("tracing provider init failed, continuing without spans", "error", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := provider.Shutdown(shutdownCtx); err != nil {
			log.Error("tracing shutdown failed", "error", err)
		}
	}()

	wfStore, err := store.New(cfg.Engine.WorkflowDir)
	if err != nil {
		log.Error("workflow store init failed", "error", err)
		os.Exit(1)
	}
	if err := store.InstallBuiltinTemplates(wfStore); err != nil {
		log.Error("install built-in templates failed", "error", err)
		os.Exit(1)
	}

	registry := executor.NewRegistry()
	if err := builtin.RegisterAll(registry); err != nil {
		log.Error("register built-in nodes failed", "error", err)
		os.Exit(1)
	}

	sessionID := uuid.NewString()

	mem := file.New(cfg.Engine.MemoryDir, sessionID)
	model := openai.New(sessionID, openai.WithModel(firstNonEmpty(*modelName, cfg.Engine.DefaultModel)))
	sessLogger := logger.NewSessionLogger(log, sessionID)

	var journal session.Journal
	if cfg.Database.URL != "" {
		j, err := eventlog.Open(ctx, eventlog.DefaultConfig(cfg.Database.URL))
		if err != nil {
			log.Error("event journal open failed, continuing without it", "error", err)
		} else {
			journal = j
			defer j.Close()
		}
	}

	sess, err := session.Initialize(ctx, session.Config{
		SessionID:        sessionID,
		SessionName:      "agentflow-cli",
		ModelName:        firstNonEmpty(*modelName, cfg.Engine.DefaultModel),
		Timeout:          cfg.Engine.DefaultTimeout,
		MaxIterations:    cfg.Engine.DefaultMaxIterations,
		MaxRetries:       cfg.Engine.DefaultMaxRetries,
		WorkflowID:       *workflowID,
		GraphName:        *graphName,
		MaxIterationsRun: cfg.Engine.DefaultMaxIterations * 2,
		ContextGuard: &executor.ContextGuardConfig{
			ContextLimit: cfg.Engine.ContextLimit,
			WarnRatio:    0.7,
			BlockRatio:   0.9,
		},
	}, session.Deps{
		Store:   wfStore,
		Model:   model,
		Memory:  mem,
		Logger:  sessLogger,
		Journal: journal,
		Nodes:   registry,
	})
	if err != nil {
		log.Error("session init failed", "error", err)
		os.Exit(1)
	}
	defer func() {
		cleanupCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := sess.Cleanup(cleanupCtx); err != nil {
			log.Error("session cleanup failed", "error", err)
		}
	}()

	events, result := sess.Stream(ctx, *input, sessionID)
	for ev := range events {
		printEvent(ev)
	}
	if err := result(); err != nil {
		log.Error("invocation failed", "error", err)
		os.Exit(1)
	}

	log.Info("invocation complete", "sessionId", sessionID)
}

func printEvent(ev models.ExecutionEvent) {
	line, err := json.Marshal(ev)
	if err != nil {
		fmt.Fprintln(os.Stderr, "agentflow: marshal event:", err)
		return
	}
	fmt.Println(string(line))
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
