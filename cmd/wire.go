package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/rs/zerolog/log"

	"github.com/tanpawarit/transcript-notes/agent/agents/orchestrator"
	"github.com/tanpawarit/transcript-notes/agent/agents/specialist"
	memoryx "github.com/tanpawarit/transcript-notes/agent/memory"
	"github.com/tanpawarit/transcript-notes/agent/postprocess"
	toolx "github.com/tanpawarit/transcript-notes/agent/tool"
	configx "github.com/tanpawarit/transcript-notes/pkg/config"
	logx "github.com/tanpawarit/transcript-notes/pkg/logger"
)

type app struct {
	store        memoryx.Store
	memory       *memoryx.SessionMemory
	orchestrator *orchestrator.Orchestrator
	chain        *postprocess.Chain
}

// wireApp loads LOG_, AGENT_MEMORY_ and NOTES_ settings and builds the pipeline
// over the configured memory store.
func wireApp(ctx context.Context, envFile string, logOut io.Writer) (*app, error) {
	opt := configx.WithEnvFile(envFile)

	logCfg, err := configx.New[logx.Config]("LOG", opt)
	if err != nil {
		return nil, fmt.Errorf("load log config: %w", err)
	}
	logx.InitWriter(logOut, *logCfg)

	memCfg, err := configx.New[memoryx.Config]("AGENT_MEMORY", opt)
	if err != nil {
		return nil, fmt.Errorf("load memory config: %w", err)
	}
	notesCfg, err := configx.New[specialist.Config]("NOTES", opt)
	if err != nil {
		return nil, fmt.Errorf("load notes config: %w", err)
	}

	registry, err := specialist.NewRegistry(toolx.DefaultToolkit(), *notesCfg)
	if err != nil {
		return nil, fmt.Errorf("wire stage registry: %w", err)
	}

	store, err := memoryx.Open(ctx, *memCfg)
	if err != nil {
		return nil, fmt.Errorf("open memory store: %w", err)
	}
	memory := memoryx.NewSessionMemory(store)

	orch, err := orchestrator.New(memory, registry)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("wire orchestrator: %w", err)
	}

	log.Debug().Str("driver", memCfg.Driver).Msg("app wired")
	return &app{
		store:        store,
		memory:       memory,
		orchestrator: orch,
		chain:        postprocess.NewChain(),
	}, nil
}

func (a *app) close() error {
	if a == nil || a.store == nil {
		return nil
	}
	return a.store.Close()
}
