package orchestrator

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	contractx "github.com/tanpawarit/transcript-notes/agent/contract"
	nodex "github.com/tanpawarit/transcript-notes/agent/nodes/orchestrator"
	logx "github.com/tanpawarit/transcript-notes/pkg/logger"
)

var ErrInvalidSession = nodex.ErrInvalidSession

type Orchestrator struct {
	memory contractx.Memory
	stages contractx.Registry

	now   func() time.Time
	newID func() string
	log   zerolog.Logger
}

type Option func(*Orchestrator)

func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) {
		if now != nil {
			o.now = now
		}
	}
}

// WithRunIDs overrides the run id generator.
func WithRunIDs(newID func() string) Option {
	return func(o *Orchestrator) {
		if newID != nil {
			o.newID = newID
		}
	}
}

func New(memory contractx.Memory, stages contractx.Registry, opts ...Option) (*Orchestrator, error) {
	if memory == nil {
		return nil, errors.New("session memory is required")
	}
	if stages == nil {
		return nil, errors.New("stage registry is required")
	}

	o := &Orchestrator{
		memory: memory,
		stages: stages,
		now:    time.Now,
		newID:  uuid.NewString,
		log:    logx.Component("orchestrator"),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}
	return o, nil
}

// Run produces notes for one transcript. Stages run strictly in plan order;
// any stage error aborts the run.
func (o *Orchestrator) Run(ctx context.Context, req contractx.RunRequest) (contractx.RunResult, error) {
	in, err := nodex.ValidateRequest(req, o.newID(), o.now)
	if err != nil {
		return contractx.RunResult{}, err
	}
	in.FaultsBefore = o.memory.Status(in.SessionID).Faults

	logger := o.log.With().Str("session_id", in.SessionID).Str("run_id", in.RunID).Logger()
	logger.Debug().Int("transcript_len", len(in.Transcript)).Msg("run started")

	out, err := o.pipeline().invoke(logger.WithContext(ctx), in)
	if err != nil {
		logger.Error().Err(err).Msg("run failed")
		return contractx.RunResult{}, err
	}

	event := logger.Info().
		Strs("plan", out.Plan).
		Int("key_points", len(out.KeyPoints)).
		Int("action_items", len(out.ActionItems)).
		Dur("elapsed", o.now().Sub(in.StartedAt))
	if out.Degraded {
		event = event.Bool("memory_degraded", true)
	}
	event.Msg("run finished")
	return out, nil
}
