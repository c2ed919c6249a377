package service

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/familycircle/circle-api/internal/pkg/metrics"
)

const compensationTimeout = 10 * time.Second

type compensation struct {
	step string
	undo func(ctx context.Context) error
}

// saga records undo steps for a multi-write operation and replays them in
// reverse when the operation fails part way.
type saga struct {
	steps  []compensation
	logger zerolog.Logger
}

func newSaga(logger zerolog.Logger) *saga {
	return &saga{logger: logger}
}

func (s *saga) add(step string, undo func(ctx context.Context) error) {
	s.steps = append(s.steps, compensation{step: step, undo: undo})
}

// rollback runs every recorded step, newest first. Failures are logged and
// counted; they do not stop later steps.
func (s *saga) rollback(ctx context.Context) {
	if len(s.steps) == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), compensationTimeout)
	defer cancel()

	for i := len(s.steps) - 1; i >= 0; i-- {
		c := s.steps[i]
		if err := c.undo(ctx); err != nil {
			metrics.SagaCompensationsTotal.WithLabelValues(c.step, "error").Inc()
			s.logger.Error().Err(err).Str("step", c.step).Msg("compensation failed")
			continue
		}
		metrics.SagaCompensationsTotal.WithLabelValues(c.step, "ok").Inc()
		s.logger.Warn().Str("step", c.step).Msg("compensation applied")
	}
	s.steps = nil
}
