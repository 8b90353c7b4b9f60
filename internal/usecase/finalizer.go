package usecase

import (
	"context"

	"github.com/rs/zerolog"

	"murmur/internal/domain"
	"murmur/internal/ports"
)

// resultFinalizer applies substitution rules to the assembled transcript and
// delivers it downstream. Both steps degrade on failure: a rules error keeps
// the raw text, a sink error marks the result undelivered. Neither re-enters
// the state machine.
type resultFinalizer struct {
	rules ports.TextRules
	sink  ports.ResultSink
	log   zerolog.Logger
}

func newResultFinalizer(rules ports.TextRules, sink ports.ResultSink, log zerolog.Logger) resultFinalizer {
	return resultFinalizer{rules: rules, sink: sink, log: log}
}

func (f resultFinalizer) Finalize(ctx context.Context, result domain.SessionResult) domain.SessionResult {
	if f.rules != nil {
		transformed, err := f.rules.Apply(result.Text)
		if err != nil {
			f.log.Error().Err(err).Msg("rules processing failed; delivering raw transcript")
		} else {
			result.Text = transformed
		}
	}

	result.Delivered = true
	if f.sink != nil {
		if err := f.sink.Deliver(ctx, result); err != nil {
			result.Delivered = false
			f.log.Error().Err(err).Msg("transcript ready but delivery failed")
		}
	}
	return result
}
