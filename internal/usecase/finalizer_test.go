package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"murmur/internal/domain"
)

func TestFinalizerAppliesRulesAndDelivers(t *testing.T) {
	t.Parallel()

	sink := &fakeSink{}
	f := newResultFinalizer(&fakeRules{transform: upper}, sink, zerolog.Nop())

	result := f.Finalize(context.Background(), domain.SessionResult{Text: "hello", ChunkCount: 1})
	if result.Text != "HELLO" {
		t.Fatalf("text = %q, want transformed", result.Text)
	}
	if !result.Delivered {
		t.Fatalf("expected delivered result")
	}
	delivered, ok := sink.last()
	if !ok || delivered.Text != "HELLO" {
		t.Fatalf("sink received %+v", delivered)
	}
}

func TestFinalizerRulesFailureKeepsRawText(t *testing.T) {
	t.Parallel()

	sink := &fakeSink{}
	f := newResultFinalizer(&fakeRules{err: errors.New("bad rule")}, sink, zerolog.Nop())

	result := f.Finalize(context.Background(), domain.SessionResult{Text: "raw text"})
	if result.Text != "raw text" {
		t.Fatalf("text = %q, want raw preserved", result.Text)
	}
	if !result.Delivered {
		t.Fatalf("rules failure must not block delivery")
	}
}

func TestFinalizerSinkFailureMarksUndelivered(t *testing.T) {
	t.Parallel()

	f := newResultFinalizer(nil, &fakeSink{err: errors.New("clipboard down")}, zerolog.Nop())

	result := f.Finalize(context.Background(), domain.SessionResult{Text: "text"})
	if result.Delivered {
		t.Fatalf("expected delivered=false")
	}
	if result.Text != "text" {
		t.Fatalf("text = %q, want unchanged", result.Text)
	}
}

func TestFinalizerNilCollaborators(t *testing.T) {
	t.Parallel()

	f := newResultFinalizer(nil, nil, zerolog.Nop())
	result := f.Finalize(context.Background(), domain.SessionResult{Text: "text"})
	if result.Text != "text" || !result.Delivered {
		t.Fatalf("result = %+v", result)
	}
}
