package pipeline

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/sitebuilder/internal/content"
	"git.home.luguber.info/inful/sitebuilder/internal/deps"
	"git.home.luguber.info/inful/sitebuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/sitebuilder/internal/metrics"
	"git.home.luguber.info/inful/sitebuilder/internal/source"
)

func newTestBuild(t *testing.T) *Build {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	src := source.New(source.Root{Name: "test", FS: fstest.MapFS{}})
	return NewBuild("test", Full, 1, content.NewStore(), deps.NewTracker(), src, content.DefaultTypes(), logger)
}

func addPage(t *testing.T, b *Build, url string) *content.Item {
	t.Helper()
	it := content.NewDynamicItem(url, content.HTML, []byte(url))
	require.NoError(t, b.Add(it))
	return it
}

// funcProc adapts closures to the processor interfaces.
type funcProc struct {
	name  string
	stage func(ctx context.Context, b *Build, s Stage) error
	item  func(ctx context.Context, b *Build, it *content.Item, sub SubStage) (Result, error)
}

func (f *funcProc) Name() string { return f.name }

type stageOnly struct{ *funcProc }

func (s stageOnly) Process(ctx context.Context, b *Build, st Stage) error { return s.stage(ctx, b, st) }

type itemOnly struct{ *funcProc }

func (i itemOnly) TryProcessItem(ctx context.Context, b *Build, it *content.Item, sub SubStage) (Result, error) {
	return i.item(ctx, b, it, sub)
}

func stageProc(name string, fn func(ctx context.Context, b *Build, s Stage) error) Processor {
	return stageOnly{&funcProc{name: name, stage: fn}}
}

func itemProc(name string, fn func(ctx context.Context, b *Build, it *content.Item, sub SubStage) (Result, error)) Processor {
	return itemOnly{&funcProc{name: name, item: fn}}
}

func TestRegistry_RejectsDuplicatesAndEmpty(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(stageProc("a", nil)))
	err := r.Register(stageProc("a", nil))
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryConfig))

	err = r.Register(&funcProc{name: "bare"})
	require.Error(t, err)
	assert.Equal(t, []string{"a"}, r.Names())
}

func TestScheduler_StageOrderAndRegistrationOrder(t *testing.T) {
	var calls []string
	rec := func(name string) Processor {
		return stageProc(name, func(_ context.Context, _ *Build, s Stage) error {
			calls = append(calls, name+"@"+s.String())
			return nil
		})
	}
	reg := NewRegistry().MustRegister(rec("first"), rec("second"))

	b := newTestBuild(t)
	require.NoError(t, NewScheduler(reg).Run(t.Context(), b))

	require.Len(t, calls, 14)
	assert.Equal(t, "first@before_load", calls[0])
	assert.Equal(t, "second@before_load", calls[1])
	assert.Equal(t, "first@after_process", calls[8])
	assert.Equal(t, "first@run", calls[10])
	assert.Equal(t, "second@after_run", calls[13])
	assert.Len(t, b.Durations, len(ExecutionOrder))
}

func TestScheduler_TerminatesWithinNPlusOnePasses(t *testing.T) {
	const steps = 5
	offers := 0
	remaining := steps
	counter := itemProc("counter", func(_ context.Context, _ *Build, _ *content.Item, sub SubStage) (Result, error) {
		if sub != Transform {
			return None, nil
		}
		offers++
		if remaining > 0 {
			remaining--
			return Continue, nil
		}
		return None, nil
	})

	b := newTestBuild(t)
	addPage(t, b, "/a/")
	require.NoError(t, NewScheduler(NewRegistry().MustRegister(counter), WithMaxPasses(steps+1)).Run(t.Context(), b))

	assert.Equal(t, steps+1, offers)
	assert.False(t, b.Log.Failed())
}

func TestScheduler_RunawayLoopBecomesContentError(t *testing.T) {
	loop := itemProc("loop", func(context.Context, *Build, *content.Item, SubStage) (Result, error) {
		return Continue, nil
	})
	var finalized bool
	after := itemProc("after", func(_ context.Context, _ *Build, _ *content.Item, sub SubStage) (Result, error) {
		if sub == Finalize {
			finalized = true
		}
		return None, nil
	})

	b := newTestBuild(t)
	it := addPage(t, b, "/a/")
	require.NoError(t, NewScheduler(NewRegistry().MustRegister(loop, after), WithMaxPasses(3)).Run(t.Context(), b))

	errs := b.Log.Errors()
	require.Len(t, errs, 1)
	assert.True(t, errors.HasCategory(errs[0].Err, errors.CategoryContent))
	ce, ok := errors.AsClassified(errs[0].Err)
	require.True(t, ok)
	assert.True(t, errors.HasCategory(ce.Cause(), errors.CategoryFatal))
	assert.True(t, it.Failed())
	assert.False(t, finalized)
}

func TestScheduler_RescanFromTopAfterContinue(t *testing.T) {
	var trace []string
	aDone := false
	a := itemProc("a", func(_ context.Context, _ *Build, _ *content.Item, sub SubStage) (Result, error) {
		if sub != Transform {
			return None, nil
		}
		trace = append(trace, "a")
		return None, nil
	})
	bProc := itemProc("b", func(_ context.Context, _ *Build, _ *content.Item, sub SubStage) (Result, error) {
		if sub != Transform {
			return None, nil
		}
		trace = append(trace, "b")
		if !aDone {
			aDone = true
			return Continue, nil
		}
		return None, nil
	})

	b := newTestBuild(t)
	addPage(t, b, "/x/")
	require.NoError(t, NewScheduler(NewRegistry().MustRegister(a, bProc)).Run(t.Context(), b))
	assert.Equal(t, []string{"a", "b", "a", "b"}, trace)
}

func TestScheduler_FaultIsBreakNotAbort(t *testing.T) {
	boom := itemProc("boom", func(_ context.Context, _ *Build, it *content.Item, _ SubStage) (Result, error) {
		if it.URL == "/bad/" {
			panic("kaboom")
		}
		if it.URL == "/err/" {
			return None, fmt.Errorf("plain failure")
		}
		return None, nil
	})
	var seen []string
	tail := itemProc("tail", func(_ context.Context, _ *Build, it *content.Item, sub SubStage) (Result, error) {
		if sub == Prepare {
			seen = append(seen, it.URL)
		}
		return None, nil
	})

	b := newTestBuild(t)
	bad := addPage(t, b, "/bad/")
	failing := addPage(t, b, "/err/")
	good := addPage(t, b, "/good/")
	require.NoError(t, NewScheduler(NewRegistry().MustRegister(boom, tail)).Run(t.Context(), b))

	assert.Equal(t, []string{"/good/"}, seen)
	assert.True(t, bad.Failed())
	assert.True(t, failing.Failed())
	assert.False(t, good.Failed())
	assert.Len(t, b.Log.Errors(), 2)

	r := NewReport(b, false)
	assert.True(t, r.Failed())
	assert.Equal(t, metrics.OutcomeFailed, r.Outcome)
	assert.Contains(t, r.Summary(), "/bad/ [boom] [content:error] processor panicked")
}

func TestScheduler_WarningErrorDoesNotFailItem(t *testing.T) {
	warn := itemProc("warn", func(context.Context, *Build, *content.Item, SubStage) (Result, error) {
		return None, errors.IOError("layout missing").Warning().Build()
	})
	b := newTestBuild(t)
	it := addPage(t, b, "/a/")
	require.NoError(t, NewScheduler(NewRegistry().MustRegister(warn)).Run(t.Context(), b))

	assert.False(t, it.Failed())
	assert.Len(t, b.Log.Warnings(), 1)
	assert.Equal(t, metrics.OutcomeWarning, NewReport(b, false).Outcome)
}

func TestScheduler_ItemsAddedMidStageSeenOnlyByLaterProcessors(t *testing.T) {
	var early, late []string
	earlyProc := itemProc("early", func(_ context.Context, _ *Build, it *content.Item, sub SubStage) (Result, error) {
		if sub == Prepare {
			early = append(early, it.URL)
		}
		return None, nil
	})
	gen := itemProc("gen", func(_ context.Context, b *Build, it *content.Item, sub SubStage) (Result, error) {
		if sub == Prepare && it.URL == "/a/" {
			if _, ok := b.Store.Find("/a/extra/"); !ok {
				require.NoError(t, b.Add(content.NewDynamicItem("/a/extra/", content.HTML, nil)))
			}
		}
		return None, nil
	})
	lateProc := itemProc("late", func(_ context.Context, _ *Build, it *content.Item, sub SubStage) (Result, error) {
		if sub == Prepare {
			late = append(late, it.URL)
		}
		return None, nil
	})

	b := newTestBuild(t)
	addPage(t, b, "/a/")
	require.NoError(t, NewScheduler(NewRegistry().MustRegister(earlyProc, gen, lateProc)).Run(t.Context(), b))

	assert.Equal(t, []string{"/a/"}, early)
	assert.Equal(t, []string{"/a/", "/a/extra/"}, late)
}

func TestScheduler_BreakEndsItemAndDiscardStopsOffers(t *testing.T) {
	var subs []SubStage
	breaker := itemProc("breaker", func(_ context.Context, _ *Build, it *content.Item, sub SubStage) (Result, error) {
		subs = append(subs, sub)
		if it.URL == "/drop/" {
			it.Discard()
			return None, nil
		}
		if sub == Transform {
			return Break, nil
		}
		return None, nil
	})
	b := newTestBuild(t)
	addPage(t, b, "/a/")
	addPage(t, b, "/drop/")
	require.NoError(t, NewScheduler(NewRegistry().MustRegister(breaker)).Run(t.Context(), b))

	assert.Equal(t, []SubStage{Prepare, Transform, Prepare}, subs)
}

func TestScheduler_CancelledBetweenItems(t *testing.T) {
	ctx, cancel := context.WithCancel(t.Context())
	count := 0
	canceller := itemProc("cancel", func(context.Context, *Build, *content.Item, SubStage) (Result, error) {
		count++
		cancel()
		return None, nil
	})
	b := newTestBuild(t)
	addPage(t, b, "/a/")
	addPage(t, b, "/b/")

	err := NewScheduler(NewRegistry().MustRegister(canceller)).Run(ctx, b)
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, count)
	assert.Equal(t, metrics.OutcomeCanceled, NewReport(b, true).Outcome)
}

func TestBuild_WantAndScope(t *testing.T) {
	b := newTestBuild(t)
	addPage(t, b, "/a/")
	assert.True(t, b.Want("/a/"))

	b.Mode = Partial
	b.Scope = NewScope()
	assert.False(t, b.Want("/a/"))
	assert.True(t, b.Want("/new/"))
	b.Scope.URLs.Add("/a/")
	assert.True(t, b.Want("/a/"))
	assert.False(t, b.Scope.HasPath("content/a.md"))

	var nilScope *Scope
	assert.True(t, nilScope.HasPath("anything"))
}
