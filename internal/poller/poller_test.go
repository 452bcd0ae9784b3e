package poller_test

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"appctl/internal/logging"
	"appctl/internal/poller"
	"appctl/internal/supervisor"
)

type fakeClock struct {
	now    time.Time
	sleeps int
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Sleep(d time.Duration) {
	c.sleeps++
	c.now = c.now.Add(d)
}

type sequence struct {
	samples []supervisor.Sample
	idx     int
}

func (s *sequence) next(context.Context) (supervisor.Sample, error) {
	sample := s.samples[len(s.samples)-1]
	if s.idx < len(s.samples) {
		sample = s.samples[s.idx]
	}
	s.idx++
	return sample, nil
}

type harness struct {
	poller    *poller.Poller
	logs      *bytes.Buffer
	out       *bytes.Buffer
	diagnoses int
}

func newHarness(t *testing.T, sample poller.SampleFunc) *harness {
	t.Helper()
	logs := &bytes.Buffer{}
	logger, err := logging.New(logging.Options{Level: "info", Format: "json", Writer: logs})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	h := &harness{logs: logs, out: &bytes.Buffer{}}
	h.poller = &poller.Poller{
		Unit:     "webapp.service",
		Deadline: 120 * time.Second,
		Interval: 2 * time.Second,
		Clock:    &fakeClock{now: time.Unix(1_700_000_000, 0)},
		Sample:   sample,
		Logger:   logger,
		Out:      h.out,
		Diagnose: func(context.Context) (supervisor.Diagnostics, error) {
			h.diagnoses++
			return supervisor.Diagnostics{
				Status:  []string{"● webapp.service", "   Active: activating"},
				Journal: []string{"starting worker"},
			}, nil
		},
	}
	return h
}

func (h *harness) stateLines() int {
	return strings.Count(h.logs.String(), `"msg":"unit state"`)
}

func TestWaitReachesActive(t *testing.T) {
	seq := &sequence{samples: []supervisor.Sample{
		{Active: "unknown", Sub: "unknown", Result: "unknown"},
		{Active: "activating", Sub: "start", Result: "unknown"},
		{Active: "active", Sub: "running", Result: "success"},
	}}
	h := newHarness(t, seq.next)

	res, err := h.poller.Wait(context.Background())
	if err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if res.State != poller.Active {
		t.Fatalf("state = %s, want active", res.State)
	}
	if res.Ticks != 3 {
		t.Fatalf("ticks = %d, want 3", res.Ticks)
	}
	if got := h.stateLines(); got != 3 {
		t.Fatalf("unit state lines = %d, want 3\n%s", got, h.logs.String())
	}
	if h.diagnoses != 0 {
		t.Fatalf("diagnostics gathered on success")
	}
	if !strings.Contains(h.out.String(), "webapp.service is active (active/running/success)") {
		t.Fatalf("missing confirmation: %q", h.out.String())
	}
}

func TestWaitDeduplicatesRepeatedSummaries(t *testing.T) {
	seq := &sequence{samples: []supervisor.Sample{
		{Active: "activating", Sub: "start", Result: "success"},
		{Active: "activating", Sub: "start", Result: "success"},
		{Active: "activating", Sub: "start", Result: "success"},
		{Active: "active", Sub: "running", Result: "success"},
	}}
	h := newHarness(t, seq.next)

	res, err := h.poller.Wait(context.Background())
	if err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if res.Ticks != 4 {
		t.Fatalf("ticks = %d", res.Ticks)
	}
	if got := h.stateLines(); got != 2 {
		t.Fatalf("unit state lines = %d, want 2", got)
	}
}

func TestWaitTimesOutWithDiagnosticsOnce(t *testing.T) {
	seq := &sequence{samples: []supervisor.Sample{
		{Active: "activating", Sub: "start", Result: "success"},
	}}
	h := newHarness(t, seq.next)

	res, err := h.poller.Wait(context.Background())
	if err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if res.State != poller.TimedOut {
		t.Fatalf("state = %s, want timed_out", res.State)
	}
	if res.Elapsed < 120*time.Second {
		t.Fatalf("elapsed = %s", res.Elapsed)
	}
	if res.Ticks != 61 {
		t.Fatalf("ticks = %d, want 61", res.Ticks)
	}
	if h.diagnoses != 1 {
		t.Fatalf("diagnostics gathered %d times, want 1", h.diagnoses)
	}
	if strings.Count(h.out.String(), "--- recent log ---") != 1 {
		t.Fatalf("diagnostics written more than once:\n%s", h.out.String())
	}
	if got := h.stateLines(); got != 1 {
		t.Fatalf("unit state lines = %d, want 1", got)
	}
}

func TestWaitFailsOnFailedResult(t *testing.T) {
	tests := []struct {
		name   string
		sample supervisor.Sample
	}{
		{name: "active state", sample: supervisor.Sample{Active: "failed", Sub: "failed", Result: "exit-code"}},
		{name: "result", sample: supervisor.Sample{Active: "activating", Sub: "auto-restart", Result: "failed"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seq := &sequence{samples: []supervisor.Sample{
				{Active: "activating", Sub: "start", Result: "success"},
				tt.sample,
			}}
			h := newHarness(t, seq.next)
			res, err := h.poller.Wait(context.Background())
			if err != nil {
				t.Fatalf("Wait: %v", err)
			}
			if res.State != poller.Failed || res.Ticks != 2 {
				t.Fatalf("result = %+v", res)
			}
			if h.diagnoses != 1 {
				t.Fatalf("diagnostics gathered %d times", h.diagnoses)
			}
			if !strings.Contains(h.out.String(), "starting worker") {
				t.Fatalf("journal lines missing:\n%s", h.out.String())
			}
		})
	}
}

func TestWaitTreatsSampleErrorsAsUnknown(t *testing.T) {
	calls := 0
	h := newHarness(t, func(context.Context) (supervisor.Sample, error) {
		calls++
		if calls == 1 {
			return supervisor.Sample{}, errors.New("bus timeout")
		}
		return supervisor.Sample{Active: "active", Sub: "running", Result: "success"}, nil
	})
	res, err := h.poller.Wait(context.Background())
	if err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if res.State != poller.Active || res.Ticks != 2 {
		t.Fatalf("result = %+v", res)
	}
	if !strings.Contains(h.logs.String(), `"active":"unknown"`) {
		t.Fatalf("expected unknown sample to be logged:\n%s", h.logs.String())
	}
}

func TestWaitHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	h := newHarness(t, func(context.Context) (supervisor.Sample, error) {
		cancel()
		return supervisor.Sample{Active: "activating", Sub: "start", Result: "success"}, nil
	})
	res, err := h.poller.Wait(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if res.State != poller.Waiting || res.Ticks != 1 {
		t.Fatalf("result = %+v", res)
	}
	if h.diagnoses != 0 {
		t.Fatal("cancellation must not produce diagnostics")
	}
}
