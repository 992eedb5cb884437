package connectivity

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/vietddude/clinicnet/internal/core/domain"
)

type recorder struct {
	mu     sync.Mutex
	events []bool
}

func (r *recorder) handle(online bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, online)
}

func (r *recorder) got() []bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]bool(nil), r.events...)
}

// =============================================================================
// Manual
// =============================================================================

func TestManual_TransitionsOnly(t *testing.T) {
	w := NewManual(true)
	rec := &recorder{}
	w.Subscribe(rec.handle)

	w.SetOnline(true) // no change
	w.SetOnline(false)
	w.SetOnline(false) // no change
	w.SetOnline(true)

	events := rec.got()
	if len(events) != 2 || events[0] != false || events[1] != true {
		t.Fatalf("expected [false true], got %v", events)
	}
	if !w.Online() {
		t.Error("expected online")
	}
}

func TestManual_Unsubscribe(t *testing.T) {
	w := NewManual(true)
	rec := &recorder{}
	id := w.Subscribe(rec.handle)

	if w.Subscribers() != 1 {
		t.Fatalf("expected 1 subscriber, got %d", w.Subscribers())
	}

	w.Unsubscribe(id)
	w.Unsubscribe(id) // unknown ids are ignored
	w.SetOnline(false)

	if len(rec.got()) != 0 {
		t.Error("unsubscribed handler must not be called")
	}
	if w.Subscribers() != 0 {
		t.Errorf("expected 0 subscribers, got %d", w.Subscribers())
	}
}

func TestManual_HandlerMayCallBack(t *testing.T) {
	w := NewManual(true)
	var seen bool
	w.Subscribe(func(online bool) {
		// Handlers run outside the lock, so reading state must not deadlock.
		seen = w.Online() == online
	})
	w.SetOnline(false)
	if !seen {
		t.Error("handler should observe the new state")
	}
}

// =============================================================================
// Prober
// =============================================================================

type scriptedPinger struct {
	mu      sync.Mutex
	results []error
}

func (p *scriptedPinger) Ping(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.results) == 0 {
		return nil
	}
	err := p.results[0]
	p.results = p.results[1:]
	return err
}

func TestProber_ThresholdAndRecovery(t *testing.T) {
	down := &domain.RequestError{Code: domain.TransportConnectionRefused}
	pinger := &scriptedPinger{results: []error{down, down, nil}}

	p := NewProber(pinger, ProberConfig{FailureThreshold: 2}, nil)
	rec := &recorder{}
	p.Subscribe(rec.handle)
	ctx := context.Background()

	if !p.Check(ctx) {
		t.Error("one failure is below threshold, should stay online")
	}
	if p.Check(ctx) {
		t.Error("second failure should go offline")
	}
	if !p.Check(ctx) {
		t.Error("success should come back online")
	}

	events := rec.got()
	if len(events) != 2 || events[0] != false || events[1] != true {
		t.Fatalf("expected [false true], got %v", events)
	}
}

func TestProber_ResponseCountsAsReachable(t *testing.T) {
	pinger := &scriptedPinger{results: []error{
		&domain.ResponseError{StatusCode: 503},
		&domain.ResponseError{StatusCode: 503},
	}}
	p := NewProber(pinger, ProberConfig{FailureThreshold: 1}, nil)

	if !p.Check(context.Background()) || !p.Check(context.Background()) {
		t.Error("an HTTP response means the network is up")
	}
}

func TestProber_CanceledParentIsNotAnOutage(t *testing.T) {
	pinger := PingerFunc(func(ctx context.Context) error {
		return errors.New("dial: operation was canceled")
	})
	p := NewProber(pinger, ProberConfig{FailureThreshold: 1}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if !p.Check(ctx) {
		t.Error("shutdown must not flip the prober offline")
	}
}

func TestProber_RunStopsOnCancel(t *testing.T) {
	p := NewProber(&scriptedPinger{}, ProberConfig{}, nil)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()
	cancel()

	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}
