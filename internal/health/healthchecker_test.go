package health

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

type flakyPinger struct{ fail bool }

func (p *flakyPinger) HealthPing(ctx context.Context) error {
	if p.fail {
		return fmt.Errorf("down")
	}
	return nil
}

func TestPingChecker_TracksProbe(t *testing.T) {
	p := &flakyPinger{fail: true}
	c := NewPingChecker("store", p, zerolog.Nop(), time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	go c.Start(ctx, 10*time.Millisecond)

	waitFor(t, func() bool { return !c.IsHealthy() })

	p.fail = false
	waitFor(t, func() bool { return c.IsHealthy() })
	cancel()
}

func TestNilPingerIsAlwaysHealthy(t *testing.T) {
	c := NewPingChecker("noop", nil, zerolog.Nop(), time.Second)
	if !c.IsHealthy() {
		t.Fatal("nil pinger should report healthy")
	}
}

func TestServiceHealthChecker_Aggregates(t *testing.T) {
	good := NewPingChecker("good", nil, zerolog.Nop(), time.Second)
	bad := NewPingChecker("bad", &flakyPinger{fail: true}, zerolog.Nop(), time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go bad.Start(ctx, 10*time.Millisecond)

	svc := NewServiceHealthChecker(zerolog.Nop(), good, bad)
	go svc.Start(ctx, 10*time.Millisecond)

	waitFor(t, func() bool { return !svc.IsHealthy() })

	okOnly := NewServiceHealthChecker(zerolog.Nop(), good)
	go okOnly.Start(ctx, 10*time.Millisecond)
	waitFor(t, func() bool { return okOnly.IsHealthy() })
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not reached in time")
}
