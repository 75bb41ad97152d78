package subscription

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"webpush-backend/config"
)

type fakeGate struct {
	supported  bool
	permission Permission
}

func (g *fakeGate) IsSupported() bool { return g.supported }

func (g *fakeGate) PermissionStatus() Permission { return g.permission }

func promptConfig(dwell, cooldown time.Duration) *config.PromptConfig {
	return &config.PromptConfig{Dwell: dwell, DeclineCooldown: cooldown}
}

func TestSchedule_ImmediateWhenDwellElapsed(t *testing.T) {
	start := time.Now()
	current := start.Add(45 * time.Second)
	p := NewPromptPolicy(promptConfig(30*time.Second, 24*time.Hour), func() time.Time { return start })
	p.now = func() time.Time { return current }

	gate := &fakeGate{supported: true, permission: PermissionDefault}
	var shown atomic.Bool
	ok := p.Schedule(gate, func() { shown.Store(true) })

	assert.True(t, ok)
	assert.True(t, shown.Load(), "dwell already elapsed, prompt shows immediately")
}

func TestSchedule_DeferredUntilDwell(t *testing.T) {
	// 10ms of a 30ms threshold have passed; the prompt must appear after
	// the remaining 20ms without further action.
	start := time.Now().Add(-10 * time.Millisecond)
	p := NewPromptPolicy(promptConfig(30*time.Millisecond, 24*time.Hour), nil)
	p.sessionStart = start

	gate := &fakeGate{supported: true, permission: PermissionDefault}
	shown := make(chan struct{})
	ok := p.Schedule(gate, func() { close(shown) })
	require.True(t, ok)

	select {
	case <-shown:
		t.Fatal("prompt shown before the dwell threshold")
	case <-time.After(5 * time.Millisecond):
	}

	select {
	case <-shown:
	case <-time.After(time.Second):
		t.Fatal("prompt never shown after the dwell threshold elapsed")
	}
}

func TestSchedule_Suppressed(t *testing.T) {
	cases := []struct {
		name string
		gate *fakeGate
	}{
		{"unsupported platform", &fakeGate{supported: false, permission: PermissionDefault}},
		{"already granted", &fakeGate{supported: true, permission: PermissionGranted}},
		{"already denied", &fakeGate{supported: true, permission: PermissionDenied}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := NewPromptPolicy(promptConfig(time.Millisecond, 24*time.Hour), nil)
			assert.False(t, p.Schedule(tc.gate, func() { t.Fatal("prompt must not be shown") }))
		})
	}
}

func TestSchedule_OncePerSession(t *testing.T) {
	p := NewPromptPolicy(promptConfig(time.Nanosecond, 24*time.Hour), nil)
	gate := &fakeGate{supported: true, permission: PermissionDefault}

	var calls atomic.Int32
	assert.True(t, p.Schedule(gate, func() { calls.Add(1) }))
	assert.False(t, p.Schedule(gate, func() { calls.Add(1) }), "second schedule in the same session is suppressed")

	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, int32(1), calls.Load())
}

func TestDecline_CooldownSuppressesReprompt(t *testing.T) {
	current := time.Now()
	now := func() time.Time { return current }
	p := NewPromptPolicy(promptConfig(time.Nanosecond, 24*time.Hour), now)

	p.Decline()

	// A fresh session within the cooldown window stays silent.
	next := NewPromptPolicy(promptConfig(time.Nanosecond, 24*time.Hour), now)
	next.declinedAt = p.declinedAt

	gate := &fakeGate{supported: true, permission: PermissionDefault}
	assert.False(t, next.Schedule(gate, func() { t.Fatal("prompt shown during decline cooldown") }))

	// After the cooldown the prompt is offered again.
	current = current.Add(25 * time.Hour)
	later := NewPromptPolicy(promptConfig(time.Nanosecond, 24*time.Hour), now)
	later.declinedAt = p.declinedAt
	later.sessionStart = current.Add(-time.Minute)

	shown := false
	assert.True(t, later.Schedule(gate, func() { shown = true }))
	assert.True(t, shown)
}
