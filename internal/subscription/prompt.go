package subscription

import (
	"sync"
	"time"

	"webpush-backend/config"
)

// promptGate is the slice of Manager behavior the prompt policy consults.
type promptGate interface {
	IsSupported() bool
	PermissionStatus() Permission
}

// PromptPolicy decides when the permission prompt is offered. The prompt is
// suppressed while the visitor has spent less than the dwell time on the
// site, after an interaction this session, and for a cooldown period after a
// decline.
type PromptPolicy struct {
	dwell    time.Duration
	cooldown time.Duration
	now      func() time.Time

	mu           sync.Mutex
	sessionStart time.Time
	interacted   bool
	declinedAt   time.Time
	timer        *time.Timer
}

// NewPromptPolicy records the session start and returns a policy using the
// configured dwell and decline cooldown. The clock is injectable for tests;
// pass nil for time.Now.
func NewPromptPolicy(cfg *config.PromptConfig, now func() time.Time) *PromptPolicy {
	if now == nil {
		now = time.Now
	}
	return &PromptPolicy{
		dwell:        cfg.Dwell,
		cooldown:     cfg.DeclineCooldown,
		now:          now,
		sessionStart: now(),
	}
}

// Schedule arranges for show to run once the dwell threshold is met. If the
// threshold already elapsed, show runs immediately; otherwise a one-shot
// timer is armed for the remainder. Returns false when the prompt is
// suppressed: prior interaction this session, unsupported platform,
// permission already settled, or an active decline cooldown.
func (p *PromptPolicy) Schedule(gate promptGate, show func()) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.interacted {
		return false
	}
	if !gate.IsSupported() {
		return false
	}
	if gate.PermissionStatus() != PermissionDefault {
		return false
	}
	if !p.declinedAt.IsZero() && p.now().Sub(p.declinedAt) < p.cooldown {
		return false
	}

	p.interacted = true
	elapsed := p.now().Sub(p.sessionStart)
	if elapsed >= p.dwell {
		show()
		return true
	}

	p.timer = time.AfterFunc(p.dwell-elapsed, show)
	return true
}

// Decline records the timestamp that defers re-prompting for the cooldown
// period. No running timer enforces it; Schedule checks the timestamp.
func (p *PromptPolicy) Decline() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.declinedAt = p.now()
	p.interacted = true
	if p.timer != nil {
		p.timer.Stop()
		p.timer = nil
	}
}

// Stop cancels any armed timer, e.g. when the page unloads.
func (p *PromptPolicy) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.timer != nil {
		p.timer.Stop()
		p.timer = nil
	}
}
