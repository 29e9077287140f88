package limiter

import (
	"context"
	"sync"
	"time"
)

type counter struct {
	fails        int
	lastFail     time.Time
	blockedUntil time.Time
}

// Memory is an in-process limiter for single-instance servers without Postgres and for tests.
type Memory struct {
	mu     sync.Mutex
	policy Policy
	now    func() time.Time
	state  map[string]*counter
}

// NewMemory constructs an in-process limiter.
func NewMemory(p Policy) *Memory {
	return &Memory{policy: p, now: time.Now, state: map[string]*counter{}}
}

func key(email string, ipHash []byte) string { return email + "\x00" + string(ipHash) }

// Allow reports whether the pair is currently unblocked.
func (m *Memory) Allow(_ context.Context, email string, ipHash []byte) (bool, time.Duration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.state[key(email, ipHash)]
	if !ok {
		return true, 0, nil
	}
	if wait := c.blockedUntil.Sub(m.now()); wait > 0 {
		return false, wait, nil
	}
	return true, 0, nil
}

// Success forgets the pair.
func (m *Memory) Success(_ context.Context, email string, ipHash []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.state, key(email, ipHash))
	return nil
}

// Failure counts a failed attempt and blocks once MaxFails is reached within Window.
func (m *Memory) Failure(_ context.Context, email string, ipHash []byte) (bool, time.Duration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	k := key(email, ipHash)
	c, ok := m.state[k]
	if !ok {
		c = &counter{}
		m.state[k] = c
	}
	if now.Sub(c.lastFail) > m.policy.Window {
		c.fails = 0
	}
	c.fails++
	c.lastFail = now
	if c.fails < m.policy.MaxFails {
		return false, 0, nil
	}
	c.blockedUntil = now.Add(m.policy.BlockFor)
	return true, m.policy.BlockFor, nil
}
