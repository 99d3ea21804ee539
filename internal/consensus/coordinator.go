// Package consensus resolves disagreement between independent observers
// before their proposed ledger updates are committed.  Each proposal key
// runs a tiny state machine: Open while votes accumulate, Resolved once
// a strict majority of the expected observers agree on one value, and
// TimedOut if the deadline passes first.  Only Resolved values may be
// committed; a timed-out round is discarded and the next sync attempt
// opens a fresh one.
package consensus

import (
	"errors"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"
)

// DefaultDeadline is how long a round stays open without a majority.
const DefaultDeadline = 2 * time.Minute

// DefaultMaxRounds caps retained round state.  Terminal rounds beyond
// the cap are evicted oldest-first so memory stays bounded no matter
// how chatty the observers are.
const DefaultMaxRounds = 1024

var (
	// ErrUnknownObserver rejects votes from ids outside the configured
	// observer set.
	ErrUnknownObserver = errors.New("observer not in expected set")
	// ErrRoundClosed rejects votes on a round that already resolved or
	// timed out.
	ErrRoundClosed = errors.New("round already closed")
	// ErrNoObservers means the coordinator was built with an empty
	// observer set and can never resolve anything.
	ErrNoObservers = errors.New("expected observer set is empty")
)

// State is the lifecycle of one proposal round.
type State string

const (
	StateOpen     State = "OPEN"
	StateResolved State = "RESOLVED"
	StateTimedOut State = "TIMED_OUT"
)

// Key identifies one proposal round.  Subject is whatever is being
// voted on (an item key like "owner/name#42", or a sync batch hash
// scope); Round lets the scheduler open fresh rounds after a timeout.
type Key struct {
	Subject string
	Round   uint64
}

func (k Key) String() string { return fmt.Sprintf("%s@r%d", k.Subject, k.Round) }

// Outcome is what a vote observes after being applied.
type Outcome struct {
	Key   Key
	State State
	// Value is the winning value, set only when State == StateResolved.
	Value string
	// Votes is how many observers have voted so far in this round.
	Votes int
}

type round struct {
	openedAt time.Time
	state    State
	value    string
	votes    map[string]string // observer id -> proposed value
}

// Coordinator tracks proposal rounds in memory.  Safe for concurrent
// use.  Round state is not persisted: after a restart every in-flight
// round simply restarts, which is the same recovery path as a timeout.
type Coordinator struct {
	observers map[string]bool
	deadline  time.Duration
	maxRounds int

	mu     sync.Mutex
	rounds map[Key]*round

	now func() time.Time
}

// New builds a coordinator for a fixed set of expected observer ids.
func New(observers []string) (*Coordinator, error) {
	if len(observers) == 0 {
		return nil, ErrNoObservers
	}
	set := make(map[string]bool, len(observers))
	for _, id := range observers {
		set[id] = true
	}
	return &Coordinator{
		observers: set,
		deadline:  DefaultDeadline,
		maxRounds: DefaultMaxRounds,
		rounds:    make(map[Key]*round),
		now:       time.Now,
	}, nil
}

// WithDeadline overrides the round deadline.
func (c *Coordinator) WithDeadline(d time.Duration) *Coordinator {
	c.deadline = d
	return c
}

// WithClock overrides the coordinator clock.  Test hook.
func (c *Coordinator) WithClock(now func() time.Time) *Coordinator {
	c.now = now
	return c
}

// threshold is a strict majority of the expected observers, not of the
// votes received so far.  Two observers agreeing out of five expected
// is not a majority even if nobody else has voted yet.
func (c *Coordinator) threshold() int {
	return len(c.observers)/2 + 1
}

// Propose records one observer's value for a round and reports the
// round state after the vote.  Re-proposing replaces the observer's
// earlier value in the same round.
func (c *Coordinator) Propose(observer string, key Key, value string) (Outcome, error) {
	if !c.observers[observer] {
		return Outcome{}, fmt.Errorf("%w: %q", ErrUnknownObserver, observer)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	r, ok := c.rounds[key]
	if !ok {
		r = &round{openedAt: c.now(), state: StateOpen, votes: make(map[string]string)}
		c.rounds[key] = r
		c.pruneLocked()
	}
	c.expireLocked(key, r)
	if r.state != StateOpen {
		return c.outcomeLocked(key, r), ErrRoundClosed
	}

	r.votes[observer] = value

	if winner, ok := c.majorityLocked(r); ok {
		r.state = StateResolved
		r.value = winner
		log.Printf("consensus: %s resolved to %q with %d/%d votes", key, winner, len(r.votes), len(c.observers))
	}
	return c.outcomeLocked(key, r), nil
}

// Status reports a round without voting.  Unknown rounds read as Open
// with zero votes, which is what a fresh round would be.
func (c *Coordinator) Status(key Key) Outcome {
	c.mu.Lock()
	defer c.mu.Unlock()
	r, ok := c.rounds[key]
	if !ok {
		return Outcome{Key: key, State: StateOpen}
	}
	c.expireLocked(key, r)
	return c.outcomeLocked(key, r)
}

// Resolved returns the winning value for a round, if it has one.
func (c *Coordinator) Resolved(key Key) (string, bool) {
	out := c.Status(key)
	if out.State != StateResolved {
		return "", false
	}
	return out.Value, true
}

func (c *Coordinator) outcomeLocked(key Key, r *round) Outcome {
	out := Outcome{Key: key, State: r.state, Votes: len(r.votes)}
	if r.state == StateResolved {
		out.Value = r.value
	}
	return out
}

func (c *Coordinator) majorityLocked(r *round) (string, bool) {
	counts := make(map[string]int, len(r.votes))
	for _, v := range r.votes {
		counts[v]++
		if counts[v] >= c.threshold() {
			return v, true
		}
	}
	return "", false
}

// expireLocked lazily times out overdue open rounds.  There is no
// background sweeper; expiry is checked on every access.
func (c *Coordinator) expireLocked(key Key, r *round) {
	if r.state == StateOpen && c.now().Sub(r.openedAt) >= c.deadline {
		r.state = StateTimedOut
		log.Printf("consensus: %s timed out with %d/%d votes", key, len(r.votes), len(c.observers))
	}
}

// pruneLocked evicts the oldest terminal rounds once the map exceeds
// the cap.  Open rounds are never evicted.
func (c *Coordinator) pruneLocked() {
	if len(c.rounds) <= c.maxRounds {
		return
	}
	type aged struct {
		key      Key
		openedAt time.Time
	}
	var terminal []aged
	for k, r := range c.rounds {
		c.expireLocked(k, r)
		if r.state != StateOpen {
			terminal = append(terminal, aged{k, r.openedAt})
		}
	}
	sort.Slice(terminal, func(i, j int) bool { return terminal[i].openedAt.Before(terminal[j].openedAt) })
	for _, a := range terminal {
		if len(c.rounds) <= c.maxRounds {
			return
		}
		delete(c.rounds, a.key)
	}
}
