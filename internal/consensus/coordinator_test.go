package consensus

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestNewRequiresObservers(t *testing.T) {
	_, err := New(nil)
	assert.ErrorIs(t, err, ErrNoObservers)
}

func TestMajorityOfExpectedObservers(t *testing.T) {
	c, err := New([]string{"obs-1", "obs-2", "obs-3", "obs-4", "obs-5"})
	require.NoError(t, err)
	key := Key{Subject: "platformnet/tracker#42", Round: 1}

	out, err := c.Propose("obs-1", key, "valid")
	require.NoError(t, err)
	assert.Equal(t, StateOpen, out.State)

	out, err = c.Propose("obs-2", key, "valid")
	require.NoError(t, err)
	assert.Equal(t, StateOpen, out.State, "2 of 5 expected is not a majority")

	out, err = c.Propose("obs-3", key, "valid")
	require.NoError(t, err)
	assert.Equal(t, StateResolved, out.State)
	assert.Equal(t, "valid", out.Value)

	value, ok := c.Resolved(key)
	require.True(t, ok)
	assert.Equal(t, "valid", value)
}

func TestSplitVoteStaysOpen(t *testing.T) {
	c, err := New([]string{"a", "b", "c"})
	require.NoError(t, err)
	key := Key{Subject: "platformnet/tracker#7", Round: 1}

	_, err = c.Propose("a", key, "valid")
	require.NoError(t, err)
	_, err = c.Propose("b", key, "invalid")
	require.NoError(t, err)

	out := c.Status(key)
	assert.Equal(t, StateOpen, out.State)
	_, ok := c.Resolved(key)
	assert.False(t, ok)
}

func TestReproposeReplacesVote(t *testing.T) {
	c, err := New([]string{"a", "b", "c"})
	require.NoError(t, err)
	key := Key{Subject: "platformnet/tracker#9", Round: 1}

	_, err = c.Propose("a", key, "invalid")
	require.NoError(t, err)
	_, err = c.Propose("b", key, "valid")
	require.NoError(t, err)

	// a changes its mind; with b it now forms the 2-of-3 majority.
	out, err := c.Propose("a", key, "valid")
	require.NoError(t, err)
	assert.Equal(t, StateResolved, out.State)
	assert.Equal(t, "valid", out.Value)
	assert.Equal(t, 2, out.Votes)
}

func TestUnknownObserverRejected(t *testing.T) {
	c, err := New([]string{"a", "b", "c"})
	require.NoError(t, err)

	_, err = c.Propose("mallory", Key{Subject: "x", Round: 1}, "valid")
	assert.ErrorIs(t, err, ErrUnknownObserver)
}

func TestRoundTimesOut(t *testing.T) {
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	now := start
	c, err := New([]string{"a", "b", "c"})
	require.NoError(t, err)
	c.WithDeadline(time.Minute).WithClock(func() time.Time { return now })

	key := Key{Subject: "platformnet/tracker#3", Round: 1}
	_, err = c.Propose("a", key, "valid")
	require.NoError(t, err)

	now = start.Add(61 * time.Second)
	out := c.Status(key)
	assert.Equal(t, StateTimedOut, out.State)

	// Late votes on a dead round are rejected; a timed-out round never
	// resolves.
	_, err = c.Propose("b", key, "valid")
	assert.ErrorIs(t, err, ErrRoundClosed)
	_, ok := c.Resolved(key)
	assert.False(t, ok)

	// The next attempt opens a fresh round under a new round number.
	next := Key{Subject: key.Subject, Round: 2}
	out, err = c.Propose("a", next, "valid")
	require.NoError(t, err)
	assert.Equal(t, StateOpen, out.State)
}

func TestVotesAfterResolutionRejected(t *testing.T) {
	c, err := New([]string{"a", "b", "c"})
	require.NoError(t, err)
	key := Key{Subject: "platformnet/tracker#5", Round: 1}

	_, err = c.Propose("a", key, "dup")
	require.NoError(t, err)
	out, err := c.Propose("b", key, "dup")
	require.NoError(t, err)
	require.Equal(t, StateResolved, out.State)

	out, err = c.Propose("c", key, "other")
	assert.ErrorIs(t, err, ErrRoundClosed)
	assert.Equal(t, StateResolved, out.State)
	assert.Equal(t, "dup", out.Value, "late disagreement cannot flip a resolved round")
}

func TestTerminalRoundsEvictedBeyondCap(t *testing.T) {
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	now := start
	c, err := New([]string{"a"})
	require.NoError(t, err)
	c.WithClock(func() time.Time { return now })
	c.maxRounds = 4

	// A single observer is its own majority, so every round resolves
	// immediately and becomes evictable.
	for i := 0; i < 10; i++ {
		now = start.Add(time.Duration(i) * time.Second)
		key := Key{Subject: fmt.Sprintf("s#%d", i), Round: 1}
		_, err := c.Propose("a", key, "v")
		require.NoError(t, err)
	}

	c.mu.Lock()
	assert.LessOrEqual(t, len(c.rounds), 4+1, "round map stays bounded")
	c.mu.Unlock()

	// The newest rounds survive.
	_, ok := c.Resolved(Key{Subject: "s#9", Round: 1})
	assert.True(t, ok)
}
