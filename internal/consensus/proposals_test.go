package consensus

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platformnet/bounty-ledger/internal/model"
	"github.com/platformnet/bounty-ledger/internal/queue"
)

type memCommitter struct {
	commits []struct {
		scope  model.Scope
		itemID int64
		class  model.Classification
	}
}

func (m *memCommitter) Commit(_ context.Context, scope model.Scope, itemID int64, class model.Classification) error {
	m.commits = append(m.commits, struct {
		scope  model.Scope
		itemID int64
		class  model.Classification
	}{scope, itemID, class})
	return nil
}

func vote(observer, subject string, round uint64, value string) queue.ProposalEvent {
	return queue.ProposalEvent{ObserverID: observer, Subject: subject, Round: round, Value: value}
}

func TestProposalsCommitOnlyOnResolution(t *testing.T) {
	coord, err := New([]string{"a", "b", "c"})
	require.NoError(t, err)
	committer := &memCommitter{}
	svc := NewProposalService(coord, committer)
	ctx := context.Background()

	require.NoError(t, svc.HandleProposal(ctx, vote("a", "platformnet/tracker#42", 1, "invalid")))
	assert.Empty(t, committer.commits, "one vote of three must not touch the ledger")

	require.NoError(t, svc.HandleProposal(ctx, vote("b", "platformnet/tracker#42", 1, "invalid")))
	require.Len(t, committer.commits, 1)
	assert.Equal(t, model.Scope{Owner: "platformnet", Name: "tracker"}, committer.commits[0].scope)
	assert.Equal(t, int64(42), committer.commits[0].itemID)
	assert.Equal(t, model.ClassInvalid, committer.commits[0].class)

	// The straggler vote is absorbed without a second commit.
	require.NoError(t, svc.HandleProposal(ctx, vote("c", "platformnet/tracker#42", 1, "invalid")))
	assert.Len(t, committer.commits, 1)
}

func TestProposalsRejectUnknownObserver(t *testing.T) {
	coord, err := New([]string{"a", "b", "c"})
	require.NoError(t, err)
	svc := NewProposalService(coord, &memCommitter{})

	err = svc.HandleProposal(context.Background(), vote("mallory", "platformnet/tracker#1", 1, "valid"))
	assert.ErrorIs(t, err, ErrUnknownObserver)
}

func TestProposalsMalformedSubject(t *testing.T) {
	// A single observer resolves on its own vote, which forces subject
	// parsing.
	coord, err := New([]string{"a"})
	require.NoError(t, err)
	committer := &memCommitter{}
	svc := NewProposalService(coord, committer)

	err = svc.HandleProposal(context.Background(), vote("a", "no-item-part", 1, "valid"))
	assert.Error(t, err)
	assert.Empty(t, committer.commits)

	err = svc.HandleProposal(context.Background(), vote("a", "platformnet/tracker#7", 1, "maybe"))
	assert.Error(t, err, "unknown values never reach the ledger")
	assert.Empty(t, committer.commits)
}
