package consensus

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/platformnet/bounty-ledger/internal/model"
	"github.com/platformnet/bounty-ledger/internal/queue"
)

// Committer writes a resolved classification into the event ledger.
// Wired to the item repository in production.
type Committer interface {
	Commit(ctx context.Context, scope model.Scope, itemID int64, class model.Classification) error
}

// ProposalService feeds broker-delivered observer votes into a
// coordinator and commits resolved values.  Exactly one vote resolves a
// round, so the commit runs at most once per round; votes arriving
// after resolution or timeout are acknowledged and dropped.
type ProposalService struct {
	coord     *Coordinator
	committer Committer
}

func NewProposalService(coord *Coordinator, committer Committer) *ProposalService {
	return &ProposalService{coord: coord, committer: committer}
}

// HandleProposal applies one vote.  Implements queue.ProposalHandler.
func (s *ProposalService) HandleProposal(ctx context.Context, ev queue.ProposalEvent) error {
	key := Key{Subject: ev.Subject, Round: ev.Round}
	out, err := s.coord.Propose(ev.ObserverID, key, ev.Value)
	switch {
	case errors.Is(err, ErrRoundClosed):
		// Late vote on a settled round; nothing to do.
		return nil
	case err != nil:
		return err
	}
	if out.State != StateResolved {
		return nil
	}

	scope, itemID, err := parseSubject(ev.Subject)
	if err != nil {
		return err
	}
	class, err := parseValue(out.Value)
	if err != nil {
		return err
	}
	if err := s.committer.Commit(ctx, scope, itemID, class); err != nil {
		return fmt.Errorf("consensus: commit %s: %w", key, err)
	}
	log.Printf("consensus: committed %s=%s to ledger", key, class)
	return nil
}

// parseSubject splits "owner/name#item_id".
func parseSubject(subject string) (model.Scope, int64, error) {
	path, idPart, ok := strings.Cut(subject, "#")
	if !ok {
		return model.Scope{}, 0, fmt.Errorf("malformed subject %q", subject)
	}
	owner, name, ok := strings.Cut(path, "/")
	if !ok || owner == "" || name == "" {
		return model.Scope{}, 0, fmt.Errorf("malformed subject %q", subject)
	}
	var itemID int64
	if _, err := fmt.Sscanf(idPart, "%d", &itemID); err != nil || itemID <= 0 {
		return model.Scope{}, 0, fmt.Errorf("malformed subject %q", subject)
	}
	return model.Scope{Owner: owner, Name: name}, itemID, nil
}

func parseValue(value string) (model.Classification, error) {
	switch model.Classification(strings.ToUpper(value)) {
	case model.ClassValid:
		return model.ClassValid, nil
	case model.ClassInvalid:
		return model.ClassInvalid, nil
	case model.ClassDuplicate:
		return model.ClassDuplicate, nil
	}
	return "", fmt.Errorf("unknown proposal value %q", value)
}
