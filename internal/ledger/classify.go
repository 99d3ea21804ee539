// Package ledger holds the pure state-derivation rules of the event
// ledger.  Classification is derived here and only here, so the syncer,
// the scoring engine and any audit tooling can never disagree about what
// a label set means.
package ledger

import (
	"strings"

	"github.com/platformnet/bounty-ledger/internal/model"
)

// Label names recognized by the classifier.  Matching is
// case-insensitive; anything else on an item is ignored.
const (
	LabelValid     = "valid"
	LabelInvalid   = "invalid"
	LabelDuplicate = "duplicate"
)

// Classify maps a label set to a classification using the fixed
// precedence Valid > Invalid > Duplicate > Unclassified.  The first
// matching label wins, so conflicting labels can never produce two
// classifications at once.
func Classify(labels []string) model.Classification {
	var hasInvalid, hasDuplicate bool
	for _, l := range labels {
		switch strings.ToLower(strings.TrimSpace(l)) {
		case LabelValid:
			return model.ClassValid
		case LabelInvalid:
			hasInvalid = true
		case LabelDuplicate:
			hasDuplicate = true
		}
	}
	if hasInvalid {
		return model.ClassInvalid
	}
	if hasDuplicate {
		return model.ClassDuplicate
	}
	return model.ClassUnclassified
}
