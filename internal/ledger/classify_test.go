package ledger

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/platformnet/bounty-ledger/internal/model"
)

func TestClassifyPrecedence(t *testing.T) {
	cases := []struct {
		name   string
		labels []string
		want   model.Classification
	}{
		{"no labels", nil, model.ClassUnclassified},
		{"unrelated labels", []string{"bug", "help wanted"}, model.ClassUnclassified},
		{"valid only", []string{"valid"}, model.ClassValid},
		{"invalid only", []string{"invalid"}, model.ClassInvalid},
		{"duplicate only", []string{"duplicate"}, model.ClassDuplicate},
		{"valid beats invalid", []string{"invalid", "valid"}, model.ClassValid},
		{"valid beats duplicate", []string{"duplicate", "valid"}, model.ClassValid},
		{"invalid beats duplicate", []string{"duplicate", "invalid"}, model.ClassInvalid},
		{"all three", []string{"duplicate", "invalid", "valid"}, model.ClassValid},
		{"case insensitive", []string{"VALID"}, model.ClassValid},
		{"whitespace trimmed", []string{"  invalid "}, model.ClassInvalid},
		{"mixed with noise", []string{"enhancement", "Duplicate", "docs"}, model.ClassDuplicate},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Classify(tc.labels))
		})
	}
}
