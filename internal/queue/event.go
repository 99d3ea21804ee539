// Package queue defines message payloads exchanged over the message broker.
package queue

// ProposalEvent is one observer's vote on an item classification,
// consumed from the observer.proposals queue in multi-observer
// deployments. Subject is the item key in "owner/name#item_id" form;
// Round distinguishes fresh attempts after a timed-out round.
type ProposalEvent struct {
    ObserverID string `json:"observer_id"`
    Subject    string `json:"subject"`
    Round      uint64 `json:"round"`
    Value      string `json:"value"`
    ProposedAt string `json:"proposed_at"`
}

// WeightEntry is one participant's published weight.
type WeightEntry struct {
    IdentityKey string  `json:"identity_key"`
    Account     string  `json:"account"`
    Weight      float64 `json:"weight"`
    Quantized   uint16  `json:"quantized"`
}

// WeightsPublishedEvent is emitted after every scoring run so downstream
// consumers can log, audit, or forward the vector without querying the
// primary database.
type WeightsPublishedEvent struct {
    Epoch          uint64        `json:"epoch"`
    Mode           string        `json:"mode"`
    FormulaVersion string        `json:"formula_version"`
    Entries        []WeightEntry `json:"entries"`
    PublishedAt    string        `json:"published_at"`
}
