package types

import "time"

// Outcome values carried by a bundle result event. The block engine delivers
// result events at least once, duplicates and reordering must be tolerated.
const (
	BundleAccepted = "accepted"
	BundleRejected = "rejected"
	BundleDropped  = "dropped"
)

// BundleResult is one asynchronous outcome notification for a submitted bundle.
type BundleResult struct {
	BundleId string `json:"bundleId"`
	Status   string `json:"status"`
	Reason   string `json:"reason,omitempty"`
}

// FinalStatus is the single terminal outcome of one confirmation run.
type FinalStatus int

const (
	StatusConfirmed FinalStatus = iota
	// The block engine rejected or dropped the bundle
	StatusRejected
	// A subscription stream closed or errored mid-wait
	StatusConnectionLost
	// No terminal result arrived within the overall wait budget
	StatusDeadlineExceeded
)

func (s FinalStatus) String() string {
	switch s {
	case StatusConfirmed:
		return "confirmed"
	case StatusRejected:
		return "rejected"
	case StatusConnectionLost:
		return "connection-lost"
	case StatusDeadlineExceeded:
		return "deadline-exceeded"
	default:
		return "unknown"
	}
}

// Submission is one recorded bundle submission attempt with its terminal status
type Submission struct {
	BundleId    string    `ch:"bundleId"`
	Signatures  []string  `ch:"signatures"`
	CurrentSlot uint64    `ch:"currentSlot"`
	LeaderSlot  uint64    `ch:"leaderSlot"`
	Region      string    `ch:"region"`
	TxCount     uint64    `ch:"txCount"`
	TipLamports uint64    `ch:"tipLamports"`
	Status      string    `ch:"status"`
	Reason      string    `ch:"reason"`
	SubmittedAt time.Time `ch:"submittedAt"`
	ResolvedAt  time.Time `ch:"resolvedAt"`
}

type Submissions []*Submission
