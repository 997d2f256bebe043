package model

type Candidate struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Party       string `json:"party"`
	Description string `json:"description"`
	ImageURL    string `json:"image_url"`
	Withdrawn   bool   `json:"withdrawn,omitempty"`
	Ctime       int64  `json:"created_at"`
	Mtime       int64  `json:"updated_at"`
}

// DeletePolicy decides what happens to ballots when a voted-for candidate is deleted.
type DeletePolicy string

const (
	DeleteDisallow       DeletePolicy = "disallow"
	DeleteCascadeVotes   DeletePolicy = "cascade-remove-votes"
	DeleteRetainOrphaned DeletePolicy = "retain-orphaned-tally-entry"
)

func DeletePolicyNames() []string {
	return []string{string(DeleteDisallow), string(DeleteCascadeVotes), string(DeleteRetainOrphaned)}
}

func (p DeletePolicy) Valid() bool {
	switch p {
	case DeleteDisallow, DeleteCascadeVotes, DeleteRetainOrphaned:
		return true
	}
	return false
}

// DeleteOutcome describes what a candidate deletion actually did.
type DeleteOutcome struct {
	Removed       bool  `json:"removed"`
	Withdrawn     bool  `json:"withdrawn"`
	BallotsPurged int64 `json:"ballots_purged"`
}
