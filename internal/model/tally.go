package model

type TallyEntry struct {
	CandidateID int64   `json:"id"`
	Name        string  `json:"name"`
	Party       string  `json:"party"`
	VoteCount   int64   `json:"vote_count"`
	Percentage  float64 `json:"percentage"`
	Withdrawn   bool    `json:"withdrawn,omitempty"`
}

type Results struct {
	Results     []TallyEntry `json:"results"`
	TotalVotes  int64        `json:"total_votes"`
	TotalVoters int64        `json:"total_voters"`
}

// LedgerSnapshot is a consistent read of the ballot ledger and the roster it refers to.
type LedgerSnapshot struct {
	Candidates   []Candidate
	Counts       map[int64]int64
	TotalBallots int64
	TotalVoters  int64
}
