package model

type Ballot struct {
	ID          int64 `json:"id"`
	VoterID     int64 `json:"voter_id"`
	CandidateID int64 `json:"candidate_id"`
	Ctime       int64 `json:"cast_at"`
}
