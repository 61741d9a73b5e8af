package models

import "time"

type RecordStatus string

const (
	StatusPending    RecordStatus = "PENDING"
	StatusInProgress RecordStatus = "IN_PROGRESS"
	StatusCracked    RecordStatus = "CRACKED"
	StatusExhausted  RecordStatus = "EXHAUSTED"
	// StatusFailed marks a record whose scan could not complete because a
	// worker failed twice; its result is indeterminate, not a miss.
	StatusFailed RecordStatus = "FAILED"
)

// CredentialRecord is one parsed "user:$alg$cost$salt+hash" line.
type CredentialRecord struct {
	User      string `json:"user"`
	Algorithm string `json:"algorithm"`
	Cost      int    `json:"cost"`
	CostField string `json:"-"`
	Salt      string `json:"salt"`
	Hash      string `json:"hash"`
	Reference string `json:"-"`
	Line      int    `json:"line"`
}

// Chunk is the half-open corpus range [Start, End) given to one worker.
type Chunk struct {
	ID    string `json:"id"`
	Start int    `json:"start"`
	End   int    `json:"end"`
}

func (c Chunk) Len() int { return c.End - c.Start }

type CrackResult struct {
	User     string        `json:"user" bson:"user"`
	Password *string       `json:"password,omitempty" bson:"password,omitempty"`
	Elapsed  time.Duration `json:"-" bson:"-"`
	Attempts int           `json:"attempts" bson:"attempts"`
	Cost     int           `json:"cost" bson:"cost"`
	Status   RecordStatus  `json:"status" bson:"status"`
}

func (r CrackResult) Found() bool { return r.Password != nil }

type RecordState struct {
	User     string       `json:"user"`
	Cost     int          `json:"cost"`
	Status   RecordStatus `json:"status"`
	Attempts int          `json:"attempts,omitempty"`
}

type GroupStatus struct {
	Cost    int `json:"cost"`
	Total   int `json:"total"`
	Cracked int `json:"cracked"`
	Done    int `json:"done"`
}

type RunStatus struct {
	RunID      string        `json:"runId"`
	StartedAt  time.Time     `json:"startedAt"`
	CorpusSize int           `json:"corpusSize"`
	Workers    int           `json:"workers"`
	Groups     []GroupStatus `json:"groups"`
	Records    []RecordState `json:"records"`
	Finished   bool          `json:"finished"`
}
