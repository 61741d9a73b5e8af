package ledger

import (
	"time"

	"bcryptcrack/internal/models"
)

// Document is the shape a result takes in the mirror sinks.
type Document struct {
	RunID          string    `json:"runId" bson:"run_id"`
	User           string    `json:"user" bson:"user"`
	Password       string    `json:"password,omitempty" bson:"password,omitempty"`
	Found          bool      `json:"found" bson:"found"`
	Status         string    `json:"status" bson:"status"`
	ElapsedSeconds float64   `json:"elapsedSeconds" bson:"elapsed_seconds"`
	Attempts       int       `json:"attempts" bson:"attempts"`
	Cost           int       `json:"cost" bson:"cost"`
	RecordedAt     time.Time `json:"recordedAt" bson:"recorded_at"`
}

func NewDocument(runID string, r models.CrackResult) Document {
	d := Document{
		RunID:          runID,
		User:           r.User,
		Found:          r.Found(),
		Status:         string(r.Status),
		ElapsedSeconds: r.Elapsed.Seconds(),
		Attempts:       r.Attempts,
		Cost:           r.Cost,
		RecordedAt:     time.Now().UTC(),
	}
	if r.Password != nil {
		d.Password = *r.Password
	}
	return d
}
