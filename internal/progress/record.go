// Package progress keeps a user's answer history durable: a permanent remote
// ledger of answer records, a per-device session cache for resuming in-flight
// attempts, and the synchronizer that reconciles the two.
package progress

import (
	"time"

	"github.com/mcq-study/backend/internal/quiz"
)

// Record is one entry in the permanent answer ledger. Records are keyed by
// (user id, question id); resubmissions overwrite, last write wins.
type Record struct {
	QuestionID string    `json:"questionId"`
	ChapterID  string    `json:"chapterId"`
	OptionID   string    `json:"selectedOption"`
	Correct    bool      `json:"isCorrect"`
	AnsweredAt time.Time `json:"timestamp"`
}

// FromAnswer converts a session answer into a ledger record.
func FromAnswer(a quiz.Answer) Record {
	return Record{
		QuestionID: a.QuestionID,
		ChapterID:  a.ChapterID,
		OptionID:   a.OptionID,
		Correct:    a.Correct,
		AnsweredAt: a.AnsweredAt,
	}
}

// RecordsFromState extracts the ledger records held in a session snapshot.
func RecordsFromState(st quiz.State) []Record {
	out := make([]Record, 0, len(st.Answers))
	for _, a := range st.Answers {
		out = append(out, FromAnswer(a))
	}
	return out
}
