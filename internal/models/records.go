package models

import "time"

// InteractionRecord is one answered question, appended to the tenant's history.
type InteractionRecord struct {
	Question  string     `json:"question" bson:"question"`
	Answer    string     `json:"answer" bson:"answer"`
	Sources   []string   `json:"sources" bson:"sources"`
	Type      AnswerType `json:"type" bson:"type"`
	Timestamp time.Time  `json:"timestamp" bson:"timestamp"`
}

// QuizScoreRecord is one submitted quiz outcome.
type QuizScoreRecord struct {
	Score     int       `json:"score" bson:"score"`
	Total     int       `json:"total" bson:"total"`
	Topic     string    `json:"topic" bson:"topic"`
	Timestamp time.Time `json:"timestamp" bson:"timestamp"`
}

// DocumentRecord is one uploaded file in the tenant's document list.
type DocumentRecord struct {
	Filename   string    `json:"filename" bson:"filename"`
	UploadedAt time.Time `json:"uploaded_at" bson:"uploaded_at"`
}

// TenantRecord is the whole per-tenant document held by the record store.
type TenantRecord struct {
	TenantID         string              `json:"tenant_id" bson:"_id"`
	Documents        []DocumentRecord    `json:"documents" bson:"documents"`
	ChatHistory      []InteractionRecord `json:"chat_history" bson:"chat_history"`
	QuizScores       []QuizScoreRecord   `json:"quiz_scores" bson:"quiz_scores"`
	LastInteractedAt time.Time           `json:"last_interacted_at,omitempty" bson:"last_interacted_at,omitempty"`
}

// Timestamps returns the timestamps of all interactions in stored order.
func (r *TenantRecord) Timestamps() []time.Time {
	out := make([]time.Time, 0, len(r.ChatHistory))
	for _, h := range r.ChatHistory {
		out = append(out, h.Timestamp)
	}
	return out
}
