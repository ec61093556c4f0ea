package models

// AnswerType tells where an answer came from.
type AnswerType string

const (
	AnswerDocuments        AnswerType = "documents"
	AnswerExternal         AnswerType = "external"
	AnswerExternalFallback AnswerType = "external_fallback"
)

// Answer is the result of asking a question.
type Answer struct {
	Answer         string     `json:"answer"`
	Sources        []string   `json:"sources"`
	Type           AnswerType `json:"type"`
	FallbackReason string     `json:"fallback_reason,omitempty"`
}

// QuizQuestion is one multiple-choice question generated from the tenant's documents.
type QuizQuestion struct {
	Question      string   `json:"question"`
	Options       []string `json:"options"`
	CorrectAnswer string   `json:"correct_answer"`
	Explanation   string   `json:"explanation"`
}

// DashboardStats is derived on demand and never persisted.
type DashboardStats struct {
	DocumentCount int     `json:"document_count"`
	QuestionCount int     `json:"question_count"`
	StudyHours    float64 `json:"study_hours"`
	QuizScoreAvg  int     `json:"quiz_score_avg"`
}

// IngestStatus is the coarse outcome of an ingest request.
type IngestStatus string

const (
	IngestSuccess IngestStatus = "success"
	IngestWarning IngestStatus = "warning"
	IngestError   IngestStatus = "error"
)

// IngestResult reports what an ingest request did, including partial progress.
type IngestResult struct {
	Status        IngestStatus `json:"status"`
	Message       string       `json:"message"`
	Files         []string     `json:"files"`
	EmptyFiles    []string     `json:"empty_files,omitempty"`
	Chunks        int          `json:"chunks"`
	IndexedChunks int          `json:"indexed_chunks"`
}

// TenantStatus lists what the tenant has uploaded so far.
type TenantStatus struct {
	DocumentsUploaded int      `json:"documents_uploaded"`
	Documents         []string `json:"documents"`
	IndexedChunks     int      `json:"indexed_chunks"`
}
