package exam

// OptionKeys are the option slots every question carries. Absent options are
// stored as empty strings so the portal can always render four rows.
var OptionKeys = []string{"A", "B", "C", "D"}

// BatchAll is the sentinel batch id meaning "every batch in this class".
const BatchAll = "ALL"

type Question struct {
	ID                   string            `json:"id"`
	QuestionNo           int               `json:"question_no"`
	Text                 string            `json:"text"`
	Type                 string            `json:"type"` // default "MCQ"
	Options              map[string]string `json:"options"`
	CorrectOption        string            `json:"correct_option,omitempty"`
	SourceQuestionBankID string            `json:"source_question_bank_id,omitempty"`
	Topic                string            `json:"topic,omitempty"`
}

type Exam struct {
	ID               string     `json:"id"`
	Code             string     `json:"code"`
	Title            string     `json:"title"`
	Description      string     `json:"description,omitempty"`
	TimeLimitMinutes int        `json:"time_limit_minutes"` // <= 0 means unlimited
	ClassID          int        `json:"class_id,omitempty"`
	BatchID          string     `json:"batch_id"`
	CreatedBy        string     `json:"created_by,omitempty"`
	SourceTopics     []string   `json:"source_topics,omitempty"`
	Questions        []Question `json:"questions"`
	CreatedAt        int64      `json:"created_at"` // unix ms
}

// BankEntry is a reusable question stored independently of any exam,
// tagged by class and topic.
type BankEntry struct {
	ID            string            `json:"id"`
	ClassID       int               `json:"class_id"`
	Topic         string            `json:"topic"`
	Text          string            `json:"text"`
	Type          string            `json:"type"`
	Options       map[string]string `json:"options"`
	CorrectOption string            `json:"correct_option,omitempty"`
	CreatedBy     string            `json:"created_by,omitempty"`
	CreatedAt     int64             `json:"created_at"`
}

type TopicCount struct {
	Topic string `json:"topic"`
	Count int    `json:"count"`
}

// QuestionResult is the per-question outcome recorded at finalize time.
type QuestionResult struct {
	Selected  string `json:"selected"`
	Correct   string `json:"correct"`
	IsCorrect bool   `json:"is_correct"`
}

type Attempt struct {
	ID                string                    `json:"id"`
	ExamID            string                    `json:"exam_id"`
	StudentID         string                    `json:"student_id"`
	Answers           map[string]string         `json:"answers"`        // questionID -> option key
	QuestionOrder     []string                  `json:"question_order"` // fixed at start, never altered
	StartedAt         int64                     `json:"started_at"`     // unix ms, set once
	SubmittedAt       *int64                    `json:"submitted_at"`   // nil until finalized
	Score             int                       `json:"score"`
	TotalQuestions    int                       `json:"total_questions"`
	CorrectCount      int                       `json:"correct_count"`
	WrongCount        int                       `json:"wrong_count"`
	TimedOut          bool                      `json:"timed_out"`
	PerQuestionResult map[string]QuestionResult `json:"per_question_result,omitempty"`
	CreatedAt         int64                     `json:"created_at"`
}

// Submitted reports whether the attempt has been finalized.
func (a Attempt) Submitted() bool { return a.SubmittedAt != nil }

// Result is what submit returns to the caller.
type Result struct {
	AttemptID         string                    `json:"attempt_id"`
	ExamID            string                    `json:"exam_id"`
	Score             int                       `json:"score"`
	TotalQuestions    int                       `json:"total_questions"`
	CorrectCount      int                       `json:"correct_count"`
	WrongCount        int                       `json:"wrong_count"`
	TimedOut          bool                      `json:"timed_out"`
	PerQuestionResult map[string]QuestionResult `json:"per_question_result"`
}
