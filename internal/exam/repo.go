package exam

import "context"

// Finalization is the one-time payload written when an attempt is submitted.
type Finalization struct {
	Answers           map[string]string
	Score             int
	TotalQuestions    int
	CorrectCount      int
	WrongCount        int
	TimedOut          bool
	PerQuestionResult map[string]QuestionResult
	SubmittedAt       int64 // unix ms
}

type Store interface {
	PutExam(ctx context.Context, e Exam) error
	GetExam(ctx context.Context, id string) (Exam, error)

	// InsertBankEntries persists entries in capped-size batches and returns
	// the total written.
	InsertBankEntries(ctx context.Context, entries []BankEntry) (int, error)
	ListBank(ctx context.Context, classID int, topics []string) ([]BankEntry, error)
	TopicCounts(ctx context.Context, classID int) ([]TopicCount, error)

	CreateAttempt(ctx context.Context, a Attempt) error
	GetAttempt(ctx context.Context, id string) (Attempt, error)
	// LatestAttemptForStudent returns (nil, nil) when the student has no attempts.
	LatestAttemptForStudent(ctx context.Context, studentID string) (*Attempt, error)

	// FinalizeIfNotSubmitted applies fin with a conditional update guarded by
	// submitted_at IS NULL and reports whether it applied. This is the sole
	// transition into the finalized state; a concurrent loser observes
	// applied == false.
	FinalizeIfNotSubmitted(ctx context.Context, attemptID string, fin Finalization) (bool, error)
}
