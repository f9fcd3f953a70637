package exam

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// EventSink receives domain events for the append-only log. Appends are
// best-effort: a failed append never fails the operation that produced it.
type EventSink interface {
	Append(ctx context.Context, typ, key string, data any) error
}

const (
	EventExamCreated      = "ExamCreated"
	EventBankImported     = "BankImported"
	EventAttemptStarted   = "AttemptStarted"
	EventAttemptSubmitted = "AttemptSubmitted"
)

type Service struct {
	store  Store
	events EventSink
	now    func() time.Time
	rng    *rand.Rand
}

// NewService wires the exam workflows. now and rng are injectable for tests;
// pass nil for production defaults.
func NewService(store Store, events EventSink, now func() time.Time, rng *rand.Rand) *Service {
	if now == nil {
		now = time.Now
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Service{store: store, events: events, now: now, rng: rng}
}

func (s *Service) emit(ctx context.Context, typ, key string, data any) {
	if s.events == nil {
		return
	}
	_ = s.events.Append(ctx, typ, key, data)
}

/* ---------------------------------- Question bank importer ---------------------------------- */

// ImportBatch normalizes rows into bank entries tagged with class and topic
// and persists them in capped-size batches. Returns the count written.
func (s *Service) ImportBatch(ctx context.Context, classID int, topic string, rows []Row, importedBy string) (int, error) {
	topic = strings.TrimSpace(topic)
	if classID <= 0 {
		return 0, Validation("class_id required")
	}
	if topic == "" {
		return 0, Validation("topic required")
	}
	if len(rows) == 0 {
		return 0, Validation("rows required")
	}

	nowMs := s.now().UnixMilli()
	entries := make([]BankEntry, 0, len(rows))
	for i, r := range rows {
		n := normalizeRow(r)
		if n.Text == "" {
			return 0, Validation(fmt.Sprintf("row %d: question text required", i+1))
		}
		if err := checkCorrectOption(n, i); err != nil {
			return 0, err
		}
		entries = append(entries, BankEntry{
			ID:            uuid.NewString(),
			ClassID:       classID,
			Topic:         topic,
			Text:          n.Text,
			Type:          n.Type,
			Options:       n.Options,
			CorrectOption: n.CorrectOption,
			CreatedBy:     importedBy,
			CreatedAt:     nowMs,
		})
	}

	count, err := s.store.InsertBankEntries(ctx, entries)
	if err != nil {
		return count, Internal("import question bank batch", err)
	}
	s.emit(ctx, EventBankImported, topic, map[string]any{"class_id": classID, "topic": topic, "count": count})
	return count, nil
}

// ListTopics groups the class's bank entries by topic, sorted by count
// descending then topic ascending.
func (s *Service) ListTopics(ctx context.Context, classID int) ([]TopicCount, error) {
	if classID <= 0 {
		return nil, Validation("class_id required")
	}
	out, err := s.store.TopicCounts(ctx, classID)
	if err != nil {
		return nil, Internal("list bank topics", err)
	}
	if out == nil {
		out = []TopicCount{}
	}
	return out, nil
}

func (s *Service) ListBankQuestions(ctx context.Context, classID int, topics []string) ([]BankEntry, error) {
	if classID <= 0 {
		return nil, Validation("class_id required")
	}
	out, err := s.store.ListBank(ctx, classID, trimNonEmpty(topics))
	if err != nil {
		return nil, Internal("list bank questions", err)
	}
	if out == nil {
		out = []BankEntry{}
	}
	return out, nil
}

/* --------------------------------------- Exam builder --------------------------------------- */

type CreateFromRowsInput struct {
	Title            string
	Code             string
	Description      string
	TimeLimitMinutes int
	ClassID          int
	BatchID          string
	CreatedBy        string
	Rows             []Row
}

// CreateFromRows materializes an exam from normalized upload rows, numbering
// questions 1..N in row order (explicit question_no wins when present).
func (s *Service) CreateFromRows(ctx context.Context, in CreateFromRowsInput) (string, error) {
	if strings.TrimSpace(in.Title) == "" || strings.TrimSpace(in.Code) == "" {
		return "", Validation("title and code required")
	}
	if len(in.Rows) == 0 {
		return "", Validation("no question rows parsed from file")
	}

	questions := make([]Question, 0, len(in.Rows))
	for i, r := range in.Rows {
		n := normalizeRow(r)
		if err := checkCorrectOption(n, i); err != nil {
			return "", err
		}
		questions = append(questions, Question{
			ID:            uuid.NewString(),
			QuestionNo:    questionNo(r, i+1),
			Text:          n.Text,
			Type:          n.Type,
			Options:       n.Options,
			CorrectOption: n.CorrectOption,
		})
	}

	e := Exam{
		ID:               uuid.NewString(),
		Code:             strings.TrimSpace(in.Code),
		Title:            strings.TrimSpace(in.Title),
		Description:      in.Description,
		TimeLimitMinutes: in.TimeLimitMinutes,
		ClassID:          in.ClassID,
		BatchID:          batchOrAll(in.BatchID),
		CreatedBy:        in.CreatedBy,
		Questions:        questions,
		CreatedAt:        s.now().UnixMilli(),
	}
	if err := s.store.PutExam(ctx, e); err != nil {
		return "", Internal("create exam from rows", err)
	}
	s.emit(ctx, EventExamCreated, e.ID, map[string]any{"code": e.Code, "questions": len(questions)})
	return e.ID, nil
}

type CreateFromBankInput struct {
	Title            string
	Code             string
	ClassID          int
	BatchID          string
	TimeLimitMinutes int
	Topics           []string
	TotalQuestions   int // <= 0 means all matching entries
	CreatedBy        string
}

// CreateFromBank samples the class's bank (optionally topic-filtered) with an
// unbiased shuffle and copies the first min(total, available) entries into a
// new exam. Returns the exam id and the number of questions placed.
func (s *Service) CreateFromBank(ctx context.Context, in CreateFromBankInput) (string, int, error) {
	if strings.TrimSpace(in.Title) == "" || strings.TrimSpace(in.Code) == "" {
		return "", 0, Validation("title and code required")
	}
	if in.ClassID <= 0 {
		return "", 0, Validation("class_id required")
	}

	all, err := s.store.ListBank(ctx, in.ClassID, nil)
	if err != nil {
		return "", 0, Internal("load question bank", err)
	}
	if len(all) == 0 {
		return "", 0, Validation("no question bank entries for class")
	}

	topics := trimNonEmpty(in.Topics)
	pool := all
	if len(topics) > 0 {
		want := make(map[string]bool, len(topics))
		for _, t := range topics {
			want[t] = true
		}
		pool = pool[:0:0]
		for _, en := range all {
			if want[en.Topic] {
				pool = append(pool, en)
			}
		}
		if len(pool) == 0 {
			return "", 0, Validation("no questions match selected topics")
		}
	}

	fisherYates(s.rng, pool)
	k := len(pool)
	if in.TotalQuestions > 0 && in.TotalQuestions < k {
		k = in.TotalQuestions
	}

	questions := make([]Question, 0, k)
	for i, en := range pool[:k] {
		questions = append(questions, Question{
			ID:                   uuid.NewString(),
			QuestionNo:           i + 1,
			Text:                 en.Text,
			Type:                 en.Type,
			Options:              en.Options,
			CorrectOption:        en.CorrectOption,
			SourceQuestionBankID: en.ID,
			Topic:                en.Topic,
		})
	}

	sourceTopics := topics
	if len(sourceTopics) == 0 {
		sourceTopics = distinctTopics(pool[:k])
	}

	e := Exam{
		ID:               uuid.NewString(),
		Code:             strings.TrimSpace(in.Code),
		Title:            strings.TrimSpace(in.Title),
		TimeLimitMinutes: in.TimeLimitMinutes,
		ClassID:          in.ClassID,
		BatchID:          batchOrAll(in.BatchID),
		CreatedBy:        in.CreatedBy,
		SourceTopics:     sourceTopics,
		Questions:        questions,
		CreatedAt:        s.now().UnixMilli(),
	}
	if err := s.store.PutExam(ctx, e); err != nil {
		return "", 0, Internal("create exam from bank", err)
	}
	s.emit(ctx, EventExamCreated, e.ID, map[string]any{"code": e.Code, "questions": k, "topics": sourceTopics})
	return e.ID, k, nil
}

/* ----------------------------------- Attempt lifecycle ----------------------------------- */

// StartResult pairs the fresh attempt with the exam's time limit so clients
// can arm their countdown without a second fetch.
type StartResult struct {
	Attempt
	TimeLimitMinutes int `json:"time_limit_minutes"`
}

// StartExam creates a fresh attempt for the student with the question order
// fixed up front: natural question_no order, or an unbiased shuffle of it.
// Repeated starts create independent attempts.
func (s *Service) StartExam(ctx context.Context, examID, studentID string, randomize bool) (StartResult, error) {
	if strings.TrimSpace(studentID) == "" {
		return StartResult{}, Validation("student_id required")
	}
	e, err := s.store.GetExam(ctx, examID)
	if err != nil {
		return StartResult{}, err
	}
	if len(e.Questions) == 0 {
		return StartResult{}, Validation("no questions in exam")
	}

	qs := make([]Question, len(e.Questions))
	copy(qs, e.Questions)
	sort.SliceStable(qs, func(i, j int) bool { return qs[i].QuestionNo < qs[j].QuestionNo })
	order := make([]string, len(qs))
	for i, q := range qs {
		order[i] = q.ID
	}
	if randomize {
		fisherYates(s.rng, order)
	}

	nowMs := s.now().UnixMilli()
	a := Attempt{
		ID:            uuid.NewString(),
		ExamID:        e.ID,
		StudentID:     studentID,
		Answers:       map[string]string{},
		QuestionOrder: order,
		StartedAt:     nowMs,
		CreatedAt:     nowMs,
	}
	if err := s.store.CreateAttempt(ctx, a); err != nil {
		return StartResult{}, Internal("create attempt", err)
	}
	s.emit(ctx, EventAttemptStarted, a.ID, map[string]any{"exam_id": e.ID, "student_id": studentID})
	return StartResult{Attempt: a, TimeLimitMinutes: e.TimeLimitMinutes}, nil
}

// SubmitExam merges the supplied answers over the stored ones, scores the
// attempt, and finalizes it exactly once. A timed-out attempt is still scored;
// the flag only annotates the result.
func (s *Service) SubmitExam(ctx context.Context, examID, studentID, attemptID string, answers map[string]string) (Result, error) {
	if strings.TrimSpace(studentID) == "" || strings.TrimSpace(attemptID) == "" {
		return Result{}, Validation("student_id and attempt_id required")
	}
	e, err := s.store.GetExam(ctx, examID)
	if err != nil {
		return Result{}, err
	}
	a, err := s.store.GetAttempt(ctx, attemptID)
	if err != nil {
		return Result{}, err
	}
	if a.StudentID != studentID {
		return Result{}, Forbidden("attempt does not belong to this student")
	}
	if a.Submitted() {
		return Result{}, Validation("attempt already submitted")
	}

	nowMs := s.now().UnixMilli()
	timedOut := false
	if e.TimeLimitMinutes > 0 && a.StartedAt > 0 {
		timedOut = nowMs-a.StartedAt > int64(e.TimeLimitMinutes)*60_000
	}

	merged := make(map[string]string, len(a.Answers)+len(answers))
	for k, v := range a.Answers {
		merged[k] = v
	}
	for k, v := range answers {
		merged[k] = v
	}

	byID := make(map[string]Question, len(e.Questions))
	for _, q := range e.Questions {
		byID[q.ID] = q
	}
	iter := a.QuestionOrder
	if len(iter) == 0 {
		iter = make([]string, 0, len(byID))
		for id := range byID {
			iter = append(iter, id)
		}
	}

	total, correctCount := 0, 0
	perQuestion := make(map[string]QuestionResult, len(iter))
	for _, qid := range iter {
		q, ok := byID[qid]
		if !ok {
			continue
		}
		total++
		correct := strings.ToUpper(strings.TrimSpace(q.CorrectOption))
		selected := strings.ToUpper(strings.TrimSpace(merged[qid]))
		isCorrect := selected != "" && correct != "" && selected == correct
		if isCorrect {
			correctCount++
		}
		perQuestion[qid] = QuestionResult{Selected: selected, Correct: correct, IsCorrect: isCorrect}
	}

	fin := Finalization{
		Answers:           merged,
		Score:             correctCount,
		TotalQuestions:    total,
		CorrectCount:      correctCount,
		WrongCount:        total - correctCount,
		TimedOut:          timedOut,
		PerQuestionResult: perQuestion,
		SubmittedAt:       nowMs,
	}
	applied, err := s.store.FinalizeIfNotSubmitted(ctx, attemptID, fin)
	if err != nil {
		return Result{}, Internal("finalize attempt", err)
	}
	if !applied {
		// lost the race to a concurrent submit
		return Result{}, Validation("attempt already submitted")
	}

	s.emit(ctx, EventAttemptSubmitted, attemptID, map[string]any{
		"exam_id": e.ID, "student_id": studentID, "score": fin.Score, "total": fin.TotalQuestions,
	})
	return Result{
		AttemptID:         attemptID,
		ExamID:            e.ID,
		Score:             fin.Score,
		TotalQuestions:    fin.TotalQuestions,
		CorrectCount:      fin.CorrectCount,
		WrongCount:        fin.WrongCount,
		TimedOut:          fin.TimedOut,
		PerQuestionResult: fin.PerQuestionResult,
	}, nil
}

func (s *Service) GetExam(ctx context.Context, examID string) (Exam, error) {
	return s.store.GetExam(ctx, examID)
}

func (s *Service) GetAttempt(ctx context.Context, attemptID string) (Attempt, error) {
	return s.store.GetAttempt(ctx, attemptID)
}

// LatestAttemptForStudent returns (nil, nil) when the student has no attempts.
func (s *Service) LatestAttemptForStudent(ctx context.Context, studentID string) (*Attempt, error) {
	if strings.TrimSpace(studentID) == "" {
		return nil, Validation("student_id required")
	}
	return s.store.LatestAttemptForStudent(ctx, studentID)
}

/* ---------------------------------------- helpers ---------------------------------------- */

func checkCorrectOption(n normalizedQuestion, idx int) error {
	if n.CorrectOption == "" {
		return nil
	}
	if _, ok := n.Options[n.CorrectOption]; !ok {
		return Validation(fmt.Sprintf("row %d: correct option %q is not an option key", idx+1, n.CorrectOption))
	}
	return nil
}

func batchOrAll(batchID string) string {
	if b := strings.TrimSpace(batchID); b != "" {
		return b
	}
	return BatchAll
}

func trimNonEmpty(in []string) []string {
	var out []string
	for _, s := range in {
		if t := strings.TrimSpace(s); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func distinctTopics(entries []BankEntry) []string {
	seen := map[string]bool{}
	var out []string
	for _, en := range entries {
		if !seen[en.Topic] {
			seen[en.Topic] = true
			out = append(out, en.Topic)
		}
	}
	sort.Strings(out)
	return out
}
