package exam

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

type SQLStore struct {
	db       *sql.DB
	driver   string // "sqlite" or "postgres"
	batchMax int    // max rows per insert transaction
}

func NewSQLStore(db *sql.DB, driver string, batchMax int) *SQLStore {
	if batchMax <= 0 {
		batchMax = 400
	}
	return &SQLStore{db: db, driver: driver, batchMax: batchMax}
}

func (s *SQLStore) PutExam(ctx context.Context, e Exam) error {
	qj, err := json.Marshal(e.Questions)
	if err != nil {
		return err
	}
	tj, err := json.Marshal(e.SourceTopics)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO exams
		(id,code,title,description,time_limit_minutes,class_id,batch_id,created_by,source_topics_json,questions_json,created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
		e.ID, e.Code, e.Title, e.Description, e.TimeLimitMinutes, e.ClassID, e.BatchID,
		e.CreatedBy, string(tj), string(qj), e.CreatedAt)
	return err
}

func (s *SQLStore) GetExam(ctx context.Context, id string) (Exam, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id,code,title,description,time_limit_minutes,class_id,batch_id,created_by,source_topics_json,questions_json,created_at
		FROM exams WHERE id=$1`, id)
	var e Exam
	var tjson, qjson string
	err := row.Scan(&e.ID, &e.Code, &e.Title, &e.Description, &e.TimeLimitMinutes, &e.ClassID,
		&e.BatchID, &e.CreatedBy, &tjson, &qjson, &e.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Exam{}, NotFound("exam not found")
		}
		return Exam{}, err
	}
	if err := json.Unmarshal([]byte(qjson), &e.Questions); err != nil {
		return Exam{}, err
	}
	if err := json.Unmarshal([]byte(tjson), &e.SourceTopics); err != nil {
		return Exam{}, err
	}
	return e, nil
}

func (s *SQLStore) InsertBankEntries(ctx context.Context, entries []BankEntry) (int, error) {
	written := 0
	for start := 0; start < len(entries); start += s.batchMax {
		end := start + s.batchMax
		if end > len(entries) {
			end = len(entries)
		}
		if err := s.insertBankChunk(ctx, entries[start:end]); err != nil {
			return written, err
		}
		written += end - start
	}
	return written, nil
}

func (s *SQLStore) insertBankChunk(ctx context.Context, chunk []BankEntry) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO question_bank
		(id,class_id,topic,text,qtype,options_json,correct_option,created_by,created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, en := range chunk {
		oj, err := json.Marshal(en.Options)
		if err != nil {
			return err
		}
		if _, err := stmt.ExecContext(ctx, en.ID, en.ClassID, en.Topic, en.Text, en.Type,
			string(oj), en.CorrectOption, en.CreatedBy, en.CreatedAt); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *SQLStore) ListBank(ctx context.Context, classID int, topics []string) ([]BankEntry, error) {
	q := `SELECT id,class_id,topic,text,qtype,options_json,correct_option,created_by,created_at
		FROM question_bank WHERE class_id=$1`
	args := []any{classID}
	if len(topics) > 0 {
		ph := make([]string, len(topics))
		for i, t := range topics {
			args = append(args, t)
			ph[i] = fmt.Sprintf("$%d", len(args))
		}
		q += ` AND topic IN (` + strings.Join(ph, ",") + `)`
	}
	q += ` ORDER BY created_at ASC, id ASC`

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []BankEntry
	for rows.Next() {
		var en BankEntry
		var ojson string
		if err := rows.Scan(&en.ID, &en.ClassID, &en.Topic, &en.Text, &en.Type,
			&ojson, &en.CorrectOption, &en.CreatedBy, &en.CreatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(ojson), &en.Options); err != nil {
			return nil, err
		}
		out = append(out, en)
	}
	return out, rows.Err()
}

func (s *SQLStore) TopicCounts(ctx context.Context, classID int) ([]TopicCount, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT topic, COUNT(*) AS cnt
		FROM question_bank WHERE class_id=$1
		GROUP BY topic ORDER BY cnt DESC, topic ASC`, classID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TopicCount
	for rows.Next() {
		var tc TopicCount
		if err := rows.Scan(&tc.Topic, &tc.Count); err != nil {
			return nil, err
		}
		out = append(out, tc)
	}
	return out, rows.Err()
}

func (s *SQLStore) CreateAttempt(ctx context.Context, a Attempt) error {
	aj, err := json.Marshal(a.Answers)
	if err != nil {
		return err
	}
	oj, err := json.Marshal(a.QuestionOrder)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO attempts
		(id,exam_id,student_id,answers_json,question_order_json,started_at,created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		a.ID, a.ExamID, a.StudentID, string(aj), string(oj), a.StartedAt, a.CreatedAt)
	return err
}

const attemptColumns = `id,exam_id,student_id,answers_json,question_order_json,started_at,submitted_at,score,total_questions,correct_count,wrong_count,timed_out,per_question_json,created_at`

func (s *SQLStore) GetAttempt(ctx context.Context, id string) (Attempt, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+attemptColumns+` FROM attempts WHERE id=$1`, id)
	a, err := scanAttempt(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Attempt{}, NotFound("attempt not found")
		}
		return Attempt{}, err
	}
	return a, nil
}

func (s *SQLStore) LatestAttemptForStudent(ctx context.Context, studentID string) (*Attempt, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+attemptColumns+` FROM attempts
		WHERE student_id=$1 ORDER BY created_at DESC LIMIT 1`, studentID)
	a, err := scanAttempt(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &a, nil
}

func (s *SQLStore) FinalizeIfNotSubmitted(ctx context.Context, attemptID string, fin Finalization) (bool, error) {
	aj, err := json.Marshal(fin.Answers)
	if err != nil {
		return false, err
	}
	pj, err := json.Marshal(fin.PerQuestionResult)
	if err != nil {
		return false, err
	}
	res, err := s.db.ExecContext(ctx, `UPDATE attempts
		SET answers_json=$1, score=$2, total_questions=$3, correct_count=$4, wrong_count=$5,
		    timed_out=$6, per_question_json=$7, submitted_at=$8
		WHERE id=$9 AND submitted_at IS NULL`,
		string(aj), fin.Score, fin.TotalQuestions, fin.CorrectCount, fin.WrongCount,
		fin.TimedOut, string(pj), fin.SubmittedAt, attemptID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAttempt(row rowScanner) (Attempt, error) {
	var a Attempt
	var ajson, ojson, pjson string
	var submitted sql.NullInt64
	err := row.Scan(&a.ID, &a.ExamID, &a.StudentID, &ajson, &ojson, &a.StartedAt, &submitted,
		&a.Score, &a.TotalQuestions, &a.CorrectCount, &a.WrongCount, &a.TimedOut, &pjson, &a.CreatedAt)
	if err != nil {
		return Attempt{}, err
	}
	if submitted.Valid {
		a.SubmittedAt = &submitted.Int64
	}
	if err := json.Unmarshal([]byte(ajson), &a.Answers); err != nil {
		a.Answers = map[string]string{}
	}
	if err := json.Unmarshal([]byte(ojson), &a.QuestionOrder); err != nil {
		return Attempt{}, err
	}
	if err := json.Unmarshal([]byte(pjson), &a.PerQuestionResult); err != nil {
		a.PerQuestionResult = nil
	}
	return a, nil
}
