package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	api "github.com/brightpath/academy/internal/api/http"
	"github.com/brightpath/academy/internal/db"
	"github.com/brightpath/academy/internal/exam"
)

func newTestRouter(t *testing.T, name string) chi.Router {
	t.Helper()
	dbh, err := db.Open(context.Background(), db.DriverSQLite, fmt.Sprintf("file:%s?mode=memory&cache=shared", name))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { dbh.Close() })

	store := exam.NewSQLStore(dbh, "sqlite", 400)
	svc := exam.NewService(store, nil, func() time.Time { return time.UnixMilli(1_700_000_000_000) }, rand.New(rand.NewSource(1)))

	r := chi.NewRouter()
	r.Post("/exams/upload", api.UploadExamHandler(svc))
	r.Post("/exams/create-from-bank", api.CreateFromBankHandler(svc))
	r.Get("/exams/{examID}/questions", api.GetExamQuestionsHandler(svc))
	r.Post("/exams/{examID}/start", api.StartExamHandler(svc))
	r.Post("/exams/{examID}/submit", api.SubmitExamHandler(svc))
	r.Get("/attempts/latest", api.LatestAttemptHandler(svc))
	r.Get("/attempts/{attemptID}", api.GetAttemptHandler(svc))
	r.Post("/question-bank/upload", api.UploadBankHandler(svc))
	r.Get("/question-bank/topics", api.ListTopicsHandler(svc))
	r.Get("/question-bank/questions", api.ListBankQuestionsHandler(svc))
	return r
}

func doJSON(t *testing.T, r chi.Router, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, into any) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), into); err != nil {
		t.Fatalf("decode response %q: %v", w.Body.String(), err)
	}
}

func uploadCSV(t *testing.T, r chi.Router, csvBody string, fields map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "questions.csv")
	if err != nil {
		t.Fatalf("form file: %v", err)
	}
	if _, err := fw.Write([]byte(csvBody)); err != nil {
		t.Fatalf("write csv: %v", err)
	}
	for k, v := range fields {
		_ = mw.WriteField(k, v)
	}
	mw.Close()

	req := httptest.NewRequest("POST", "/exams/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

const sampleCSV = `question_text,option_a,option_b,option_c,option_d,correct_option
1+1=?,2,3,,,a
2+2=?,3,4,,,b
3+3=?,6,7,,,a
`

func TestUploadExam_EndToEnd(t *testing.T) {
	r := newTestRouter(t, "h_upload")

	w := uploadCSV(t, r, sampleCSV, map[string]string{
		"title": "Arithmetic", "code": "AR-1", "time_limit_minutes": "10", "class_id": "8",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("upload status = %d body=%s", w.Code, w.Body.String())
	}
	var created struct {
		ExamID string `json:"exam_id"`
	}
	decode(t, w, &created)
	if created.ExamID == "" {
		t.Fatalf("no exam id in %s", w.Body.String())
	}

	// student view must not leak the answer key
	w = doJSON(t, r, "GET", "/exams/"+created.ExamID+"/questions", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("questions status = %d", w.Code)
	}
	if strings.Contains(w.Body.String(), "correct_option") {
		t.Fatalf("student view leaks correct_option: %s", w.Body.String())
	}
	var view struct {
		ExamID           string `json:"exam_id"`
		TimeLimitMinutes int    `json:"time_limit_minutes"`
		Questions        []struct {
			ID         string            `json:"id"`
			QuestionNo int               `json:"question_no"`
			Options    map[string]string `json:"options"`
		} `json:"questions"`
	}
	decode(t, w, &view)
	if len(view.Questions) != 3 || view.TimeLimitMinutes != 10 {
		t.Fatalf("view = %+v", view)
	}
	if len(view.Questions[0].Options) != 4 {
		t.Fatalf("options not padded to four keys: %+v", view.Questions[0].Options)
	}

	// start, answer one correctly, submit
	w = doJSON(t, r, "POST", "/exams/"+created.ExamID+"/start", map[string]string{"student_id": "S1"})
	if w.Code != http.StatusOK {
		t.Fatalf("start status = %d body=%s", w.Code, w.Body.String())
	}
	var started struct {
		AttemptID     string   `json:"attempt_id"`
		QuestionOrder []string `json:"question_order"`
	}
	decode(t, w, &started)
	if started.AttemptID == "" || len(started.QuestionOrder) != 3 {
		t.Fatalf("start response = %s", w.Body.String())
	}

	w = doJSON(t, r, "POST", "/exams/"+created.ExamID+"/submit", map[string]any{
		"student_id": "S1",
		"attempt_id": started.AttemptID,
		"answers":    map[string]string{started.QuestionOrder[0]: "a"},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("submit status = %d body=%s", w.Code, w.Body.String())
	}
	var result struct {
		Score          int  `json:"score"`
		TotalQuestions int  `json:"total_questions"`
		WrongCount     int  `json:"wrong_count"`
		TimedOut       bool `json:"timed_out"`
	}
	decode(t, w, &result)
	if result.Score != 1 || result.TotalQuestions != 3 || result.WrongCount != 2 || result.TimedOut {
		t.Fatalf("result = %+v", result)
	}

	// double submit → 400
	w = doJSON(t, r, "POST", "/exams/"+created.ExamID+"/submit", map[string]any{
		"student_id": "S1", "attempt_id": started.AttemptID, "answers": map[string]string{},
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("double submit status = %d", w.Code)
	}

	// wrong student → 403
	w = doJSON(t, r, "GET", "/attempts/"+started.AttemptID, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get attempt status = %d", w.Code)
	}
	w = doJSON(t, r, "GET", "/attempts/latest?student_id=S1", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("latest status = %d", w.Code)
	}
}

func TestUploadExam_Validation(t *testing.T) {
	r := newTestRouter(t, "h_upload_bad")

	// missing title
	w := uploadCSV(t, r, sampleCSV, map[string]string{"code": "AR-1"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("missing title status = %d", w.Code)
	}
	// header only, zero rows
	w = uploadCSV(t, r, "question_text,option_a\n", map[string]string{"title": "t", "code": "c"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("empty rows status = %d", w.Code)
	}
	// missing file entirely
	w = doJSON(t, r, "POST", "/exams/upload", nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("missing file status = %d", w.Code)
	}
}

func TestSubmit_ForbiddenAndNotFound(t *testing.T) {
	r := newTestRouter(t, "h_submit_codes")

	w := uploadCSV(t, r, sampleCSV, map[string]string{"title": "t", "code": "c"})
	var created struct {
		ExamID string `json:"exam_id"`
	}
	decode(t, w, &created)

	w = doJSON(t, r, "POST", "/exams/"+created.ExamID+"/start", map[string]string{"student_id": "S1"})
	var started struct {
		AttemptID string `json:"attempt_id"`
	}
	decode(t, w, &started)

	// another student's submit → 403
	w = doJSON(t, r, "POST", "/exams/"+created.ExamID+"/submit", map[string]any{
		"student_id": "S2", "attempt_id": started.AttemptID,
	})
	if w.Code != http.StatusForbidden {
		t.Fatalf("foreign submit status = %d", w.Code)
	}

	// unknown exam → 404
	w = doJSON(t, r, "POST", "/exams/nope/submit", map[string]any{
		"student_id": "S1", "attempt_id": started.AttemptID,
	})
	if w.Code != http.StatusNotFound {
		t.Fatalf("unknown exam status = %d", w.Code)
	}

	// unknown attempt → 404
	w = doJSON(t, r, "POST", "/exams/"+created.ExamID+"/submit", map[string]any{
		"student_id": "S1", "attempt_id": "nope",
	})
	if w.Code != http.StatusNotFound {
		t.Fatalf("unknown attempt status = %d", w.Code)
	}

	// unknown exam questions → 404
	w = doJSON(t, r, "GET", "/exams/nope/questions", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("unknown exam questions status = %d", w.Code)
	}

	// latest for student with no attempts → 404
	w = doJSON(t, r, "GET", "/attempts/latest?student_id=S-none", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("latest empty status = %d", w.Code)
	}
}

func TestQuestionBankEndpoints(t *testing.T) {
	r := newTestRouter(t, "h_bank")

	rows := []map[string]any{
		{"question_text": "2+2=?", "option_a": "3", "option_b": "4", "correct_option": "b"},
		{"question_text": "5*5=?", "option_a": "25", "option_b": "10", "correct_option": "a"},
	}
	w := doJSON(t, r, "POST", "/question-bank/upload", map[string]any{
		"class_id": 8, "topic": "Arithmetic", "rows": rows, "admin_uid": "admin-1",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("bank upload status = %d body=%s", w.Code, w.Body.String())
	}
	var up struct {
		Count int `json:"count"`
	}
	decode(t, w, &up)
	if up.Count != 2 {
		t.Fatalf("count = %d", up.Count)
	}

	// missing topic → 400
	w = doJSON(t, r, "POST", "/question-bank/upload", map[string]any{"class_id": 8, "rows": rows})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("missing topic status = %d", w.Code)
	}

	w = doJSON(t, r, "GET", "/question-bank/topics?class_id=8", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("topics status = %d", w.Code)
	}
	var topics struct {
		Topics []exam.TopicCount `json:"topics"`
	}
	decode(t, w, &topics)
	if len(topics.Topics) != 1 || topics.Topics[0].Count != 2 {
		t.Fatalf("topics = %+v", topics)
	}

	w = doJSON(t, r, "GET", "/question-bank/questions?class_id=8&topics=Arithmetic", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("questions status = %d", w.Code)
	}
	var qs struct {
		Questions []exam.BankEntry `json:"questions"`
	}
	decode(t, w, &qs)
	if len(qs.Questions) != 2 {
		t.Fatalf("questions = %+v", qs)
	}
	if qs.Questions[0].Options["B"] != "4" && qs.Questions[1].Options["B"] != "4" {
		t.Fatalf("normalized option missing: %+v", qs.Questions)
	}

	// create an exam from the bank over HTTP
	w = doJSON(t, r, "POST", "/exams/create-from-bank", map[string]any{
		"title": "Bank exam", "code": "BK-1", "class_id": 8, "total_questions": 1,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("create-from-bank status = %d body=%s", w.Code, w.Body.String())
	}
	var created struct {
		ExamID        string `json:"exam_id"`
		QuestionCount int    `json:"question_count"`
	}
	decode(t, w, &created)
	if created.QuestionCount != 1 || created.ExamID == "" {
		t.Fatalf("created = %+v", created)
	}
}
