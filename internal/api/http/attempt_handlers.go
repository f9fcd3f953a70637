package http

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/brightpath/academy/internal/exam"
)

// POST /exams/{examID}/start?randomize=true|false — body {student_id}
func StartExamHandler(svc *exam.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			StudentID string `json:"student_id"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeErr(w, r, "attempt.start", exam.Validation("bad json"))
			return
		}
		randomize := strings.EqualFold(r.URL.Query().Get("randomize"), "true")
		a, err := svc.StartExam(r.Context(), chi.URLParam(r, "examID"), req.StudentID, randomize)
		if err != nil {
			writeErr(w, r, "attempt.start", err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"attempt_id":         a.ID,
			"exam_id":            a.ExamID,
			"question_order":     a.QuestionOrder,
			"time_limit_minutes": a.TimeLimitMinutes,
		})
	}
}

// POST /exams/{examID}/submit — body {student_id, attempt_id, answers}
func SubmitExamHandler(svc *exam.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			StudentID string            `json:"student_id"`
			AttemptID string            `json:"attempt_id"`
			Answers   map[string]string `json:"answers"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeErr(w, r, "attempt.submit", exam.Validation("bad json"))
			return
		}
		res, err := svc.SubmitExam(r.Context(), chi.URLParam(r, "examID"), req.StudentID, req.AttemptID, req.Answers)
		if err != nil {
			writeErr(w, r, "attempt.submit", err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

// GET /attempts/{attemptID}
func GetAttemptHandler(svc *exam.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a, err := svc.GetAttempt(r.Context(), chi.URLParam(r, "attemptID"))
		if err != nil {
			writeErr(w, r, "attempt.get", err)
			return
		}
		writeJSON(w, http.StatusOK, a)
	}
}

// GET /attempts/latest?student_id=
func LatestAttemptHandler(svc *exam.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a, err := svc.LatestAttemptForStudent(r.Context(), r.URL.Query().Get("student_id"))
		if err != nil {
			writeErr(w, r, "attempt.latest", err)
			return
		}
		if a == nil {
			writeErr(w, r, "attempt.latest", exam.NotFound("no attempts found for this student"))
			return
		}
		writeJSON(w, http.StatusOK, a)
	}
}
