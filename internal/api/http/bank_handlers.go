package http

import (
	"encoding/json"
	"net/http"

	"github.com/brightpath/academy/internal/exam"
)

// POST /question-bank/upload — body {class_id, topic, rows[], admin_uid}
func UploadBankHandler(svc *exam.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ClassID  int        `json:"class_id"`
			Topic    string     `json:"topic"`
			Rows     []exam.Row `json:"rows"`
			AdminUID string     `json:"admin_uid"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeErr(w, r, "bank.upload", exam.Validation("bad json"))
			return
		}
		count, err := svc.ImportBatch(r.Context(), req.ClassID, req.Topic, req.Rows, req.AdminUID)
		if err != nil {
			writeErr(w, r, "bank.upload", err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"message": "questions imported", "count": count, "class_id": req.ClassID, "topic": req.Topic,
		})
	}
}

// GET /question-bank/topics?class_id=
func ListTopicsHandler(svc *exam.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		classID := parseIntDefault(r.URL.Query().Get("class_id"), 0)
		topics, err := svc.ListTopics(r.Context(), classID)
		if err != nil {
			writeErr(w, r, "bank.topics", err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"class_id": classID, "topics": topics})
	}
}

// GET /question-bank/questions?class_id=&topics=a,b
func ListBankQuestionsHandler(svc *exam.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		classID := parseIntDefault(r.URL.Query().Get("class_id"), 0)
		topics := splitTopics(r.URL.Query().Get("topics"))
		questions, err := svc.ListBankQuestions(r.Context(), classID, topics)
		if err != nil {
			writeErr(w, r, "bank.questions", err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"class_id": classID, "questions": questions})
	}
}
