package http

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/brightpath/academy/internal/exam"
)

// POST /exams/upload — multipart: "file" (CSV, header row = field names) plus
// form fields title, code, description, time_limit_minutes, class_id,
// batch_id, admin_uid.
func UploadExamHandler(svc *exam.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f, _, err := r.FormFile("file")
		if err != nil {
			writeErr(w, r, "exam.upload", exam.Validation("file required"))
			return
		}
		defer f.Close()

		rows, err := rowsFromCSV(f)
		if err != nil {
			writeErr(w, r, "exam.upload", exam.Validation("bad csv: "+err.Error()))
			return
		}

		examID, err := svc.CreateFromRows(r.Context(), exam.CreateFromRowsInput{
			Title:            r.FormValue("title"),
			Code:             r.FormValue("code"),
			Description:      r.FormValue("description"),
			TimeLimitMinutes: parseIntDefault(r.FormValue("time_limit_minutes"), 0),
			ClassID:          parseIntDefault(r.FormValue("class_id"), 0),
			BatchID:          r.FormValue("batch_id"),
			CreatedBy:        r.FormValue("admin_uid"),
			Rows:             rows,
		})
		if err != nil {
			writeErr(w, r, "exam.upload", err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"message": "exam created", "exam_id": examID})
	}
}

// POST /exams/create-from-bank
func CreateFromBankHandler(svc *exam.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Title            string   `json:"title"`
			Code             string   `json:"code"`
			ClassID          int      `json:"class_id"`
			BatchID          string   `json:"batch_id"`
			TimeLimitMinutes int      `json:"time_limit_minutes"`
			Topics           []string `json:"topics"`
			TotalQuestions   int      `json:"total_questions"`
			AdminUID         string   `json:"admin_uid"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeErr(w, r, "exam.create-from-bank", exam.Validation("bad json"))
			return
		}
		examID, count, err := svc.CreateFromBank(r.Context(), exam.CreateFromBankInput{
			Title:            req.Title,
			Code:             req.Code,
			ClassID:          req.ClassID,
			BatchID:          req.BatchID,
			TimeLimitMinutes: req.TimeLimitMinutes,
			Topics:           req.Topics,
			TotalQuestions:   req.TotalQuestions,
			CreatedBy:        req.AdminUID,
		})
		if err != nil {
			writeErr(w, r, "exam.create-from-bank", err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"message": "exam created", "exam_id": examID, "question_count": count,
		})
	}
}

// GET /exams/{examID}/questions — student-safe view, correct options stripped.
func GetExamQuestionsHandler(svc *exam.Service) http.HandlerFunc {
	type studentQuestion struct {
		ID         string            `json:"id"`
		QuestionNo int               `json:"question_no"`
		Text       string            `json:"text"`
		Type       string            `json:"type"`
		Options    map[string]string `json:"options"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		e, err := svc.GetExam(r.Context(), chi.URLParam(r, "examID"))
		if err != nil {
			writeErr(w, r, "exam.questions", err)
			return
		}
		qs := make([]studentQuestion, len(e.Questions))
		for i, q := range e.Questions {
			qs[i] = studentQuestion{
				ID: q.ID, QuestionNo: q.QuestionNo, Text: q.Text, Type: q.Type, Options: q.Options,
			}
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"exam_id":            e.ID,
			"title":              e.Title,
			"time_limit_minutes": e.TimeLimitMinutes,
			"questions":          qs,
		})
	}
}

// rowsFromCSV reads the whole sheet: first record is the header, every
// following record becomes a Row keyed by header name. Blank lines and
// all-empty records are skipped; short records pad with empty strings.
func rowsFromCSV(r io.Reader) ([]exam.Row, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, err
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	var rows []exam.Row
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		row := exam.Row{}
		empty := true
		for i, name := range header {
			if name == "" {
				continue
			}
			val := ""
			if i < len(rec) {
				val = rec[i]
			}
			if strings.TrimSpace(val) != "" {
				empty = false
			}
			row[name] = val
		}
		if !empty {
			rows = append(rows, row)
		}
	}
	return rows, nil
}
