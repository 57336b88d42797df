package api

import (
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"psp.com/mock-exam/backend/internal/exam"
	"psp.com/mock-exam/backend/internal/paper"
	"psp.com/mock-exam/backend/internal/questionbank"
	"psp.com/mock-exam/backend/internal/quiz"
)

type examResp struct {
	exam.Config
	TimeLimitSec int                                        `json:"timeLimitSec"`
	Questions    int                                        `json:"questionCount"`
	Stats        map[string]map[questionbank.Difficulty]int `json:"stats,omitempty"`
	Meta         map[string]interface{}                     `json:"meta,omitempty"`
}

func toExamResp(e *exam.Exam, detailed bool) examResp {
	out := examResp{
		Config:       e.Config,
		TimeLimitSec: int(e.Config.TimeLimit / time.Second),
		Questions:    e.Corpus().Len(),
	}
	if detailed {
		out.Stats = e.Stats()
		out.Meta = e.Meta
	}
	return out
}

func (h *Handler) handleListExams(w http.ResponseWriter, r *http.Request) {
	exams := h.exams.List()
	out := make([]examResp, 0, len(exams))
	for _, e := range exams {
		out = append(out, toExamResp(e, false))
	}
	writeJSON(w, out)
}

func (h *Handler) handleGetExam(w http.ResponseWriter, r *http.Request) {
	e, ok := h.lookup(w, r)
	if !ok {
		return
	}
	writeJSON(w, toExamResp(e, true))
}

func (h *Handler) handleGenerate(w http.ResponseWriter, r *http.Request) {
	e, ok := h.lookup(w, r)
	if !ok {
		return
	}
	p := e.Generate(h.generateRequest(r, e))
	h.log.Debug("paper generated",
		zap.String("exam_id", e.Config.ID),
		zap.String("paper_id", p.ID),
		zap.Int("questions", len(p.Questions)),
	)
	writeJSON(w, p)
}

type targetedReq struct {
	Categories []quiz.CategoryCount `json:"categories"`
	Seed       *uint64              `json:"seed,omitempty"`
}

func (h *Handler) handleTargeted(w http.ResponseWriter, r *http.Request) {
	e, ok := h.lookup(w, r)
	if !ok {
		return
	}
	var req targetedReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	total := 0
	for _, c := range req.Categories {
		if c.Count <= 0 {
			continue
		}
		// checked per pair so the running total stays within maxCount
		if c.Count > h.maxCount-total {
			http.Error(w, "too many questions", http.StatusBadRequest)
			return
		}
		total += c.Count
	}
	writeJSON(w, e.GenerateTargeted(req.Categories, req.Seed))
}

func (h *Handler) handlePaper(w http.ResponseWriter, r *http.Request) {
	e, ok := h.lookup(w, r)
	if !ok {
		return
	}
	p := e.Generate(h.generateRequest(r, e))
	withAnswers, _ := strconv.ParseBool(r.URL.Query().Get("answers"))
	pdfBytes, err := paper.RenderPDF(p, paper.Options{WithAnswers: withAnswers})
	if err != nil {
		h.log.Error("failed to render paper", zap.String("exam_id", e.Config.ID), zap.Error(err))
		http.Error(w, "failed to render paper", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", "attachment; filename=paper-"+p.ID+".pdf")
	w.Write(pdfBytes)
}

func (h *Handler) lookup(w http.ResponseWriter, r *http.Request) (*exam.Exam, bool) {
	e, err := h.exams.Get(chi.URLParam(r, "examID"))
	if errors.Is(err, exam.ErrExamNotFound) {
		http.Error(w, "exam not found", http.StatusNotFound)
		return nil, false
	}
	if err != nil {
		http.Error(w, "failed to load exam", http.StatusInternalServerError)
		return nil, false
	}
	return e, true
}

// generateRequest reads count, seed and weights from the query string. Bad
// values fall back to defaults.
func (h *Handler) generateRequest(r *http.Request, e *exam.Exam) exam.GenerateRequest {
	q := r.URL.Query()

	count := atoiDefault(q.Get("count"), e.Config.TotalQuestions)
	if count < 1 {
		count = 1
	}
	if count > h.maxCount {
		count = h.maxCount
	}
	req := exam.GenerateRequest{Count: count}

	if s := q.Get("seed"); s != "" {
		if v, err := strconv.ParseUint(s, 10, 64); err == nil {
			req.Seed = &v
		}
	}

	if q.Has("basic") || q.Has("intermediate") || q.Has("advanced") {
		req.Weights = &quiz.Weights{
			Basic:        weightParam(q.Get("basic")),
			Intermediate: weightParam(q.Get("intermediate")),
			Advanced:     weightParam(q.Get("advanced")),
		}
	}
	return req
}

func weightParam(s string) float64 {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func atoiDefault(s string, def int) int {
	i, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return i
}
