package exam

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"psp.com/mock-exam/backend/internal/questionbank"
	"psp.com/mock-exam/backend/internal/quiz"
)

var (
	ErrExamNotFound  = errors.New("exam not found")
	ErrDuplicateExam = errors.New("duplicate exam id")
)

// Config describes one mock exam: which bank it draws from and how a paper is
// shaped.
type Config struct {
	ID             string        `json:"id" mapstructure:"id"`
	Title          string        `json:"title" mapstructure:"title"`
	TotalQuestions int           `json:"totalQuestions" mapstructure:"total_questions"`
	TimeLimit      time.Duration `json:"-" mapstructure:"time_limit"`
	PassThreshold  int           `json:"passThreshold" mapstructure:"pass_threshold"` // percent
	Categories     []string      `json:"categories" mapstructure:"categories"`
	Weights        *quiz.Weights `json:"weights,omitempty" mapstructure:"weights"`
	BankPath       string        `json:"-" mapstructure:"bank_path"`
	BankID         string        `json:"-" mapstructure:"bank_id"`
}

// Exam pairs a Config with the corpus and sampler built for it.
type Exam struct {
	Config  Config
	Meta    map[string]interface{}
	sampler *quiz.Sampler
}

// New builds an exam over corpus. Missing categories default to the corpus'
// own, a missing total to the number of categories.
func New(cfg Config, corpus *questionbank.Corpus, meta map[string]interface{}) *Exam {
	s := quiz.NewSampler(corpus, cfg.Categories)
	cfg.Categories = s.Categories()
	if cfg.TotalQuestions <= 0 {
		cfg.TotalQuestions = len(cfg.Categories)
	}
	if meta == nil {
		meta = map[string]interface{}{}
	}
	return &Exam{Config: cfg, Meta: meta, sampler: s}
}

// Corpus returns the exam's question pool.
func (e *Exam) Corpus() *questionbank.Corpus { return e.sampler.Corpus() }

// Stats counts the exam's questions per category and difficulty.
func (e *Exam) Stats() map[string]map[questionbank.Difficulty]int {
	return e.sampler.Corpus().Stats()
}

// GenerateRequest tunes a balanced paper. Zero Count means the configured
// total; nil Weights means the exam's weights, or the default mix.
type GenerateRequest struct {
	Count   int
	Weights *quiz.Weights
	Seed    *uint64
}

// Paper is one generated question set.
type Paper struct {
	ID            string                  `json:"id"`
	ExamID        string                  `json:"examId"`
	Title         string                  `json:"title"`
	TimeLimitSec  int                     `json:"timeLimitSec"`
	PassThreshold int                     `json:"passThreshold"`
	CreatedAt     time.Time               `json:"createdAt"`
	Questions     []questionbank.Question `json:"questions"`
}

// PassMark returns how many correct answers the paper needs to pass.
func (p Paper) PassMark() int {
	n := len(p.Questions) * p.PassThreshold
	return (n + 99) / 100
}

// Generate draws a balanced paper.
func (e *Exam) Generate(req GenerateRequest) Paper {
	count := req.Count
	if count == 0 {
		count = e.Config.TotalQuestions
	}
	w := req.Weights
	if w == nil {
		w = e.Config.Weights
	}
	return e.paper(e.samplerFor(req.Seed).SelectBalanced(count, w))
}

// GenerateTargeted draws a paper from explicit per-category counts.
func (e *Exam) GenerateTargeted(pairs []quiz.CategoryCount, seed *uint64) Paper {
	return e.paper(e.samplerFor(seed).SelectByCategoryCounts(pairs))
}

func (e *Exam) samplerFor(seed *uint64) *quiz.Sampler {
	if seed == nil {
		return e.sampler
	}
	return e.sampler.WithSeed(*seed)
}

func (e *Exam) paper(qs []questionbank.Question) Paper {
	return Paper{
		ID:            uuid.NewString(),
		ExamID:        e.Config.ID,
		Title:         e.Config.Title,
		TimeLimitSec:  int(e.Config.TimeLimit / time.Second),
		PassThreshold: e.Config.PassThreshold,
		CreatedAt:     time.Now().UTC(),
		Questions:     qs,
	}
}

// Registry holds every configured exam. It is filled once at startup and only
// read afterwards.
type Registry struct {
	exams map[string]*Exam
}

// NewRegistry indexes exams by id.
func NewRegistry(exams ...*Exam) (*Registry, error) {
	r := &Registry{exams: make(map[string]*Exam, len(exams))}
	for _, e := range exams {
		if _, ok := r.exams[e.Config.ID]; ok {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateExam, e.Config.ID)
		}
		r.exams[e.Config.ID] = e
	}
	return r, nil
}

// Get returns the exam with id or ErrExamNotFound.
func (r *Registry) Get(id string) (*Exam, error) {
	e, ok := r.exams[id]
	if !ok {
		return nil, ErrExamNotFound
	}
	return e, nil
}

// List returns all exams sorted by id.
func (r *Registry) List() []*Exam {
	out := make([]*Exam, 0, len(r.exams))
	for _, e := range r.exams {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Config.ID < out[j].Config.ID })
	return out
}
