package questionbank

import (
	"errors"
	"fmt"
	"strings"
)

// Difficulty is one of the three closed difficulty labels of a question.
type Difficulty string

const (
	Basic        Difficulty = "basic"
	Intermediate Difficulty = "intermediate"
	Advanced     Difficulty = "advanced"
)

// Difficulties lists the difficulty labels in increasing order.
var Difficulties = []Difficulty{Basic, Intermediate, Advanced}

// Valid reports whether d is one of the known labels.
func (d Difficulty) Valid() bool {
	switch d {
	case Basic, Intermediate, Advanced:
		return true
	}
	return false
}

var (
	ErrDuplicateID        = errors.New("duplicate question id")
	ErrInvalidDifficulty  = errors.New("invalid difficulty")
	ErrEmptyCategory      = errors.New("question has no category")
	ErrInvalidAnswerIndex = errors.New("correct answer index out of range")
)

// Question is a single bank entry. Only ID, Category and Difficulty matter for
// selection; the rest is carried through untouched.
type Question struct {
	ID            int        `json:"id"`
	Category      string     `json:"category"`
	Difficulty    Difficulty `json:"difficulty"`
	Question      string     `json:"question"`
	Options       []string   `json:"options"`
	CorrectAnswer int        `json:"correctAnswer"`
	Explanation   string     `json:"explanation,omitempty"`
	Section       string     `json:"section,omitempty"`
	Topic         string     `json:"topic,omitempty"`
}

// Corpus is an immutable pool of questions. Build it with NewCorpus and share it
// freely between goroutines. Every view returns copies, option slices included.
type Corpus struct {
	questions  []Question
	categories []string
}

// NewCorpus copies questions into a new Corpus. Option slices are copied too, so
// later changes to the input never show through.
func NewCorpus(questions []Question) *Corpus {
	qs := make([]Question, len(questions))
	seen := map[string]struct{}{}
	var cats []string
	for i, q := range questions {
		q.Options = append([]string(nil), q.Options...)
		qs[i] = q
		if _, ok := seen[q.Category]; !ok {
			seen[q.Category] = struct{}{}
			cats = append(cats, q.Category)
		}
	}
	return &Corpus{questions: qs, categories: cats}
}

// Validate checks the preconditions the sampler relies on: unique ids, a category
// on every record and a known difficulty label.
func Validate(questions []Question) error {
	ids := make(map[int]struct{}, len(questions))
	for _, q := range questions {
		if _, ok := ids[q.ID]; ok {
			return fmt.Errorf("question %d: %w", q.ID, ErrDuplicateID)
		}
		ids[q.ID] = struct{}{}
		if strings.TrimSpace(q.Category) == "" {
			return fmt.Errorf("question %d: %w", q.ID, ErrEmptyCategory)
		}
		if !q.Difficulty.Valid() {
			return fmt.Errorf("question %d: %w: %q", q.ID, ErrInvalidDifficulty, q.Difficulty)
		}
		if len(q.Options) > 0 && (q.CorrectAnswer < 0 || q.CorrectAnswer >= len(q.Options)) {
			return fmt.Errorf("question %d: %w", q.ID, ErrInvalidAnswerIndex)
		}
	}
	return nil
}

// Len returns the number of questions in the corpus.
func (c *Corpus) Len() int { return len(c.questions) }

// All returns a copy of every question in corpus order.
func (c *Corpus) All() []Question {
	return c.filter(func(Question) bool { return true })
}

// ByCategory returns the questions labelled with category, in corpus order.
// An unknown category yields an empty slice.
func (c *Corpus) ByCategory(category string) []Question {
	return c.filter(func(q Question) bool { return q.Category == category })
}

// ByDifficulty returns the questions labelled with d, in corpus order.
func (c *Corpus) ByDifficulty(d Difficulty) []Question {
	return c.filter(func(q Question) bool { return q.Difficulty == d })
}

// Categories returns the distinct categories in the order they first appear.
func (c *Corpus) Categories() []string {
	return append([]string(nil), c.categories...)
}

// Stats counts questions per category and difficulty.
func (c *Corpus) Stats() map[string]map[Difficulty]int {
	out := make(map[string]map[Difficulty]int, len(c.categories))
	for _, q := range c.questions {
		m, ok := out[q.Category]
		if !ok {
			m = make(map[Difficulty]int, len(Difficulties))
			out[q.Category] = m
		}
		m[q.Difficulty]++
	}
	return out
}

func (c *Corpus) filter(keep func(Question) bool) []Question {
	out := []Question{}
	for _, q := range c.questions {
		if keep(q) {
			q.Options = append([]string(nil), q.Options...)
			out = append(out, q)
		}
	}
	return out
}
