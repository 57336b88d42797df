package quiz

import (
	"math"
	"math/rand/v2"

	"psp.com/mock-exam/backend/internal/questionbank"
)

// Weights is the share of a category's target given to each difficulty. The
// values need not sum to 1; see SplitDifficulty for how they are rounded.
type Weights struct {
	Basic        float64 `json:"basic" mapstructure:"basic"`
	Intermediate float64 `json:"intermediate" mapstructure:"intermediate"`
	Advanced     float64 `json:"advanced" mapstructure:"advanced"`
}

// DefaultWeights is the standard 30/50/20 mix used when a caller gives none.
var DefaultWeights = Weights{Basic: 0.3, Intermediate: 0.5, Advanced: 0.2}

// CategoryCount asks for Count questions from Category.
type CategoryCount struct {
	Category string `json:"category"`
	Count    int    `json:"count"`
}

// DifficultySplit holds the per-difficulty targets inside one category.
type DifficultySplit struct {
	Basic        int
	Intermediate int
	Advanced     int
}

// Total returns the sum of the three targets.
func (s DifficultySplit) Total() int { return s.Basic + s.Intermediate + s.Advanced }

// For returns the target for d.
func (s DifficultySplit) For(d questionbank.Difficulty) int {
	switch d {
	case questionbank.Basic:
		return s.Basic
	case questionbank.Intermediate:
		return s.Intermediate
	case questionbank.Advanced:
		return s.Advanced
	}
	return 0
}

// CategoryTargets spreads total over n categories: every category gets
// total/n and the first total%n categories get one extra.
func CategoryTargets(total, n int) []int {
	if n <= 0 {
		return nil
	}
	if total < 0 {
		total = 0
	}
	base, remainder := total/n, total%n
	out := make([]int, n)
	for i := range out {
		out[i] = base
		if i < remainder {
			out[i]++
		}
	}
	return out
}

// SplitDifficulty divides target between the difficulties. Basic and
// intermediate are rounded half away from zero; advanced takes whatever is left
// so the three always add up to target. Weights summing above 1 are clamped
// basic first, then intermediate.
func SplitDifficulty(target int, w Weights) DifficultySplit {
	if target <= 0 {
		return DifficultySplit{}
	}
	basic := clamp(roundShare(target, w.Basic), 0, target)
	intermediate := clamp(roundShare(target, w.Intermediate), 0, target-basic)
	return DifficultySplit{
		Basic:        basic,
		Intermediate: intermediate,
		Advanced:     target - basic - intermediate,
	}
}

func roundShare(target int, weight float64) int {
	v := math.Round(float64(target) * weight)
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > float64(target) {
		return target
	}
	return int(v)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Sampler draws question sets from a fixed corpus. It holds no mutable state
// and is safe for concurrent use.
type Sampler struct {
	corpus     *questionbank.Corpus
	categories []string

	seeded bool
	seed   uint64
}

// NewSampler builds a sampler over corpus. categories is the ordered category
// list used by SelectBalanced; when empty the corpus' own categories are used.
func NewSampler(corpus *questionbank.Corpus, categories []string) *Sampler {
	if len(categories) == 0 {
		categories = corpus.Categories()
	}
	return &Sampler{
		corpus:     corpus,
		categories: append([]string(nil), categories...),
	}
}

// WithSeed returns a copy of s whose every call starts from the same PCG seed,
// so identical requests give identical results.
func (s *Sampler) WithSeed(seed uint64) *Sampler {
	cp := *s
	cp.seeded = true
	cp.seed = seed
	return &cp
}

// Categories returns the ordered category list.
func (s *Sampler) Categories() []string {
	return append([]string(nil), s.categories...)
}

// Corpus returns the corpus the sampler draws from.
func (s *Sampler) Corpus() *questionbank.Corpus { return s.corpus }

func (s *Sampler) newRand() *rand.Rand {
	if s.seeded {
		return rand.New(rand.NewPCG(s.seed, s.seed^0x9e3779b97f4a7c15))
	}
	return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
}

// SelectBalanced returns min(total, corpus size) distinct questions spread
// evenly across the sampler's categories and split by weights within each
// category. Shortfalls are filled from any unused question. A nil weights
// means DefaultWeights.
func (s *Sampler) SelectBalanced(total int, weights *Weights) []questionbank.Question {
	if total <= 0 || s.corpus.Len() == 0 {
		return []questionbank.Question{}
	}
	w := DefaultWeights
	if weights != nil {
		w = *weights
	}

	d := newDraw(s.newRand(), total, s.corpus.Len())
	targets := CategoryTargets(total, len(s.categories))
	for i, cat := range s.categories {
		pool := s.corpus.ByCategory(cat)
		if len(pool) == 0 {
			continue
		}
		split := SplitDifficulty(targets[i], w)
		for _, diff := range questionbank.Difficulties {
			d.take(byDifficulty(pool, diff), split.For(diff))
		}
	}

	// top-up draws from any unused question regardless of category or difficulty
	if d.len() < total {
		d.take(s.corpus.All(), total-d.len())
	}
	return d.result(total)
}

// SelectByCategoryCounts draws up to Count questions from each listed category
// and shuffles the lot. A short category is not compensated elsewhere.
func (s *Sampler) SelectByCategoryCounts(pairs []CategoryCount) []questionbank.Question {
	// never more than the corpus holds, which also keeps the sum from overflowing
	want, available := 0, s.corpus.Len()
	for _, p := range pairs {
		if p.Count > 0 {
			want = min(want+min(p.Count, available), available)
		}
	}
	d := newDraw(s.newRand(), want, s.corpus.Len())
	for _, p := range pairs {
		d.take(s.corpus.ByCategory(p.Category), p.Count)
	}
	return d.result(want)
}

func byDifficulty(pool []questionbank.Question, d questionbank.Difficulty) []questionbank.Question {
	var out []questionbank.Question
	for _, q := range pool {
		if q.Difficulty == d {
			out = append(out, q)
		}
	}
	return out
}

// draw accumulates a selection without repeating ids and without exceeding
// its limit.
type draw struct {
	r        *rand.Rand
	limit    int
	chosen   map[int]struct{}
	selected []questionbank.Question
}

func newDraw(r *rand.Rand, limit, available int) *draw {
	size := min(limit, available)
	return &draw{
		r:        r,
		limit:    limit,
		chosen:   make(map[int]struct{}, size),
		selected: make([]questionbank.Question, 0, size),
	}
}

func (d *draw) len() int { return len(d.selected) }

// take shuffles the unchosen part of pool and keeps its first n entries.
func (d *draw) take(pool []questionbank.Question, n int) {
	n = min(n, d.limit-len(d.selected))
	if n <= 0 {
		return
	}
	candidates := make([]questionbank.Question, 0, len(pool))
	for _, q := range pool {
		if _, ok := d.chosen[q.ID]; !ok {
			candidates = append(candidates, q)
		}
	}
	for _, q := range shuffleSlice(d.r, candidates, n) {
		d.chosen[q.ID] = struct{}{}
		d.selected = append(d.selected, q)
	}
}

func (d *draw) result(limit int) []questionbank.Question {
	out := shuffleSlice(d.r, d.selected, limit)
	if out == nil {
		return []questionbank.Question{}
	}
	return out
}

// shuffleSlice returns the first n entries of a shuffled copy of in. in is
// never reordered.
func shuffleSlice(r *rand.Rand, in []questionbank.Question, n int) []questionbank.Question {
	if n <= 0 || len(in) == 0 {
		return nil
	}
	out := append([]questionbank.Question(nil), in...)
	r.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	return out[:min(n, len(out))]
}
