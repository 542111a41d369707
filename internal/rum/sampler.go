// Package rum samples real-user-monitoring checkpoints for a page view.
package rum

import (
	"log/slog"
	"math/rand/v2"
	"sync"

	"github.com/dgallion1/pagedeco/internal/metrics"
	"github.com/dgallion1/pagedeco/internal/page"
	"github.com/google/uuid"
	"golang.org/x/net/html"
)

// Checkpoint is one sampled event of a page view.
type Checkpoint struct {
	Name string         `json:"checkpoint"`
	Data map[string]any `json:"data,omitempty"`
}

// Sampler decides once per page view whether the view is sampled, and
// records checkpoints and observed elements when it is. Calls never fail.
type Sampler struct {
	id         string
	generation string
	weight     int
	selected   bool
	rec        *metrics.Recorder
	log        *slog.Logger

	mu          sync.Mutex
	checkpoints []Checkpoint
	observed    map[*html.Node]bool
}

// NewSampler creates the sampler of one page view. The view is selected with
// probability 1/weight; a weight of 1 or less selects every view.
func NewSampler(generation string, weight int, rec *metrics.Recorder, log *slog.Logger) *Sampler {
	if weight < 1 {
		weight = 1
	}
	if log == nil {
		log = slog.Default()
	}
	return &Sampler{
		id:         uuid.NewString(),
		generation: generation,
		weight:     weight,
		selected:   weight == 1 || rand.IntN(weight) == 0,
		rec:        rec,
		log:        log,
		observed:   make(map[*html.Node]bool),
	}
}

// ID returns the page view id.
func (s *Sampler) ID() string { return s.id }

// Selected reports whether this page view is sampled.
func (s *Sampler) Selected() bool { return s.selected }

// Generation returns the code generation label attached to checkpoints.
func (s *Sampler) Generation() string { return s.generation }

// Sample records a checkpoint.
func (s *Sampler) Sample(checkpoint string, data map[string]any) {
	if !s.selected {
		return
	}
	s.mu.Lock()
	s.checkpoints = append(s.checkpoints, Checkpoint{Name: checkpoint, Data: data})
	s.mu.Unlock()

	s.rec.RUMCheckpoint(checkpoint, s.generation)
	s.log.Debug("rum checkpoint",
		"checkpoint", checkpoint,
		"page_view_id", s.id,
		"generation", s.generation,
		"weight", s.weight,
	)
}

// Observe registers elements for viewport tracking. Blocks are recorded by
// their data-block-name, anything else as media. Elements already observed
// are skipped.
func (s *Sampler) Observe(elements []*html.Node) {
	if !s.selected {
		return
	}
	var blocks, media int
	s.mu.Lock()
	for _, el := range elements {
		if el == nil || s.observed[el] {
			continue
		}
		s.observed[el] = true
		if page.Attr(el, "data-block-name") != "" {
			blocks++
		} else {
			media++
		}
	}
	s.mu.Unlock()

	s.rec.RUMObserved("block", blocks)
	s.rec.RUMObserved("media", media)
}

// Checkpoints returns the recorded checkpoints in order.
func (s *Sampler) Checkpoints() []Checkpoint {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Checkpoint, len(s.checkpoints))
	copy(out, s.checkpoints)
	return out
}

// ObservedCount returns how many distinct elements are observed.
func (s *Sampler) ObservedCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.observed)
}
