// Package prompt manages the single time-boxed daily challenge of an entry store.
//
// A Lifecycle is not safe for concurrent use; the owning store serializes access.
package prompt

import (
	"math/rand/v2"
	"slices"
	"time"
)

// Prompt is the active daily challenge.
type Prompt struct {
	Text      string    `json:"text"`
	ExpiresAt time.Time `json:"expiresAt"`
	Completed bool      `json:"completed"`
}

// State is what gets persisted between process restarts.
type State struct {
	Current *Prompt `json:"current,omitempty"`
	History []int   `json:"history,omitempty"`
}

type Options struct {
	Candidates []string
	// Location is the reference timezone whose midnight ends a prompt.
	Location *time.Location
	// HistorySize is how many recent selections are excluded from the next draw.
	// Zero allows immediate repeats.
	HistorySize int
	Now         func() time.Time
	Rand        *rand.Rand
}

type Lifecycle struct {
	candidates  []string
	loc         *time.Location
	historySize int
	now         func() time.Time
	rnd         *rand.Rand

	current *Prompt
	history []int
}

func New(opts Options) *Lifecycle {
	l := &Lifecycle{
		candidates:  opts.Candidates,
		loc:         opts.Location,
		historySize: opts.HistorySize,
		now:         opts.Now,
		rnd:         opts.Rand,
	}
	if len(l.candidates) == 0 {
		l.candidates = DefaultCandidates
	}
	if l.loc == nil {
		l.loc = time.UTC
	}
	if l.now == nil {
		l.now = time.Now
	}
	if l.rnd == nil {
		l.rnd = rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0x9e3779b97f4a7c15))
	}
	if l.historySize < 0 {
		l.historySize = 0
	}
	return l
}

// NextMidnight returns the first midnight in loc strictly after now.
func NextMidnight(now time.Time, loc *time.Location) time.Time {
	y, m, d := now.In(loc).Date()
	return time.Date(y, m, d+1, 0, 0, 0, 0, loc)
}

// Check expires a stale prompt and selects a new one when none is active.
// It reports whether the active prompt changed.
func (l *Lifecycle) Check() (*Prompt, bool) {
	changed := false
	if l.current != nil && l.now().After(l.current.ExpiresAt) {
		l.current = nil
		changed = true
	}
	if l.current == nil {
		idx := l.pick()
		l.activate(l.candidates[idx])
		l.remember(idx)
		changed = true
	}
	return l.Current(), changed
}

// Set activates text as the prompt, expiring at the next reference midnight.
func (l *Lifecycle) Set(text string) *Prompt {
	l.activate(text)
	if idx := slices.Index(l.candidates, text); idx >= 0 {
		l.remember(idx)
	}
	return l.Current()
}

// Complete marks the active prompt completed. It reports false when no prompt is active.
func (l *Lifecycle) Complete() bool {
	if l.current == nil {
		return false
	}
	l.current.Completed = true
	return true
}

func (l *Lifecycle) Clear() {
	l.current = nil
}

// Current returns a copy of the active prompt, or nil.
func (l *Lifecycle) Current() *Prompt {
	if l.current == nil {
		return nil
	}
	p := *l.current
	return &p
}

// Expired reports whether the active prompt is past its deadline.
func (l *Lifecycle) Expired() bool {
	return l.current != nil && l.now().After(l.current.ExpiresAt)
}

func (l *Lifecycle) State() State {
	return State{Current: l.Current(), History: slices.Clone(l.history)}
}

func (l *Lifecycle) Restore(s State) {
	l.current = nil
	if s.Current != nil {
		p := *s.Current
		l.current = &p
	}
	l.history = nil
	for _, idx := range s.History {
		if idx >= 0 && idx < len(l.candidates) {
			l.remember(idx)
		}
	}
}

func (l *Lifecycle) activate(text string) {
	l.current = &Prompt{
		Text:      text,
		ExpiresAt: NextMidnight(l.now(), l.loc),
	}
}

func (l *Lifecycle) pick() int {
	pool := make([]int, 0, len(l.candidates))
	for i := range l.candidates {
		if !slices.Contains(l.history, i) {
			pool = append(pool, i)
		}
	}
	if len(pool) == 0 {
		return l.rnd.IntN(len(l.candidates))
	}
	return pool[l.rnd.IntN(len(pool))]
}

func (l *Lifecycle) remember(idx int) {
	if l.historySize == 0 {
		return
	}
	l.history = append(l.history, idx)
	if len(l.history) > l.historySize {
		l.history = l.history[len(l.history)-l.historySize:]
	}
}
