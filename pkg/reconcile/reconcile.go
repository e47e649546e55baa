// Package reconcile labels scanned games against what the user already has.
// It is pure: no storage, no clock, no network.
package reconcile

import (
	"github.com/ludotheque/ludotheque/pkg/models"
	"github.com/ludotheque/ludotheque/pkg/sources"
)

type State string

const (
	StateLibrary State = "library"
	StateIgnored State = "ignored"
	StateNew     State = "new"
)

// IdentitySet is a set of (source, sourceId) pairs.
type IdentitySet map[models.Identity]struct{}

func NewIdentitySet(ids ...models.Identity) IdentitySet {
	s := make(IdentitySet, len(ids))
	for _, id := range ids {
		s.Add(id)
	}
	return s
}

func (s IdentitySet) Add(id models.Identity) {
	s[id] = struct{}{}
}

func (s IdentitySet) Has(id models.Identity) bool {
	_, ok := s[id]
	return ok
}

// Classified is a candidate with its state. Selected is the default choice
// shown to the user.
type Classified struct {
	sources.Candidate
	State    State `json:"state"`
	Selected bool  `json:"selected"`
}

type Counts struct {
	Library int `json:"library"`
	Ignored int `json:"ignored"`
	New     int `json:"new"`
}

// Classify labels each candidate, keeping the input order. An identity in
// the library is "library" even if it is also ignored.
func Classify(cands []sources.Candidate, library, ignored IdentitySet) []Classified {
	out := make([]Classified, 0, len(cands))
	for _, c := range cands {
		id := c.Identity()
		state := StateNew
		switch {
		case library.Has(id):
			state = StateLibrary
		case ignored.Has(id):
			state = StateIgnored
		}
		out = append(out, Classified{
			Candidate: c,
			State:     state,
			Selected:  state != StateIgnored,
		})
	}
	return out
}

func Summarize(classified []Classified) Counts {
	counts := Counts{}
	for _, c := range classified {
		switch c.State {
		case StateLibrary:
			counts.Library++
		case StateIgnored:
			counts.Ignored++
		case StateNew:
			counts.New++
		}
	}
	return counts
}
