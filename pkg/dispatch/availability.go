package dispatch

import (
	"fmt"
	"time"

	"github.com/vanderheijden86/planwork/pkg/model"
	"github.com/vanderheijden86/planwork/pkg/ratelimit"
)

// DefaultAccount keys rate-limit lookups when the host has no account
// configured.
const DefaultAccount = "default"

// Availability is the probe result for one solver.
type Availability struct {
	Solver        string `json:"solver"`
	Available     bool   `json:"available"`
	Reason        string `json:"reason"`
	RetryAtUnixMS int64  `json:"retry_at_unix_ms,omitempty"`

	// Assumed is set when the rate-limit view was unreachable and the
	// solver is reported available on faith.
	Assumed bool `json:"assumed,omitempty"`
}

// Prober answers "can this solver take work right now". A nil view behaves
// like an unreachable store: solvers are assumed available.
type Prober struct {
	registry *Registry
	view     ratelimit.View
	clock    model.Clock
	account  string
}

// NewProber wires a prober. clock may be nil (system clock), account may be
// empty (DefaultAccount).
func NewProber(registry *Registry, view ratelimit.View, clock model.Clock, account string) *Prober {
	if clock == nil {
		clock = model.SystemClock{}
	}
	if account == "" {
		account = DefaultAccount
	}
	return &Prober{registry: registry, view: view, clock: clock, account: account}
}

// Check probes one solver by name.
func (p *Prober) Check(name string) Availability {
	cap, ok := p.registry.Lookup(name)
	if !ok {
		return Availability{Solver: name, Available: false, Reason: "unknown solver"}
	}
	return p.check(cap)
}

// CheckAll probes every registered solver, sorted by name.
func (p *Prober) CheckAll() []Availability {
	out := make([]Availability, 0, p.registry.Len())
	for _, name := range p.registry.Names() {
		cap, _ := p.registry.Lookup(name)
		out = append(out, p.check(cap))
	}
	return out
}

func (p *Prober) check(cap model.SolverCapability) Availability {
	if cap.UnavailableReason != "" {
		return Availability{Solver: cap.Name, Available: false, Reason: cap.UnavailableReason}
	}
	if len(cap.Models) == 0 {
		return Availability{Solver: cap.Name, Available: true, Reason: "No rate limits"}
	}
	if p.view == nil {
		return p.assumed(cap)
	}

	now := p.clock.NowUnixMilli()
	var earliest int64
	for _, m := range cap.Models {
		rec, ok, err := p.view.Get(m, p.account)
		if err != nil {
			return p.assumed(cap)
		}
		if !ok || !rec.IsLimited || rec.AvailableAtUnix <= now {
			return Availability{Solver: cap.Name, Available: true, Reason: "Model available"}
		}
		if earliest == 0 || rec.AvailableAtUnix < earliest {
			earliest = rec.AvailableAtUnix
		}
	}

	retry := time.UnixMilli(earliest).UTC()
	return Availability{
		Solver:        cap.Name,
		Available:     false,
		Reason:        fmt.Sprintf("Rate limited until %s", retry.Format(time.RFC3339)),
		RetryAtUnixMS: earliest,
	}
}

func (p *Prober) assumed(cap model.SolverCapability) Availability {
	return Availability{
		Solver:    cap.Name,
		Available: true,
		Reason:    "rate-limit view unreachable, assuming available",
		Assumed:   true,
	}
}
