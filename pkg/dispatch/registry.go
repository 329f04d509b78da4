// Package dispatch owns the solver registry, availability probing, and the
// task-to-solver matcher.
package dispatch

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/vanderheijden86/planwork/pkg/model"
)

// Registry is an immutable name→capability mapping. Lookups are
// case-insensitive.
type Registry struct {
	byName  map[string]model.SolverCapability
	regexes map[string]*regexp.Regexp
	names   []string
}

// NewRegistry validates and indexes the capabilities. Summary regexes are
// compiled once, case-insensitively; validation errors name the offending
// entry.
func NewRegistry(caps []model.SolverCapability) (*Registry, error) {
	r := &Registry{
		byName:  make(map[string]model.SolverCapability, len(caps)),
		regexes: make(map[string]*regexp.Regexp, len(caps)),
	}
	for i, cap := range caps {
		name := strings.ToLower(strings.TrimSpace(cap.Name))
		if name == "" {
			return nil, fmt.Errorf("solver entry %d: empty name", i)
		}
		if _, dup := r.byName[name]; dup {
			return nil, fmt.Errorf("solver %q: duplicate entry", cap.Name)
		}
		if cap.MaxComplexity < 1 || cap.MaxComplexity > 10 {
			return nil, fmt.Errorf("solver %q: max_complexity %d out of range [1, 10]", cap.Name, cap.MaxComplexity)
		}
		if cap.SummaryRegex != "" {
			re, err := regexp.Compile("(?i)" + cap.SummaryRegex)
			if err != nil {
				return nil, fmt.Errorf("solver %q: summary_regex: %w", cap.Name, err)
			}
			r.regexes[name] = re
		}
		r.byName[name] = cap
		r.names = append(r.names, cap.Name)
	}
	sort.Strings(r.names)
	return r, nil
}

// DefaultRegistry ships the five stock solvers.
func DefaultRegistry() *Registry {
	r, err := NewRegistry([]model.SolverCapability{
		{
			Name:          "local-slm",
			SummaryRegex:  `^(quick|simple|offline|local)\b`,
			Capabilities:  []string{"quick", "text"},
			MaxComplexity: 3,
			Concurrency:   999,
			Strengths:     []string{"Quick tasks", "Privacy-sensitive", "Offline operation"},
		},
		{
			Name:          "gemini",
			SummaryRegex:  `^(analyze|review|audit|assess|document|describe|explain|plan)\b`,
			Capabilities:  []string{"analysis", "planning", "docs", "code-review"},
			RequiredTools: []string{"youtrack"},
			MaxComplexity: 7,
			Concurrency:   10,
			Strengths:     []string{"Text analysis", "Code review", "Documentation generation"},
			Models:        []string{"gemini-1.5-pro", "gemini-1.5-flash"},
		},
		{
			Name:              "perplexity",
			SummaryRegex:      `^(research|investigate|explore|compare|fact-check)\b`,
			Capabilities:      []string{"research", "web-search"},
			MaxComplexity:     5,
			Concurrency:       1,
			Strengths:         []string{"Web research", "Source citation", "Fact verification"},
			UnavailableReason: "No Perplexity subscription",
		},
		{
			Name:          "angrav",
			SummaryRegex:  `^(automate|browser|ui|click|navigate)\b`,
			Capabilities:  []string{"automation", "browser", "gemini-ui"},
			MaxComplexity: 6,
			Concurrency:   3,
			Strengths:     []string{"Browser automation", "Google AI Studio", "Rate limit tracking"},
			Models:        []string{"gemini-2.0-flash-thinking-exp", "gemini-2.0-flash-exp", "gemini-1.5-pro"},
		},
		{
			Name:          "jules",
			SummaryRegex:  `^(implement|create|add|build|refactor|fix|bug)\b`,
			Capabilities:  []string{"code", "implementation", "refactor", "bug-fix"},
			Extensions:    []string{".py", ".ts", ".js", ".go", ".md", ".sh"},
			MaxComplexity: 10,
			Concurrency:   15,
			Strengths:     []string{"Code implementation", "Refactoring", "Bug fixes"},
		},
	})
	if err != nil {
		// The stock table is static; a compile failure here is a programming
		// error.
		panic(err)
	}
	return r
}

// Lookup returns the capability for name, case-insensitively.
func (r *Registry) Lookup(name string) (model.SolverCapability, bool) {
	cap, ok := r.byName[strings.ToLower(strings.TrimSpace(name))]
	return cap, ok
}

// SummaryRegex returns the compiled regex for name, or nil.
func (r *Registry) SummaryRegex(name string) *regexp.Regexp {
	return r.regexes[strings.ToLower(strings.TrimSpace(name))]
}

// Names returns all solver names, sorted ascending.
func (r *Registry) Names() []string {
	return append([]string(nil), r.names...)
}

// Len returns the number of registered solvers.
func (r *Registry) Len() int { return len(r.byName) }

// MostCapable returns the solver with the highest max complexity, ties
// broken by name ascending. ok is false for an empty registry.
func (r *Registry) MostCapable() (model.SolverCapability, bool) {
	var best model.SolverCapability
	found := false
	for _, name := range r.names {
		cap := r.byName[strings.ToLower(name)]
		if !found || cap.MaxComplexity > best.MaxComplexity {
			best = cap
			found = true
		}
	}
	return best, found
}
