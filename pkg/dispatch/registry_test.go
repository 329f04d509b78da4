package dispatch_test

import (
	"reflect"
	"testing"

	"github.com/vanderheijden86/planwork/pkg/dispatch"
	"github.com/vanderheijden86/planwork/pkg/model"
)

func TestDefaultRegistry(t *testing.T) {
	r := dispatch.DefaultRegistry()

	want := []string{"angrav", "gemini", "jules", "local-slm", "perplexity"}
	if got := r.Names(); !reflect.DeepEqual(got, want) {
		t.Errorf("Names = %v, want %v", got, want)
	}

	jules, ok := r.Lookup("JULES")
	if !ok {
		t.Fatal("Lookup must be case-insensitive")
	}
	if jules.MaxComplexity != 10 || jules.Concurrency != 15 {
		t.Errorf("jules = %+v", jules)
	}

	perplexity, _ := r.Lookup("perplexity")
	if perplexity.UnavailableReason != "No Perplexity subscription" {
		t.Errorf("perplexity reason = %q", perplexity.UnavailableReason)
	}

	best, ok := r.MostCapable()
	if !ok || best.Name != "jules" {
		t.Errorf("MostCapable = %+v, want jules", best)
	}

	if re := r.SummaryRegex("jules"); re == nil || !re.MatchString("Implement the parser") {
		t.Error("jules regex should match an implement summary")
	}
	if re := r.SummaryRegex("local-slm"); re.MatchString("Implement quick fix") {
		t.Error("regex must anchor at the start of the summary")
	}
}

func TestNewRegistryValidation(t *testing.T) {
	cases := []struct {
		name string
		caps []model.SolverCapability
	}{
		{"empty name", []model.SolverCapability{{Name: " ", MaxComplexity: 5}}},
		{"duplicate", []model.SolverCapability{
			{Name: "a", MaxComplexity: 5},
			{Name: "A", MaxComplexity: 5},
		}},
		{"complexity range", []model.SolverCapability{{Name: "a", MaxComplexity: 11}}},
		{"bad regex", []model.SolverCapability{{Name: "a", MaxComplexity: 5, SummaryRegex: "("}}},
	}
	for _, tc := range cases {
		if _, err := dispatch.NewRegistry(tc.caps); err == nil {
			t.Errorf("%s: expected error", tc.name)
		}
	}
}

func TestMostCapableTieBreak(t *testing.T) {
	r, err := dispatch.NewRegistry([]model.SolverCapability{
		{Name: "zeta", MaxComplexity: 7},
		{Name: "alpha", MaxComplexity: 7},
	})
	if err != nil {
		t.Fatal(err)
	}
	best, _ := r.MostCapable()
	if best.Name != "alpha" {
		t.Errorf("MostCapable tie = %s, want alpha", best.Name)
	}
}
