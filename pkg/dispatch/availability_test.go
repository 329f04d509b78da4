package dispatch_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/vanderheijden86/planwork/pkg/dispatch"
	"github.com/vanderheijden86/planwork/pkg/model"
	"github.com/vanderheijden86/planwork/pkg/ratelimit"
)

type fixedClock int64

func (c fixedClock) NowUnixMilli() int64 { return int64(c) }

type failingView struct{}

func (failingView) Get(string, string) (model.RateLimitRecord, bool, error) {
	return model.RateLimitRecord{}, false, errors.New("store unreachable")
}

const nowMS = int64(1_700_000_000_000)

func TestCheckStaticallyUnavailable(t *testing.T) {
	p := dispatch.NewProber(dispatch.DefaultRegistry(), ratelimit.NewStaticView(), fixedClock(nowMS), "")
	a := p.Check("perplexity")
	if a.Available {
		t.Error("perplexity must be statically unavailable")
	}
	if a.Reason != "No Perplexity subscription" {
		t.Errorf("reason = %q", a.Reason)
	}
}

func TestCheckNoModels(t *testing.T) {
	p := dispatch.NewProber(dispatch.DefaultRegistry(), ratelimit.NewStaticView(), fixedClock(nowMS), "")
	a := p.Check("jules")
	if !a.Available || a.Reason != "No rate limits" {
		t.Errorf("jules = %+v", a)
	}
}

func TestCheckRateLimited(t *testing.T) {
	view := ratelimit.NewStaticView(
		model.RateLimitRecord{Model: "gemini-1.5-pro", Account: "default", IsLimited: true, AvailableAtUnix: nowMS + 60_000},
		model.RateLimitRecord{Model: "gemini-1.5-flash", Account: "default", IsLimited: true, AvailableAtUnix: nowMS + 30_000},
	)
	p := dispatch.NewProber(dispatch.DefaultRegistry(), view, fixedClock(nowMS), "")

	a := p.Check("gemini")
	if a.Available {
		t.Fatal("gemini should be rate limited")
	}
	if a.RetryAtUnixMS != nowMS+30_000 {
		t.Errorf("RetryAtUnixMS = %d, want earliest %d", a.RetryAtUnixMS, nowMS+30_000)
	}
	if !strings.HasPrefix(a.Reason, "Rate limited until ") {
		t.Errorf("reason = %q", a.Reason)
	}
}

func TestCheckLimitExpired(t *testing.T) {
	view := ratelimit.NewStaticView(
		model.RateLimitRecord{Model: "gemini-1.5-pro", Account: "default", IsLimited: true, AvailableAtUnix: nowMS - 1},
	)
	p := dispatch.NewProber(dispatch.DefaultRegistry(), view, fixedClock(nowMS), "")
	if a := p.Check("gemini"); !a.Available || a.Reason != "Model available" {
		t.Errorf("expired limit: %+v", a)
	}
}

func TestCheckOneModelFree(t *testing.T) {
	view := ratelimit.NewStaticView(
		model.RateLimitRecord{Model: "gemini-2.0-flash-thinking-exp", Account: "default", IsLimited: true, AvailableAtUnix: nowMS + 60_000},
	)
	p := dispatch.NewProber(dispatch.DefaultRegistry(), view, fixedClock(nowMS), "")
	if a := p.Check("angrav"); !a.Available {
		t.Errorf("angrav should be available through an unrecorded model: %+v", a)
	}
}

func TestCheckUnreachableView(t *testing.T) {
	p := dispatch.NewProber(dispatch.DefaultRegistry(), failingView{}, fixedClock(nowMS), "")
	a := p.Check("gemini")
	if !a.Available || !a.Assumed {
		t.Fatalf("unreachable view must assume availability: %+v", a)
	}
	if !strings.Contains(a.Reason, "assuming available") {
		t.Errorf("reason = %q", a.Reason)
	}
}

func TestCheckAll(t *testing.T) {
	p := dispatch.NewProber(dispatch.DefaultRegistry(), ratelimit.NewStaticView(), fixedClock(nowMS), "")
	all := p.CheckAll()
	if len(all) != 5 {
		t.Fatalf("CheckAll returned %d probes", len(all))
	}
	for i := 1; i < len(all); i++ {
		if all[i-1].Solver > all[i].Solver {
			t.Fatal("CheckAll must sort by solver name")
		}
	}

	if a := p.Check("ghost"); a.Available || a.Reason != "unknown solver" {
		t.Errorf("unknown solver = %+v", a)
	}
}
