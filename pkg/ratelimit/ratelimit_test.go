package ratelimit_test

import (
	"testing"

	"github.com/vanderheijden86/planwork/pkg/model"
	"github.com/vanderheijden86/planwork/pkg/ratelimit"
)

func TestNormalizeModel(t *testing.T) {
	cases := []struct{ in, want string }{
		{"Gemini 1.5 Pro", "gemini-15-pro"},
		{"gemini-2.0-flash-exp", "gemini-20-flash-exp"},
		{"GPT_4o!", "gpt4o"},
	}
	for _, tc := range cases {
		if got := ratelimit.NormalizeModel(tc.in); got != tc.want {
			t.Errorf("NormalizeModel(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestNormalizeAccount(t *testing.T) {
	if got := ratelimit.NormalizeAccount("Dev.User+bot@Example.COM"); got != "dev.userbot@example.com" {
		t.Errorf("NormalizeAccount = %q", got)
	}
}

func TestKey(t *testing.T) {
	got := ratelimit.Key("Gemini 1.5 Pro", "me@example.com")
	want := "ratelimit:current:gemini-15-pro:me@example.com"
	if got != want {
		t.Errorf("Key = %q, want %q", got, want)
	}
}

func TestStaticView(t *testing.T) {
	rec := model.RateLimitRecord{Model: "gemini-1.5-pro", Account: "me@example.com", IsLimited: true, AvailableAtUnix: 42}
	v := ratelimit.NewStaticView(rec)

	got, ok, err := v.Get("Gemini 1.5 Pro", "ME@example.com")
	if err != nil || !ok {
		t.Fatalf("Get: ok=%v err=%v", ok, err)
	}
	if got.AvailableAtUnix != 42 || !got.IsLimited {
		t.Errorf("record = %+v", got)
	}

	if _, ok, err := v.Get("other", "me@example.com"); ok || err != nil {
		t.Errorf("missing record: ok=%v err=%v", ok, err)
	}

	var zero ratelimit.StaticView
	if _, ok, err := zero.Get("m", "a"); ok || err != nil {
		t.Errorf("zero view: ok=%v err=%v", ok, err)
	}
}
