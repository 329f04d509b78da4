// Package ratelimit defines the read-only view over the external rate-limit
// store and the key normalization it shares with the writers of that store.
package ratelimit

import (
	"fmt"
	"strings"

	"github.com/vanderheijden86/planwork/pkg/model"
)

// View is a snapshot of current rate-limit state. Get distinguishes absence
// (ok=false, nil error) from an unreachable store (non-nil error); callers
// treat the latter as "assume available".
type View interface {
	Get(modelName, account string) (model.RateLimitRecord, bool, error)
}

// NormalizeModel lowercases, replaces spaces with '-', and keeps only
// alphanumerics and '-'.
func NormalizeModel(name string) string {
	name = strings.ReplaceAll(strings.ToLower(name), " ", "-")
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		if r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r == '-' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// NormalizeAccount lowercases and keeps alphanumerics plus '@', '.', '-'.
func NormalizeAccount(account string) string {
	account = strings.ToLower(account)
	var b strings.Builder
	b.Grow(len(account))
	for _, r := range account {
		if r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r == '@' || r == '.' || r == '-' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Key builds the store key for a (model, account) pair.
func Key(modelName, account string) string {
	return fmt.Sprintf("ratelimit:current:%s:%s", NormalizeModel(modelName), NormalizeAccount(account))
}

// StaticView serves records from memory. The zero value is an empty view.
type StaticView struct {
	records map[string]model.RateLimitRecord
}

// NewStaticView indexes records by normalized key. Later duplicates win.
func NewStaticView(records ...model.RateLimitRecord) *StaticView {
	v := &StaticView{records: make(map[string]model.RateLimitRecord, len(records))}
	for _, r := range records {
		v.records[Key(r.Model, r.Account)] = r
	}
	return v
}

// Get implements View.
func (v *StaticView) Get(modelName, account string) (model.RateLimitRecord, bool, error) {
	if v.records == nil {
		return model.RateLimitRecord{}, false, nil
	}
	r, ok := v.records[Key(modelName, account)]
	return r, ok, nil
}
