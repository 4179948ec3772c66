package progress

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMax(t *testing.T) {
	assert.Equal(t, 95.0, Max(80.0, 95.0))
	assert.Equal(t, 95.0, Max(95.0, 80.0))
	assert.Equal(t, 3, Max(3, 3))
}

func TestLatest(t *testing.T) {
	t1 := time.Date(2021, time.March, 1, 12, 0, 0, 0, time.UTC)
	t2 := t1.Add(time.Second)

	assert.Equal(t, "pending", Latest("current", "pending", t1, t2))
	assert.Equal(t, "current", Latest("current", "pending", t2, t1))
	assert.Equal(t, "current", Latest("current", "pending", t1, t1), "ties keep current")
}

func TestSumOr(t *testing.T) {
	assert.Equal(t, 4, Sum(3, 1))
	assert.True(t, Or(true, false))
	assert.True(t, Or(false, true))
	assert.False(t, Or(false, false))
}

func TestMergeProgressUpdates(t *testing.T) {
	f := func(v float64) *float64 { return &v }
	b := func(v bool) *bool { return &v }
	n := func(v int) *int { return &v }

	tests := []struct {
		name    string
		current Patch
		pending Patch
		want    Patch
	}{
		{
			name:    "score never regresses",
			current: Patch{BestScore: f(95)},
			pending: Patch{BestScore: f(80)},
			want:    Patch{BestScore: f(95)},
		},
		{
			name:    "higher score wins",
			current: Patch{BestScore: f(95)},
			pending: Patch{BestScore: f(96)},
			want:    Patch{BestScore: f(96)},
		},
		{
			name:    "flags never flip back",
			current: Patch{Passed: b(true), Completed: b(true)},
			pending: Patch{Passed: b(false), Completed: b(false)},
			want:    Patch{Passed: b(true), Completed: b(true)},
		},
		{
			name:    "flags can be set",
			current: Patch{Passed: b(false), Completed: b(false)},
			pending: Patch{Passed: b(true), Completed: b(false)},
			want:    Patch{Passed: b(true), Completed: b(false)},
		},
		{
			name:    "fields only pending defines are kept",
			current: Patch{},
			pending: Patch{BestScore: f(10), Passed: b(false), Attempts: n(2)},
			want:    Patch{BestScore: f(10), Passed: b(false), Attempts: n(2)},
		},
		{
			name:    "fields only current defines are not added",
			current: Patch{BestScore: f(50), Attempts: n(7)},
			pending: Patch{Passed: b(true)},
			want:    Patch{Passed: b(true)},
		},
		{
			name:    "other fields come from pending",
			current: Patch{Attempts: n(7)},
			pending: Patch{Attempts: n(2)},
			want:    Patch{Attempts: n(2)},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MergeProgressUpdates(tt.current, tt.pending))
		})
	}
}

func TestMergeProgressUpdates_monotonic(t *testing.T) {
	scores := []float64{0, 10, 50, 99.5, 100}
	flags := []bool{false, true}
	for _, cs := range scores {
		for _, ps := range scores {
			for _, cf := range flags {
				for _, pf := range flags {
					cs, ps, cf, pf := cs, ps, cf, pf
					merged := MergeProgressUpdates(
						Patch{BestScore: &cs, Passed: &cf, Completed: &cf},
						Patch{BestScore: &ps, Passed: &pf, Completed: &pf},
					)
					assert.GreaterOrEqual(t, *merged.BestScore, cs)
					if cf {
						assert.True(t, *merged.Passed)
						assert.True(t, *merged.Completed)
					}
				}
			}
		}
	}
}
