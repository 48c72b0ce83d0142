package reconcile

import (
	"reflect"
	"testing"
	"time"

	"linguaquest/internal/models"
)

func intp(v int) *int             { return &v }
func f64p(v float64) *float64     { return &v }
func i64p(v int64) *int64         { return &v }
func timep(t time.Time) *time.Time { return &t }

func TestResolveStatsIncomingNewerWins(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	now := base.Add(time.Hour)

	local := models.AggregateStats{
		UserID:    "u1",
		XP:        100,
		Hearts:    3,
		Diamonds:  10,
		Streak:    4,
		UpdatedAt: base,
	}
	incoming := models.StatsPatch{
		XP:        intp(150),
		Hearts:    intp(5),
		UpdatedAt: base.Add(time.Minute),
	}

	merged := ResolveStats(local, incoming, now)

	if merged.XP != 150 {
		t.Errorf("XP = %d, want 150", merged.XP)
	}
	if merged.Hearts != 5 {
		t.Errorf("Hearts = %d, want 5", merged.Hearts)
	}
	// Absent fields carry the stored value.
	if merged.Diamonds != 10 {
		t.Errorf("Diamonds = %d, want 10 (absent field must carry over)", merged.Diamonds)
	}
	if merged.Streak != 4 {
		t.Errorf("Streak = %d, want 4 (absent field must carry over)", merged.Streak)
	}
}

func TestResolveStatsLocalNewerWins(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	now := base.Add(time.Hour)

	local := models.AggregateStats{
		UserID:    "u1",
		XP:        200,
		Diamonds:  50,
		UpdatedAt: base,
	}
	incoming := models.StatsPatch{
		XP:        intp(1),
		Diamonds:  intp(0),
		UpdatedAt: base.Add(-time.Minute),
	}

	merged := ResolveStats(local, incoming, now)

	if merged.XP != 200 {
		t.Errorf("XP = %d, want 200 (stale patch must lose)", merged.XP)
	}
	if merged.Diamonds != 50 {
		t.Errorf("Diamonds = %d, want 50 (stale patch must lose)", merged.Diamonds)
	}
}

func TestResolveStatsTieGoesToIncoming(t *testing.T) {
	ts := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	local := models.AggregateStats{XP: 100, UpdatedAt: ts}
	incoming := models.StatsPatch{XP: intp(175), UpdatedAt: ts}

	merged := ResolveStats(local, incoming, ts.Add(time.Second))
	if merged.XP != 175 {
		t.Errorf("XP = %d, want 175 (equal timestamps resolve to incoming)", merged.XP)
	}
}

func TestResolveStatsUpdatedAtAlwaysReset(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	now := base.Add(2 * time.Hour)

	tests := []struct {
		name     string
		incoming models.StatsPatch
	}{
		{"incoming wins", models.StatsPatch{XP: intp(1), UpdatedAt: base.Add(time.Minute)}},
		{"incoming loses", models.StatsPatch{XP: intp(1), UpdatedAt: base.Add(-time.Minute)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			local := models.AggregateStats{UpdatedAt: base}
			merged := ResolveStats(local, tt.incoming, now)
			if !merged.UpdatedAt.Equal(now) {
				t.Errorf("UpdatedAt = %v, want %v", merged.UpdatedAt, now)
			}
		})
	}
}

func TestResolveStatsDeterministic(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	now := base.Add(time.Hour)

	local := models.AggregateStats{
		XP:               100,
		Hearts:           2,
		Accuracy:         0.6,
		TotalTimeSpentMs: 90000,
		UpdatedAt:        base,
	}
	incoming := models.StatsPatch{
		XP:               intp(140),
		Accuracy:         f64p(0.8),
		TotalTimeSpentMs: i64p(120000),
		LastSeen:         timep(base.Add(time.Minute)),
		UpdatedAt:        base.Add(time.Minute),
	}

	first := ResolveStats(local, incoming, now)
	second := ResolveStats(local, incoming, now)
	if !reflect.DeepEqual(first, second) {
		t.Errorf("same inputs produced different results:\n%+v\n%+v", first, second)
	}

	// Re-applying the patch to its own result changes nothing.
	again := ResolveStats(first, incoming, now)
	if !reflect.DeepEqual(again, first) {
		t.Errorf("re-applying the same patch changed the record:\n%+v\n%+v", first, again)
	}
}

func TestPatchFromStatsRoundTrip(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	full := models.AggregateStats{
		UserID:             "u1",
		XP:                 310,
		Hearts:             4,
		Diamonds:           25,
		Streak:             7,
		LongestStreak:      11,
		Accuracy:           0.82,
		TotalQuestions:     200,
		CompletedQuestions: 190,
		CorrectAnswers:     160,
		WrongAnswers:       30,
		TotalTimeSpentMs:   480000,
		LastSeen:           base,
		UpdatedAt:          base,
	}

	merged := ResolveStats(models.AggregateStats{UserID: "u1"}, models.PatchFromStats(full), base)

	full.UpdatedAt = base
	if !reflect.DeepEqual(merged, full) {
		t.Errorf("full patch onto empty record:\ngot  %+v\nwant %+v", merged, full)
	}
}
