package service

import (
	"testing"
	"time"

	"linguaquest/internal/models"
)

type memStatsStore struct {
	records map[string]*models.AggregateStats
	upserts int
}

func newMemStatsStore() *memStatsStore {
	return &memStatsStore{records: make(map[string]*models.AggregateStats)}
}

func (m *memStatsStore) Get(userID string) (*models.AggregateStats, error) {
	rec, ok := m.records[userID]
	if !ok {
		return nil, nil
	}
	cp := *rec
	return &cp, nil
}

func (m *memStatsStore) Upsert(s *models.AggregateStats) error {
	cp := *s
	m.records[s.UserID] = &cp
	m.upserts++
	return nil
}

type memBroadcaster struct {
	events []string
}

func (m *memBroadcaster) Publish(userID, event string, payload interface{}) {
	m.events = append(m.events, event)
}

func TestStreakTick(t *testing.T) {
	day := func(d int) time.Time {
		return time.Date(2026, 3, d, 9, 30, 0, 0, time.UTC)
	}

	tests := []struct {
		name       string
		lastSeen   time.Time
		streak     int
		longest    int
		now        time.Time
		want       int
		wantUpsert bool
	}{
		{
			name:       "first ever tick starts at one",
			now:        day(10),
			want:       1,
			wantUpsert: true,
		},
		{
			name:       "same day is a no-op",
			lastSeen:   day(10),
			streak:     4,
			longest:    6,
			now:        day(10).Add(5 * time.Hour),
			want:       4,
			wantUpsert: false,
		},
		{
			name:       "consecutive day increments",
			lastSeen:   day(10),
			streak:     4,
			longest:    6,
			now:        day(11),
			want:       5,
			wantUpsert: true,
		},
		{
			name:       "a missed day resets to one",
			lastSeen:   day(10),
			streak:     4,
			longest:    6,
			now:        day(12),
			want:       1,
			wantUpsert: true,
		},
		{
			name:       "day boundary not elapsed duration",
			lastSeen:   day(10).Add(14 * time.Hour), // 23:30 UTC
			streak:     2,
			longest:    2,
			now:        day(11).Add(-9 * time.Hour).Add(time.Hour), // 01:30 next day
			want:       3,
			wantUpsert: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newMemStatsStore()
			if !tt.lastSeen.IsZero() {
				store.records["u1"] = &models.AggregateStats{
					UserID:        "u1",
					Streak:        tt.streak,
					LongestStreak: tt.longest,
					LastSeen:      tt.lastSeen,
				}
			}

			hub := &memBroadcaster{}
			svc := NewStreakService(store, hub)
			svc.now = func() time.Time { return tt.now }

			got, err := svc.Tick("u1")
			if err != nil {
				t.Fatalf("Tick() error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Tick() = %d, want %d", got, tt.want)
			}

			if tt.wantUpsert {
				if store.upserts != 1 {
					t.Errorf("upserts = %d, want 1", store.upserts)
				}
				if len(hub.events) != 1 {
					t.Errorf("broadcasts = %d, want 1", len(hub.events))
				}
			} else {
				if store.upserts != 0 {
					t.Errorf("upserts = %d, want 0 for a same-day tick", store.upserts)
				}
			}
		})
	}
}

func TestStreakTickIdempotentSameDay(t *testing.T) {
	store := newMemStatsStore()
	svc := NewStreakService(store, &memBroadcaster{})
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	first, err := svc.Tick("u1")
	if err != nil {
		t.Fatalf("Tick() error: %v", err)
	}
	second, err := svc.Tick("u1")
	if err != nil {
		t.Fatalf("second Tick() error: %v", err)
	}

	if first != 1 || second != 1 {
		t.Errorf("ticks = %d, %d; want 1, 1 (replays must not double-count)", first, second)
	}
	if store.upserts != 1 {
		t.Errorf("upserts = %d, want 1", store.upserts)
	}
}

func TestStreakTickUpdatesLongest(t *testing.T) {
	store := newMemStatsStore()
	store.records["u1"] = &models.AggregateStats{
		UserID:        "u1",
		Streak:        6,
		LongestStreak: 6,
		LastSeen:      time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC),
	}
	svc := NewStreakService(store, &memBroadcaster{})
	svc.now = func() time.Time { return time.Date(2026, 3, 11, 8, 0, 0, 0, time.UTC) }

	if _, err := svc.Tick("u1"); err != nil {
		t.Fatalf("Tick() error: %v", err)
	}

	rec := store.records["u1"]
	if rec.Streak != 7 || rec.LongestStreak != 7 {
		t.Errorf("streak/longest = %d/%d, want 7/7", rec.Streak, rec.LongestStreak)
	}
}
