package pow

import "testing"

func TestSnapshotOfSumsGroups(t *testing.T) {
	tests := []struct {
		name          string
		groups        []ReactionGroup
		expectedTotal int
		expectedCount int
	}{
		{
			name:          "no-reactions",
			groups:        nil,
			expectedTotal: 0,
			expectedCount: 0,
		},
		{
			name: "several-emoji",
			groups: []ReactionGroup{
				{Emoji: "🔥", Count: 3},
				{Emoji: "👍", Count: 2},
				{Emoji: "custom_pow", Count: 1},
			},
			expectedTotal: 6,
			expectedCount: 3,
		},
		{
			name: "duplicate-emoji-last-wins",
			groups: []ReactionGroup{
				{Emoji: "👍", Count: 4},
				{Emoji: "👍", Count: 1},
			},
			expectedTotal: 1,
			expectedCount: 1,
		},
		{
			name: "negative-count-clamped",
			groups: []ReactionGroup{
				{Emoji: "👍", Count: -2},
				{Emoji: "🔥", Count: 5},
			},
			expectedTotal: 5,
			expectedCount: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snapshot := SnapshotOf(tt.groups)
			if snapshot.Total != tt.expectedTotal {
				t.Fatalf("expected total %d, got %d", tt.expectedTotal, snapshot.Total)
			}
			if snapshot.ByEmoji == nil {
				t.Fatalf("expected non-nil emoji map")
			}
			if len(snapshot.ByEmoji) != tt.expectedCount {
				t.Fatalf("expected %d emoji entries, got %d", tt.expectedCount, len(snapshot.ByEmoji))
			}
			sum := 0
			for _, count := range snapshot.ByEmoji {
				sum += count
			}
			if sum != snapshot.Total {
				t.Fatalf("total %d does not match emoji sum %d", snapshot.Total, sum)
			}
		})
	}
}

func TestSnapshotOfDoesNotAliasInput(t *testing.T) {
	groups := []ReactionGroup{{Emoji: "👍", Count: 2}}
	snapshot := SnapshotOf(groups)
	groups[0].Count = 9

	if snapshot.ByEmoji["👍"] != 2 {
		t.Fatalf("snapshot changed after input mutation: %v", snapshot.ByEmoji)
	}
}

func TestZeroSnapshot(t *testing.T) {
	snapshot := ZeroSnapshot()
	if snapshot.Total != 0 {
		t.Fatalf("expected zero total, got %d", snapshot.Total)
	}
	if snapshot.ByEmoji == nil || len(snapshot.ByEmoji) != 0 {
		t.Fatalf("expected empty non-nil map, got %#v", snapshot.ByEmoji)
	}
}
