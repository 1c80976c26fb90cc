package pow

// ReactionSnapshot is the derived reaction state of a message at a point in time.
// Total always equals the sum of ByEmoji.
type ReactionSnapshot struct {
	Total   int
	ByEmoji map[string]int
}

// SnapshotOf folds reaction groups into a snapshot. Later groups win on
// duplicate emoji names.
func SnapshotOf(groups []ReactionGroup) ReactionSnapshot {
	byEmoji := make(map[string]int, len(groups))
	for _, group := range groups {
		count := group.Count
		if count < 0 {
			count = 0
		}
		byEmoji[group.Emoji] = count
	}
	total := 0
	for _, count := range byEmoji {
		total += count
	}
	return ReactionSnapshot{Total: total, ByEmoji: byEmoji}
}

// ZeroSnapshot is the explicit empty state sent when all reactions are cleared.
func ZeroSnapshot() ReactionSnapshot {
	return ReactionSnapshot{Total: 0, ByEmoji: map[string]int{}}
}
