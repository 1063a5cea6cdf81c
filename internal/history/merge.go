// Package history implements the bounded, deduplicating chat-history merge.
// It is pure: no persistence, no clock, no I/O.
package history

import "chatvault/pkg/domain"

// Window is the maximum number of message pairs an account retains.
const Window = 10

// Merge concatenates stored history with an incoming batch, deduplicates by
// message identifier, and keeps only the trailing Window entries.
//
// Deduplication is keyed-overwrite: when an identifier repeats across the
// concatenation, the last occurrence wins and determines both content and
// position. Merging an already-merged batch again changes nothing.
func Merge(stored, incoming []domain.MessagePair) []domain.MessagePair {
	combined := make([]domain.MessagePair, 0, len(stored)+len(incoming))
	combined = append(combined, stored...)
	combined = append(combined, incoming...)

	// Walk backwards so the last occurrence of each id is the one kept,
	// at the position of that last write.
	seen := make(map[string]struct{}, len(combined))
	deduped := make([]domain.MessagePair, 0, len(combined))
	for i := len(combined) - 1; i >= 0; i-- {
		msg := combined[i]
		if _, dup := seen[msg.ID]; dup {
			continue
		}
		seen[msg.ID] = struct{}{}
		deduped = append(deduped, msg)
	}
	// Reverse back into concatenation order.
	for i, j := 0, len(deduped)-1; i < j; i, j = i+1, j-1 {
		deduped[i], deduped[j] = deduped[j], deduped[i]
	}

	if len(deduped) > Window {
		deduped = deduped[len(deduped)-Window:]
	}
	return deduped
}
