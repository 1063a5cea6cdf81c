package history

import (
	"fmt"
	"reflect"
	"testing"

	"chatvault/pkg/domain"
)

func pair(id, user string) domain.MessagePair {
	return domain.MessagePair{ID: id, User: user, Assistant: "re: " + user}
}

func ids(msgs []domain.MessagePair) []string {
	out := make([]string, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, m.ID)
	}
	return out
}

func TestMergeEmptyInputs(t *testing.T) {
	if got := Merge(nil, nil); len(got) != 0 {
		t.Fatalf("merge of nothing: got %d entries", len(got))
	}
	stored := []domain.MessagePair{pair("m1", "hi")}
	if got := Merge(stored, nil); !reflect.DeepEqual(got, stored) {
		t.Fatalf("merge with empty batch changed history: %v", ids(got))
	}
	if got := Merge(nil, stored); !reflect.DeepEqual(got, stored) {
		t.Fatalf("merge into empty history: %v", ids(got))
	}
}

func TestMergePreservesOrderUnderWindow(t *testing.T) {
	stored := []domain.MessagePair{pair("m1", "a"), pair("m2", "b")}
	incoming := []domain.MessagePair{pair("m3", "c")}
	got := Merge(stored, incoming)
	want := []string{"m1", "m2", "m3"}
	if !reflect.DeepEqual(ids(got), want) {
		t.Fatalf("got %v, want %v", ids(got), want)
	}
}

func TestMergeKeyedOverwriteLastWins(t *testing.T) {
	// Stored m1..m12, incoming rewrites m12 and appends m13. The result is
	// the trailing 10 of [m1..m11, m12', m13] with m12' content and
	// positioned after m11.
	stored := make([]domain.MessagePair, 0, 12)
	for i := 1; i <= 12; i++ {
		stored = append(stored, pair(fmt.Sprintf("m%d", i), fmt.Sprintf("v%d", i)))
	}
	incoming := []domain.MessagePair{
		pair("m12", "rewritten"),
		pair("m13", "v13"),
	}
	got := Merge(stored, incoming)
	wantIDs := []string{"m4", "m5", "m6", "m7", "m8", "m9", "m10", "m11", "m12", "m13"}
	if !reflect.DeepEqual(ids(got), wantIDs) {
		t.Fatalf("got %v, want %v", ids(got), wantIDs)
	}
	if got[8].User != "rewritten" {
		t.Fatalf("m12 content not overwritten: %+v", got[8])
	}
}

func TestMergeTruncatesToWindow(t *testing.T) {
	stored := make([]domain.MessagePair, 0, 9)
	for i := 1; i <= 9; i++ {
		stored = append(stored, pair(fmt.Sprintf("m%d", i), "x"))
	}
	incoming := []domain.MessagePair{pair("m10", "x"), pair("m11", "x"), pair("m12", "x")}
	got := Merge(stored, incoming)
	if len(got) != Window {
		t.Fatalf("expected %d entries, got %d", Window, len(got))
	}
	if got[0].ID != "m3" || got[len(got)-1].ID != "m12" {
		t.Fatalf("window misplaced: %v", ids(got))
	}
}

func TestMergeIdempotent(t *testing.T) {
	stored := make([]domain.MessagePair, 0, 12)
	for i := 1; i <= 12; i++ {
		stored = append(stored, pair(fmt.Sprintf("m%d", i), "x"))
	}
	batch := []domain.MessagePair{pair("m12", "y"), pair("m13", "z")}

	once := Merge(stored, batch)
	twice := Merge(once, batch)
	if !reflect.DeepEqual(once, twice) {
		t.Fatalf("re-merging the same batch changed history:\nonce:  %v\ntwice: %v", ids(once), ids(twice))
	}
	self := Merge(once, once)
	if !reflect.DeepEqual(once, self) {
		t.Fatalf("merging a history with itself changed it: %v", ids(self))
	}
}

func TestMergeDuplicateWithinIncomingBatch(t *testing.T) {
	incoming := []domain.MessagePair{
		pair("m1", "first"),
		pair("m2", "other"),
		pair("m1", "second"),
	}
	got := Merge(nil, incoming)
	want := []string{"m2", "m1"}
	if !reflect.DeepEqual(ids(got), want) {
		t.Fatalf("got %v, want %v", ids(got), want)
	}
	if got[1].User != "second" {
		t.Fatalf("later duplicate should win: %+v", got[1])
	}
}
