//go:build !integration

package model

import (
	"testing"
	"time"
)

func TestItemKinds(t *testing.T) {
	t.Run("should report a single kind for plain text", func(t *testing.T) {
		item := Item{Kind: KindText, Text: "hello"}
		kinds := item.Kinds()
		if len(kinds) != 1 || kinds[0] != KindText {
			t.Errorf("expected [text], but got %v", kinds)
		}
	})

	t.Run("should report media kind plus text for captioned media", func(t *testing.T) {
		item := Item{Kind: KindPhoto, Text: "caption", FileID: "f1"}
		kinds := item.Kinds()
		if len(kinds) != 2 || kinds[0] != KindPhoto || kinds[1] != KindText {
			t.Errorf("expected [photo text], but got %v", kinds)
		}
	})

	t.Run("should degrade an unclassifiable item to text", func(t *testing.T) {
		item := Item{Kind: KindUnknown}
		kinds := item.Kinds()
		if len(kinds) != 1 || kinds[0] != KindText {
			t.Errorf("expected [text] fallback, but got %v", kinds)
		}
	})
}

func TestItemAcceptedBy(t *testing.T) {
	t.Run("should accept everything when the allow-list is empty", func(t *testing.T) {
		item := Item{Kind: KindSticker}
		if !item.AcceptedBy(nil) {
			t.Error("expected empty allow-list to accept a sticker")
		}
	})

	t.Run("should reject kinds missing from the allow-list", func(t *testing.T) {
		item := Item{Kind: KindSticker}
		if item.AcceptedBy([]ContentKind{KindText, KindPhoto}) {
			t.Error("expected sticker to be rejected by a text+photo allow-list")
		}
	})

	t.Run("should accept captioned media through a text-only allow-list", func(t *testing.T) {
		item := Item{Kind: KindPhoto, Text: "caption"}
		if !item.AcceptedBy([]ContentKind{KindText}) {
			t.Error("expected captioned photo to pass a text-only allow-list")
		}
	})

	t.Run("should reject uncaptioned media on a text-only allow-list", func(t *testing.T) {
		item := Item{Kind: KindPhoto}
		if item.AcceptedBy([]ContentKind{KindText}) {
			t.Error("expected uncaptioned photo to be rejected by a text-only allow-list")
		}
	})
}

func TestItemPrimaryKind(t *testing.T) {
	cases := []struct {
		name string
		item Item
		want ContentKind
	}{
		{"classified media", Item{Kind: KindVideo, Text: "cap"}, KindVideo},
		{"plain text", Item{Kind: KindText, Text: "hi"}, KindText},
		{"unknown with text", Item{Kind: KindUnknown, Text: "hi"}, KindText},
		{"unknown without text", Item{}, KindUnknown},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.item.PrimaryKind(); got != tc.want {
				t.Errorf("expected %s, but got %s", tc.want, got)
			}
		})
	}
}

func TestSourceStatsApplyOutcome(t *testing.T) {
	t.Run("should fold outcomes into the right counters", func(t *testing.T) {
		var stats SourceStats
		now := time.Now()

		stats.ApplyOutcome(OutcomeSuccess, KindPhoto, now)
		stats.ApplyOutcome(OutcomeSuccess, KindText, now)
		stats.ApplyOutcome(OutcomeFailed, KindText, now)
		stats.ApplyOutcome(OutcomeFiltered, KindSticker, now)

		if stats.Total != 4 {
			t.Errorf("expected total 4, but got %d", stats.Total)
		}
		if stats.Successful != 2 {
			t.Errorf("expected 2 successful, but got %d", stats.Successful)
		}
		if stats.Failed != 1 {
			t.Errorf("expected 1 failed, but got %d", stats.Failed)
		}
		if stats.Filtered != 1 {
			t.Errorf("expected 1 filtered, but got %d", stats.Filtered)
		}
		if stats.KindCounts["text"] != 2 {
			t.Errorf("expected 2 text items, but got %d", stats.KindCounts["text"])
		}
		if stats.LastActionAt == nil || !stats.LastActionAt.Equal(now) {
			t.Error("expected LastActionAt to be set by a success")
		}
	})

	t.Run("should not move LastActionAt on failures", func(t *testing.T) {
		var stats SourceStats
		stats.ApplyOutcome(OutcomeFailed, KindText, time.Now())
		if stats.LastActionAt != nil {
			t.Error("expected LastActionAt to stay nil after a failure")
		}
	})

	t.Run("should compute the success rate over attempted items only", func(t *testing.T) {
		var stats SourceStats
		now := time.Now()
		stats.ApplyOutcome(OutcomeSuccess, KindText, now)
		stats.ApplyOutcome(OutcomeFailed, KindText, now)
		stats.ApplyOutcome(OutcomeFiltered, KindText, now)
		if got := stats.SuccessRate(); got != 0.5 {
			t.Errorf("expected success rate 0.5, but got %f", got)
		}
	})
}
