package domain

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"
)

func TestParseMediaRef(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want MediaRef
	}{
		{
			name: "plain url",
			raw:  "https://cdn.example.com/day-media/days/a.jpg",
			want: PlainRef("https://cdn.example.com/day-media/days/a.jpg"),
		},
		{
			name: "legacy envelope",
			raw:  `{"url":"https://cdn.example.com/day-media/days/b.mp4","type":"video"}`,
			want: EnvelopedRef("https://cdn.example.com/day-media/days/b.mp4", MediaTypeVideo),
		},
		{
			name: "envelope without url stays plain",
			raw:  `{"type":"image"}`,
			want: PlainRef(`{"type":"image"}`),
		},
		{
			name: "broken json stays plain",
			raw:  `{"url":`,
			want: PlainRef(`{"url":`),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseMediaRef(tt.raw)
			if got != tt.want {
				t.Fatalf("ParseMediaRef(%q) = %+v, want %+v", tt.raw, got, tt.want)
			}
		})
	}
}

func TestMediaRef_ScanAndType(t *testing.T) {
	var ref MediaRef
	if err := ref.Scan([]byte(`{"url":"https://x/day-media/v.mp4","type":"video"}`)); err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if ref.URL != "https://x/day-media/v.mp4" || ref.TypeOr(MediaTypeImage) != MediaTypeVideo {
		t.Fatalf("unexpected scanned ref %+v", ref)
	}
	if err := ref.Scan(42); err == nil {
		t.Fatalf("expected error for unsupported column type")
	}

	plain := PlainRef("https://x/day-media/p.png")
	if plain.TypeOr(MediaTypeImage) != MediaTypeImage {
		t.Fatalf("plain refs must use the fallback type")
	}
	raw, err := json.Marshal(plain)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if string(raw) != `"https://x/day-media/p.png"` {
		t.Fatalf("unexpected json %s", raw)
	}
}

func TestMediaRecord_Owner(t *testing.T) {
	dayID := uuid.New()
	activityID := uuid.New()

	dayMedia := MediaRecord{ID: uuid.New(), DayID: dayID}
	relation, owner, err := dayMedia.Owner()
	if err != nil || relation != RelationDay || owner != dayID {
		t.Fatalf("expected day owner, got %s %s %v", relation, owner, err)
	}

	activityMedia := MediaRecord{ID: uuid.New(), DayID: dayID, RelatedTo: RelationActivity, ActivityID: &activityID}
	relation, owner, err = activityMedia.Owner()
	if err != nil || relation != RelationActivity || owner != activityID {
		t.Fatalf("expected activity owner, got %s %s %v", relation, owner, err)
	}

	missing := MediaRecord{ID: uuid.New(), DayID: dayID, RelatedTo: RelationAttraction}
	if _, _, err := missing.Owner(); !errors.Is(err, ErrMediaOwnerMismatch) {
		t.Fatalf("expected ErrMediaOwnerMismatch for missing owner id, got %v", err)
	}

	crossed := MediaRecord{ID: uuid.New(), DayID: dayID, RelatedTo: RelationAttraction, ActivityID: &activityID}
	if _, _, err := crossed.Owner(); !errors.Is(err, ErrMediaOwnerMismatch) {
		t.Fatalf("expected ErrMediaOwnerMismatch for crossed ids, got %v", err)
	}
}

func TestDayRecord_MediaForAndOrphans(t *testing.T) {
	dayID := uuid.New()
	activityID := uuid.New()
	strayID := uuid.New()
	day := DayRecord{
		ID:         dayID,
		Activities: []EntityRecord{{ID: activityID, Kind: RelationActivity}},
		Media: []MediaRecord{
			{ID: uuid.New(), DayID: dayID},
			{ID: uuid.New(), DayID: dayID, RelatedTo: RelationActivity, ActivityID: &activityID},
			{ID: uuid.New(), DayID: dayID, RelatedTo: RelationActivity, ActivityID: &strayID},
		},
	}

	if got := len(day.MediaFor(RelationDay, dayID)); got != 1 {
		t.Fatalf("expected 1 day media, got %d", got)
	}
	if got := len(day.MediaFor(RelationActivity, activityID)); got != 1 {
		t.Fatalf("expected 1 activity media, got %d", got)
	}
	orphans := day.OrphanMedia()
	if len(orphans) != 1 || *orphans[0].ActivityID != strayID {
		t.Fatalf("expected the stray activity media as orphan, got %+v", orphans)
	}
}
