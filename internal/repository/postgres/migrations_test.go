package postgres

import (
	"encoding/json"
	"io/fs"
	"regexp"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/rrrobertsson/airmango-admin-panel/internal/domain"
)

func TestMigrationsAreEmbeddedInOrder(t *testing.T) {
	entries, err := fs.ReadDir(migrations, migrationsDir)
	if err != nil {
		t.Fatalf("read embedded migrations: %v", err)
	}
	if len(entries) < 2 {
		t.Fatalf("expected at least 2 migrations, got %d", len(entries))
	}
	for _, entry := range entries {
		data, err := fs.ReadFile(migrations, migrationsDir+"/"+entry.Name())
		if err != nil {
			t.Fatalf("read %s: %v", entry.Name(), err)
		}
		content := string(data)
		if !strings.Contains(content, "-- +goose Up") || !strings.Contains(content, "-- +goose Down") {
			t.Errorf("%s is missing goose annotations", entry.Name())
		}
	}
}

func TestSaveProceduresMigrationDefinesFunctions(t *testing.T) {
	data, err := fs.ReadFile(migrations, migrationsDir+"/00002_trip_save_procedures.sql")
	if err != nil {
		t.Fatalf("read migration: %v", err)
	}
	content := string(data)
	checks := []string{
		"CREATE OR REPLACE FUNCTION create_trip_with_relations(payload jsonb)",
		"RETURNS uuid",
		"CREATE OR REPLACE FUNCTION update_trip_with_relations(p_trip_id uuid, payload jsonb)",
		"RETURNS text[]",
		"feature_media_index",
		"day_removed_media_ids",
		"CREATE OR REPLACE FUNCTION trip_media_url(p_raw text)",
		"IF trip_media_url(v_cover) IS NOT DISTINCT FROM trip_media_url(v_old_cover) THEN",
		"DROP FUNCTION IF EXISTS trip_media_url(text);",
	}
	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestSchemaFeaturedMediaSetNullOnDelete(t *testing.T) {
	data, err := fs.ReadFile(migrations, migrationsDir+"/00001_init_schema.sql")
	if err != nil {
		t.Fatalf("read migration: %v", err)
	}
	if !strings.Contains(string(data), "REFERENCES day_media (id) ON DELETE SET NULL") {
		t.Fatalf("expected featured media reference to clear on delete")
	}
}

var jsonKeyRead = regexp.MustCompile(`->>?\s*'([a-z_]+)'`)

// payloadKeys collects every object key of a marshalled payload.
func payloadKeys(t *testing.T, v any) map[string]bool {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	keys := map[string]bool{}
	var walk func(any)
	walk = func(node any) {
		switch n := node.(type) {
		case map[string]any:
			for k, child := range n {
				keys[k] = true
				walk(child)
			}
		case []any:
			for _, child := range n {
				walk(child)
			}
		}
	}
	walk(doc)
	return keys
}

func TestSaveProceduresReadOnlyPayloadKeys(t *testing.T) {
	data, err := fs.ReadFile(migrations, migrationsDir+"/00002_trip_save_procedures.sql")
	if err != nil {
		t.Fatalf("read migration: %v", err)
	}

	id, index, cover := uuid.New(), 0, "http://minio.test/trip-covers/a.jpg"
	media := []domain.UploadedMedia{{URL: "http://minio.test/day-media/days/a.jpg", Type: domain.MediaTypeImage}}
	entity := []domain.EntityPayload{{ID: &id, Title: "t", Description: "d", UploadedMedia: media}}
	payload := domain.TripPayload{
		Title:       "t",
		Description: "d",
		CoverImage:  &cover,
		RemoveCover: true,
		UserID:      id,
		Days: []domain.DayPayload{{
			ID:                           &id,
			Title:                        "t",
			Description:                  "d",
			Activities:                   entity,
			Attractions:                  entity,
			Accommodations:               entity,
			FeatureMediaID:               &id,
			FeatureMediaIndex:            &index,
			UploadedDayMedia:             media,
			DayRemovedMediaIDs:           []uuid.UUID{id},
			ActivityRemovedMediaIDs:      []uuid.UUID{id},
			AttractionRemovedMediaIDs:    []uuid.UUID{id},
			AccommodationRemovedMediaIDs: []uuid.UUID{id},
		}},
	}
	keys := payloadKeys(t, payload)

	matches := jsonKeyRead.FindAllStringSubmatch(string(data), -1)
	if len(matches) == 0 {
		t.Fatal("expected the procedures to read payload keys")
	}
	for _, m := range matches {
		if !keys[m[1]] {
			t.Errorf("procedures read %q, which the payload never sends", m[1])
		}
	}

	// Entity lists and their removal markers are addressed through the kind
	// table: ('activity', 'activities', 'activity_id') and so on.
	for _, kind := range []struct{ relation, list string }{
		{"activity", "activities"},
		{"attraction", "attractions"},
		{"accommodation", "accommodations"},
	} {
		if !strings.Contains(string(data), "('"+kind.relation+"', '"+kind.list+"', '"+kind.relation+"_id')") {
			t.Errorf("kind table is missing %s", kind.relation)
		}
		if !keys[kind.list] || !keys[kind.relation+"_removed_media_ids"] {
			t.Errorf("payload is missing the %s keys", kind.relation)
		}
	}
}
