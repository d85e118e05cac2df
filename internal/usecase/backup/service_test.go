package backup

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestSelectTables(t *testing.T) {
	all, err := selectTables(nil)
	if err != nil {
		t.Fatalf("select all: %v", err)
	}
	if len(all) != len(tables) {
		t.Errorf("selected %d tables, want %d", len(all), len(tables))
	}

	subset, err := selectTables([]string{"review_history", "REVIEW_ITEMS"})
	if err != nil {
		t.Fatalf("select subset: %v", err)
	}
	// Registry order wins, not request order.
	if len(subset) != 2 || subset[0].name != "review_items" || subset[1].name != "review_history" {
		t.Errorf("unexpected subset: %+v", subset)
	}

	if _, err := selectTables([]string{"words"}); err == nil {
		t.Error("expected error for unknown table")
	}
}

func TestBuildInsert(t *testing.T) {
	raw := json.RawMessage(`{
		"user_id": 7, "date": "2025-06-10", "reviews_completed": 3, "points_earned": 80
	}`)
	var target table
	for _, candidate := range tables {
		if candidate.name == "daily_stats" {
			target = candidate
		}
	}

	sql, args, err := buildInsert(target, raw)
	if err != nil {
		t.Fatalf("build insert: %v", err)
	}
	if !strings.HasPrefix(sql, "INSERT INTO daily_stats (user_id, date, reviews_completed, points_earned) VALUES") {
		t.Errorf("unexpected sql: %s", sql)
	}
	if !strings.HasSuffix(sql, "ON CONFLICT (user_id, date) DO NOTHING") {
		t.Errorf("missing conflict clause: %s", sql)
	}
	if strings.Contains(sql, "OVERRIDING SYSTEM VALUE") {
		t.Errorf("daily_stats has no identity column: %s", sql)
	}
	if len(args) != 4 {
		t.Fatalf("args = %d, want 4", len(args))
	}
	// Numbers bind as text so integer columns keep exact values.
	if args[0] != "7" || args[3] != "80" {
		t.Errorf("unexpected args: %v", args)
	}
}

func TestBuildInsertIdentityAndMissingColumn(t *testing.T) {
	var items table
	for _, candidate := range tables {
		if candidate.name == "review_items" {
			items = candidate
		}
	}

	if _, _, err := buildInsert(items, json.RawMessage(`{"id": 1}`)); err == nil {
		t.Error("expected error for missing columns")
	}

	row := map[string]any{}
	for _, col := range items.columns {
		row[col] = 1
	}
	row["status"] = "new"
	raw, _ := json.Marshal(row)
	sql, _, err := buildInsert(items, raw)
	if err != nil {
		t.Fatalf("build insert: %v", err)
	}
	if !strings.Contains(sql, "OVERRIDING SYSTEM VALUE") {
		t.Errorf("identity insert must override system value: %s", sql)
	}
	if !strings.Contains(sql, "ON CONFLICT (user_id, surah_id) DO NOTHING") {
		t.Errorf("missing conflict clause: %s", sql)
	}
}

func TestBuildInsertHistoryIdempotent(t *testing.T) {
	var history table
	for _, candidate := range tables {
		if candidate.name == "review_history" {
			history = candidate
		}
	}

	raw := json.RawMessage(`{
		"id": 42, "user_id": 7, "surah_id": 36, "grade": 4,
		"interval_before": 3, "interval_after": 8, "reviewed_at": "2025-06-10T09:00:00Z"
	}`)
	sql, _, err := buildInsert(history, raw)
	if err != nil {
		t.Fatalf("build insert: %v", err)
	}
	if !strings.Contains(sql, "OVERRIDING SYSTEM VALUE") {
		t.Errorf("identity insert must override system value: %s", sql)
	}
	// Re-importing the same backup must skip rows already present.
	if !strings.HasSuffix(sql, "ON CONFLICT (id) DO NOTHING") {
		t.Errorf("missing conflict clause: %s", sql)
	}
}

func TestEnvelopeRoundTrip(t *testing.T) {
	payload, err := json.Marshal(metaRow{Version: formatVersion, ExportedAt: "2025-06-10T09:00:00Z"})
	if err != nil {
		t.Fatal(err)
	}
	line, err := json.Marshal(envelope{Table: metaTable, Row: payload})
	if err != nil {
		t.Fatal(err)
	}

	var env envelope
	if err := json.Unmarshal(line, &env); err != nil {
		t.Fatal(err)
	}
	if env.Table != metaTable {
		t.Errorf("table = %s", env.Table)
	}
	var meta metaRow
	if err := json.Unmarshal(env.Row, &meta); err != nil {
		t.Fatal(err)
	}
	if meta.Version != formatVersion {
		t.Errorf("version = %d, want %d", meta.Version, formatVersion)
	}
}

func TestTableNames(t *testing.T) {
	names := TableNames()
	want := []string{"review_items", "review_history", "daily_stats"}
	if len(names) != len(want) {
		t.Fatalf("names = %v", names)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("names[%d] = %s, want %s", i, names[i], want[i])
		}
	}
}
