package filterexpr

import (
	"strings"
	"testing"
	"time"
)

var reviewFields = map[string]Field{
	"status":         {Kind: KindString, Ops: []Op{OpEQ, OpIN}},
	"surah":          {Kind: KindInt, Ops: []Op{OpEQ, OpIN}},
	"next_review_at": {Kind: KindTimestamp, Ops: []Op{OpGTE, OpLTE}},
}

func TestParseFilterEmpty(t *testing.T) {
	preds, err := ParseFilter("   ", reviewFields)
	if err != nil {
		t.Fatalf("ParseFilter returned error: %v", err)
	}
	if len(preds) != 0 {
		t.Fatalf("expected no predicates, got %+v", preds)
	}
}

func TestParseFilterEquality(t *testing.T) {
	preds, err := ParseFilter(`status == "mastered"`, reviewFields)
	if err != nil {
		t.Fatalf("ParseFilter returned error: %v", err)
	}
	if len(preds) != 1 {
		t.Fatalf("expected one predicate, got %d", len(preds))
	}
	p := preds[0]
	if p.Name != "status" || p.Op != OpEQ || p.Value != "mastered" {
		t.Errorf("unexpected predicate %+v", p)
	}
}

func TestParseFilterConjunction(t *testing.T) {
	filter := `status == "reviewing" && surah in [1, 18, 114] && next_review_at <= timestamp("2024-05-20T00:00:00Z")`
	preds, err := ParseFilter(filter, reviewFields)
	if err != nil {
		t.Fatalf("ParseFilter returned error: %v", err)
	}
	if len(preds) != 3 {
		t.Fatalf("expected three predicates, got %d", len(preds))
	}

	surahs, ok := preds[1].Value.([]int64)
	if !ok || len(surahs) != 3 || surahs[2] != 114 {
		t.Errorf("expected surah list [1 18 114], got %+v", preds[1].Value)
	}

	ts, ok := preds[2].Value.(time.Time)
	if !ok || !ts.Equal(time.Date(2024, 5, 20, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("expected parsed timestamp, got %+v", preds[2].Value)
	}
}

func TestParseFilterRejections(t *testing.T) {
	tests := []struct {
		name   string
		filter string
		want   string
	}{
		{"unknown field", `ease == "high"`, "not allowed"},
		{"disallowed operator", `status >= "new"`, "not allowed"},
		{"or is rejected", `status == "new" || surah == 1`, "only AND"},
		{"wrong literal kind", `surah == "one"`, "expected int"},
		{"empty list", `status in []`, "must not be empty"},
		{"bad timestamp", `next_review_at <= timestamp("yesterday")`, "RFC3339"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseFilter(tt.filter, reviewFields)
			if err == nil {
				t.Fatalf("expected error for %q", tt.filter)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not mention %q", err.Error(), tt.want)
			}
		})
	}
}

func TestParseOrder(t *testing.T) {
	schema := OrderSchema{
		Default:     "next_review_at",
		DefaultDesc: false,
		Fallback:    "id",
		Keys: map[string]string{
			"next_review_at": "next_review_at",
			"updated_at":     "updated_at",
			"surah":          "surah_id",
			"id":             "id",
		},
	}

	clauses, err := ParseOrder("", schema)
	if err != nil {
		t.Fatalf("ParseOrder returned error: %v", err)
	}
	if len(clauses) != 2 || clauses[0].Column != "next_review_at" || clauses[1].Column != "id" {
		t.Fatalf("unexpected default clauses %+v", clauses)
	}

	// Two user keys still get the tie-breaker so pagination stays stable.
	clauses, err = ParseOrder("updated_at desc, surah", schema)
	if err != nil {
		t.Fatalf("ParseOrder returned error: %v", err)
	}
	if len(clauses) != 3 || !clauses[0].Desc || clauses[0].Column != "updated_at" || clauses[1].Column != "surah_id" {
		t.Fatalf("unexpected clauses %+v", clauses)
	}
	if clauses[2].Column != "id" || clauses[2].Desc {
		t.Fatalf("expected trailing id tie-breaker, got %+v", clauses)
	}

	clauses, err = ParseOrder("id desc", schema)
	if err != nil {
		t.Fatalf("ParseOrder returned error: %v", err)
	}
	if len(clauses) != 1 || clauses[0].Column != "id" || !clauses[0].Desc {
		t.Fatalf("fallback already present, got %+v", clauses)
	}

	if _, err := ParseOrder("ease desc", schema); err == nil {
		t.Error("expected error for non-whitelisted order key")
	}
	if _, err := ParseOrder("surah sideways", schema); err == nil {
		t.Error("expected error for invalid direction")
	}
	if _, err := ParseOrder("surah, surah desc", schema); err == nil {
		t.Error("expected error for duplicate keys")
	}
}
