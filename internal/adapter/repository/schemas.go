package repository

import (
	"fmt"
	"strings"

	"github.com/eslsoft/hifznet/internal/entity"
	"github.com/eslsoft/hifznet/internal/repository"
	"github.com/eslsoft/hifznet/pkg/filterexpr"
)

var listReviewFilterFields = map[string]filterexpr.Field{
	"status": {
		Kind: filterexpr.KindString,
		Ops:  []filterexpr.Op{filterexpr.OpEQ, filterexpr.OpIN},
	},
	"surah": {
		Kind: filterexpr.KindInt,
		Ops:  []filterexpr.Op{filterexpr.OpEQ, filterexpr.OpIN},
	},
	"repetitions": {
		Kind: filterexpr.KindInt,
		Ops:  []filterexpr.Op{filterexpr.OpEQ, filterexpr.OpGTE, filterexpr.OpLTE},
	},
	"next_review_at": {
		Kind: filterexpr.KindTimestamp,
		Ops:  []filterexpr.Op{filterexpr.OpGTE, filterexpr.OpLTE},
	},
}

var listReviewFilterColumns = map[string]string{
	"status":         "status",
	"surah":          "surah_id",
	"repetitions":    "repetitions",
	"next_review_at": "next_review_at",
}

var listReviewOrderSchema = filterexpr.OrderSchema{
	Default:     "next_review_at",
	DefaultDesc: false,
	Fallback:    "id",
	Keys: map[string]string{
		"next_review_at": "next_review_at",
		"updated_at":     "updated_at",
		"surah":          "surah_id",
		"repetitions":    "repetitions",
		"interval_days":  "interval_days",
		"id":             "id",
	},
}

// buildReviewWhere renders the query's CEL filter into a WHERE clause with
// positional args. $1 is always the user id.
func buildReviewWhere(query *repository.ListReviewQuery) (string, []any, error) {
	preds, err := filterexpr.ParseFilter(query.GetFilter(), listReviewFilterFields)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %v", entity.ErrInvalidFilter, err)
	}

	clauses := []string{"user_id = $1"}
	args := []any{query.UserID}
	for _, pred := range preds {
		column := listReviewFilterColumns[pred.Name]
		args = append(args, pred.Value)
		switch pred.Op {
		case filterexpr.OpIN:
			clauses = append(clauses, fmt.Sprintf("%s = ANY($%d)", column, len(args)))
		case filterexpr.OpGTE:
			clauses = append(clauses, fmt.Sprintf("%s >= $%d", column, len(args)))
		case filterexpr.OpLTE:
			clauses = append(clauses, fmt.Sprintf("%s <= $%d", column, len(args)))
		default:
			clauses = append(clauses, fmt.Sprintf("%s = $%d", column, len(args)))
		}
	}
	return " WHERE " + strings.Join(clauses, " AND "), args, nil
}

func buildReviewOrder(orderBy string) (string, error) {
	clauses, err := filterexpr.ParseOrder(orderBy, listReviewOrderSchema)
	if err != nil {
		return "", fmt.Errorf("%w: %v", entity.ErrInvalidFilter, err)
	}
	parts := make([]string, len(clauses))
	for i, clause := range clauses {
		dir := "ASC"
		if clause.Desc {
			dir = "DESC"
		}
		parts[i] = clause.Column + " " + dir
	}
	return " ORDER BY " + strings.Join(parts, ", "), nil
}
