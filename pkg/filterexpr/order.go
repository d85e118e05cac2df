package filterexpr

import (
	"errors"
	"fmt"
	"strings"
)

// OrderSchema whitelists sortable keys and supplies defaults. Keys maps the
// public key name to the SQL column expression.
type OrderSchema struct {
	Default     string
	DefaultDesc bool
	Fallback    string
	Keys        map[string]string
}

// OrderClause is one resolved ORDER BY term.
type OrderClause struct {
	Column string
	Desc   bool
}

// ParseOrder resolves a "key [asc|desc], key [asc|desc]" clause against the
// schema. At most two user keys are accepted; the fallback key is always
// appended when absent so ties never shuffle across pages.
func ParseOrder(raw string, schema OrderSchema) ([]OrderClause, error) {
	if schema.Default == "" || schema.Fallback == "" {
		return nil, errors.New("order schema requires default and fallback keys")
	}
	if _, ok := schema.Keys[schema.Default]; !ok {
		return nil, fmt.Errorf("order key %q missing from schema", schema.Default)
	}
	if _, ok := schema.Keys[schema.Fallback]; !ok {
		return nil, fmt.Errorf("fallback order key %q missing from schema", schema.Fallback)
	}

	type term struct {
		key  string
		desc bool
	}
	var terms []term

	raw = strings.TrimSpace(raw)
	if raw != "" {
		seen := make(map[string]struct{})
		for _, seg := range strings.Split(raw, ",") {
			seg = strings.TrimSpace(seg)
			if seg == "" {
				continue
			}
			if len(terms) == 2 {
				return nil, errors.New("order_by supports at most two keys")
			}
			parts := strings.Fields(seg)
			key := parts[0]
			if _, ok := schema.Keys[key]; !ok {
				return nil, fmt.Errorf("field %q cannot be used for ordering", key)
			}
			if _, dup := seen[key]; dup {
				return nil, fmt.Errorf("duplicate order key %q", key)
			}
			seen[key] = struct{}{}

			desc := false
			switch len(parts) {
			case 1:
			case 2:
				switch strings.ToLower(parts[1]) {
				case "asc":
				case "desc":
					desc = true
				default:
					return nil, fmt.Errorf("invalid direction %q for field %q", parts[1], key)
				}
			default:
				return nil, fmt.Errorf("invalid order segment %q", seg)
			}

			terms = append(terms, term{key: key, desc: desc})
		}
	}

	if len(terms) == 0 {
		terms = append(terms, term{key: schema.Default, desc: schema.DefaultDesc})
	}
	hasFallback := false
	for _, tm := range terms {
		if tm.key == schema.Fallback {
			hasFallback = true
			break
		}
	}
	if !hasFallback {
		terms = append(terms, term{key: schema.Fallback})
	}

	clauses := make([]OrderClause, len(terms))
	for i, tm := range terms {
		clauses[i] = OrderClause{Column: schema.Keys[tm.key], Desc: tm.desc}
	}
	return clauses, nil
}
