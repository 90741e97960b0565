package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"condition-builder/internal/builder"
	"condition-builder/internal/condition"
)

// timestampLayout is fixed-width so TEXT timestamps sort chronologically.
const timestampLayout = "2006-01-02T15:04:05.000000000Z07:00"

// InsertSavedCondition appends a compiled submission to _saved_conditions.
// Rows are never updated; resubmitting the same tree adds another row.
func (s *Store) InsertSavedCondition(ctx context.Context, table string, compiled *condition.Compiled) (builder.SavedCondition, error) {
	params, err := json.Marshal(compiled.Params)
	if err != nil {
		return builder.SavedCondition{}, fmt.Errorf("marshal params: %w", err)
	}

	saved := builder.SavedCondition{
		ID:        uuid.New().String(),
		Table:     table,
		RawData:   compiled.RawData,
		SQL:       compiled.SQL,
		CreatedAt: time.Now().UTC(),
	}

	pb := s.Dialect.NewParamBuilder()
	sql := fmt.Sprintf(
		"INSERT INTO _saved_conditions (id, table_name, raw_data, sql, params, created_at) VALUES (%s, %s, %s, %s, %s, %s)",
		pb.Add(saved.ID), pb.Add(table), pb.Add(string(compiled.JSON)), pb.Add(compiled.SQL),
		pb.Add(string(params)), pb.Add(saved.CreatedAt.Format(timestampLayout)))
	if _, err := Exec(ctx, s.DB, sql, pb.Params()...); err != nil {
		return builder.SavedCondition{}, fmt.Errorf("insert saved condition: %w", MapError(s.Dialect, err))
	}
	return saved, nil
}

// ListSavedConditions returns saved conditions oldest first, optionally
// restricted to one table.
func (s *Store) ListSavedConditions(ctx context.Context, table string) (builder.SavedConditions, error) {
	pb := s.Dialect.NewParamBuilder()
	sql := "SELECT id, table_name, raw_data, sql, created_at FROM _saved_conditions"
	if table != "" {
		sql += " WHERE table_name = " + pb.Add(table)
	}
	sql += " ORDER BY created_at, id"

	rows, err := QueryRows(ctx, s.DB, sql, pb.Params()...)
	if err != nil {
		return nil, err
	}

	items := make([]builder.SavedCondition, 0, len(rows))
	for _, row := range rows {
		id := fmt.Sprintf("%v", row["id"])
		tree, err := condition.UnmarshalNode(jsonBytes(row["raw_data"]))
		if err != nil {
			return nil, fmt.Errorf("decode saved condition %s: %w", id, err)
		}
		created, _ := row["created_at"].(time.Time)
		items = append(items, builder.SavedCondition{
			ID:        id,
			Table:     fmt.Sprintf("%v", row["table_name"]),
			RawData:   tree,
			SQL:       fmt.Sprintf("%v", row["sql"]),
			CreatedAt: created,
		})
	}

	var out builder.SavedConditions
	return out.Append(items...), nil
}

// jsonBytes accepts a JSON column as returned by either driver.
func jsonBytes(v any) []byte {
	switch val := v.(type) {
	case []byte:
		return val
	case string:
		return []byte(val)
	default:
		b, _ := json.Marshal(val)
		return b
	}
}

// CountWhere runs SELECT COUNT(*) against table using a compiled WHERE
// fragment. table must already be validated as an identifier.
func (s *Store) CountWhere(ctx context.Context, table, where string, params []any) (int64, error) {
	if !condition.IsIdentifier(table) {
		return 0, fmt.Errorf("invalid table name %q", table)
	}
	var count int64
	sql := fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE %s", table, where)
	if err := s.DB.QueryRowContext(ctx, sql, params...).Scan(&count); err != nil {
		return 0, fmt.Errorf("count %s: %w", table, err)
	}
	return count, nil
}

// NewParamBuilder returns the dialect's placeholder builder so compiled
// conditions can be executed against this store.
func (s *Store) NewParamBuilder() condition.ParamBuilder {
	return s.Dialect.NewParamBuilder()
}
