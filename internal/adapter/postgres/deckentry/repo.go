// Package deckentry stores the built deck in PostgreSQL so that other
// services can query it by headword or rank. The table mirrors the last
// exported CSV.
package deckentry

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	postgres "github.com/heartmarshall/myenglish-deckgen/internal/adapter/postgres"
	"github.com/heartmarshall/myenglish-deckgen/internal/domain"
)

const table = "deck_entries"

var columns = []string{
	"key", "headword", "definitions", "ipa", "etymology", "forms",
	"hyphenation", "audio", "frequency_rank", "sense_count", "run_id",
}

var builder = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

// upsertSQL is built once; every row is queued with its own arguments.
var upsertSQL = mustUpsertSQL()

func mustUpsertSQL() string {
	q, _, err := builder.
		Insert(table).
		Columns(columns...).
		Values(make([]any, len(columns))...).
		Suffix(`ON CONFLICT (key) DO UPDATE SET
			headword = EXCLUDED.headword,
			definitions = EXCLUDED.definitions,
			ipa = EXCLUDED.ipa,
			etymology = EXCLUDED.etymology,
			forms = EXCLUDED.forms,
			hyphenation = EXCLUDED.hyphenation,
			audio = EXCLUDED.audio,
			frequency_rank = EXCLUDED.frequency_rank,
			sense_count = EXCLUDED.sense_count,
			run_id = EXCLUDED.run_id,
			updated_at = now()`).
		ToSql()
	if err != nil {
		panic(fmt.Sprintf("deckentry: build upsert: %v", err))
	}
	return q
}

// Repo provides deck persistence backed by PostgreSQL.
type Repo struct {
	pool *pgxpool.Pool
	txm  *postgres.TxManager
}

// New creates a new deck repository.
func New(pool *pgxpool.Pool, txm *postgres.TxManager) *Repo {
	return &Repo{pool: pool, txm: txm}
}

// ReplaceAll upserts entries in batches of batchSize and deletes rows
// written by any other run, all in one transaction. Returns the number of
// upserted rows.
func (r *Repo) ReplaceAll(ctx context.Context, runID uuid.UUID, entries []domain.Entry, batchSize int) (int, error) {
	if batchSize <= 0 {
		batchSize = 1000
	}

	var upserted int
	err := r.txm.RunInTx(ctx, func(ctx context.Context) error {
		q := postgres.QuerierFromCtx(ctx, r.pool)

		for start := 0; start < len(entries); start += batchSize {
			end := min(start+batchSize, len(entries))

			batch := &pgx.Batch{}
			for i := start; i < end; i++ {
				args, err := rowArgs(entries[i], runID)
				if err != nil {
					return err
				}
				batch.Queue(upsertSQL, args...)
			}

			n, err := postgres.SendBatchExec(ctx, q, batch)
			if err != nil {
				return fmt.Errorf("upsert entries %d-%d: %w", start, end, err)
			}
			upserted += n
		}

		sql, args, err := builder.Delete(table).Where(squirrel.NotEq{"run_id": runID}).ToSql()
		if err != nil {
			return fmt.Errorf("build delete: %w", err)
		}
		if _, err := q.Exec(ctx, sql, args...); err != nil {
			return fmt.Errorf("delete stale entries: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return upserted, nil
}

// GetByKey returns the entry stored under a normalized headword.
// Returns domain.ErrNotFound if absent.
func (r *Repo) GetByKey(ctx context.Context, key string) (domain.Entry, error) {
	sql, args, err := builder.
		Select(columns...).
		From(table).
		Where(squirrel.Eq{"key": key}).
		ToSql()
	if err != nil {
		return domain.Entry{}, fmt.Errorf("build select: %w", err)
	}

	q := postgres.QuerierFromCtx(ctx, r.pool)
	e, _, err := scanEntry(q.QueryRow(ctx, sql, args...))
	if err != nil {
		return domain.Entry{}, postgres.MapError(err, "deck_entry", key)
	}
	return e, nil
}

// ListTop returns up to limit entries in deck order: rank ascending,
// unranked last, then key.
func (r *Repo) ListTop(ctx context.Context, limit int) ([]domain.Entry, error) {
	sql, args, err := builder.
		Select(columns...).
		From(table).
		OrderBy("frequency_rank ASC NULLS LAST", "key ASC").
		Limit(uint64(max(limit, 0))).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	q := postgres.QuerierFromCtx(ctx, r.pool)
	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("list deck entries: %w", err)
	}
	defer rows.Close()

	var out []domain.Entry
	for rows.Next() {
		e, _, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan deck entry: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list deck entries: %w", err)
	}
	return out, nil
}

// Count returns the number of stored entries.
func (r *Repo) Count(ctx context.Context) (int, error) {
	sql, args, err := builder.Select("count(*)").From(table).ToSql()
	if err != nil {
		return 0, fmt.Errorf("build count: %w", err)
	}

	var n int
	if err := postgres.QuerierFromCtx(ctx, r.pool).QueryRow(ctx, sql, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count deck entries: %w", err)
	}
	return n, nil
}

// ---------------------------------------------------------------------------
// Row mapping
// ---------------------------------------------------------------------------

type posDefinitions struct {
	POS     string   `json:"pos"`
	Glosses []string `json:"glosses"`
}

type formRow struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

func rowArgs(e domain.Entry, runID uuid.UUID) ([]any, error) {
	defs := make([]posDefinitions, 0, len(e.POSOrder))
	for _, pos := range e.POSOrder {
		if glosses := e.SensesByPOS[pos]; len(glosses) > 0 {
			defs = append(defs, posDefinitions{POS: pos, Glosses: glosses})
		}
	}
	defsJSON, err := json.Marshal(defs)
	if err != nil {
		return nil, fmt.Errorf("marshal definitions %q: %w", e.Key, err)
	}

	forms := make([]formRow, len(e.Forms))
	for i, f := range e.Forms {
		forms[i] = formRow{Label: f.Label, Value: f.Value}
	}
	formsJSON, err := json.Marshal(forms)
	if err != nil {
		return nil, fmt.Errorf("marshal forms %q: %w", e.Key, err)
	}

	var rank *int32
	if e.Rank.IsRanked() {
		v := int32(e.Rank)
		rank = &v
	}

	hyphenation := e.Hyphenation
	if hyphenation == nil {
		hyphenation = []string{}
	}

	return []any{
		e.Key, e.Headword, defsJSON, e.IPA, e.Etymology, formsJSON,
		hyphenation, e.Audio, rank, e.SenseCount(), runID,
	}, nil
}

func scanEntry(row pgx.Row) (domain.Entry, uuid.UUID, error) {
	var (
		e          domain.Entry
		defsJSON   []byte
		formsJSON  []byte
		rank       *int32
		senseCount int
		runID      uuid.UUID
	)
	if err := row.Scan(
		&e.Key, &e.Headword, &defsJSON, &e.IPA, &e.Etymology, &formsJSON,
		&e.Hyphenation, &e.Audio, &rank, &senseCount, &runID,
	); err != nil {
		return domain.Entry{}, uuid.Nil, err
	}

	var defs []posDefinitions
	if err := json.Unmarshal(defsJSON, &defs); err != nil {
		return domain.Entry{}, uuid.Nil, fmt.Errorf("unmarshal definitions: %w", err)
	}
	e.SensesByPOS = make(map[string][]string, len(defs))
	for _, d := range defs {
		e.POSOrder = append(e.POSOrder, d.POS)
		e.SensesByPOS[d.POS] = d.Glosses
	}

	var forms []formRow
	if err := json.Unmarshal(formsJSON, &forms); err != nil {
		return domain.Entry{}, uuid.Nil, fmt.Errorf("unmarshal forms: %w", err)
	}
	for _, f := range forms {
		e.Forms = append(e.Forms, domain.Form{Label: f.Label, Value: f.Value})
	}

	if len(e.Hyphenation) == 0 {
		e.Hyphenation = nil
	}
	if rank != nil {
		e.Rank = domain.Rank(*rank)
	}
	return e, runID, nil
}
