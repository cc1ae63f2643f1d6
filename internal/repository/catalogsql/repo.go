// Package catalogsql stores catalog items in SQLite and answers predicate
// sets with parameterized SQL.
package catalogsql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/kailas-cloud/catalogq/internal/db"
	"github.com/kailas-cloud/catalogq/internal/domain"
	domcat "github.com/kailas-cloud/catalogq/internal/domain/catalog"
	"github.com/kailas-cloud/catalogq/internal/domain/search/filter"
)

// conn is the consumer interface over *sql.DB (ISP).
type conn interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
}

// Repo implements the catalog fetcher and item repository on SQLite.
type Repo struct {
	conn     conn
	pageSize int
}

// New creates a SQLite catalog repository.
func New(c conn, pageSize int) *Repo {
	if pageSize <= 0 {
		pageSize = domain.DefaultPageSize
	}
	if pageSize > domain.MaxPageSize {
		pageSize = domain.MaxPageSize
	}
	return &Repo{conn: c, pageSize: pageSize}
}

// Fetch returns the first page of items in ns that satisfy preds, ordered
// by id, with the total number of matches.
func (r *Repo) Fetch(ctx context.Context, ns string, preds filter.PredicateSet) (domcat.Page, error) {
	cond, params, err := where(ns, preds)
	if err != nil {
		return domcat.Page{}, fmt.Errorf("compile %s: %w", preds, err)
	}

	var total int
	if err := r.conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM items WHERE "+cond, params...).Scan(&total); err != nil {
		return domcat.Page{}, &db.Error{Op: db.OpSelect, Err: err}
	}
	if total == 0 {
		return domcat.Page{Items: []domcat.Item{}}, nil
	}

	rows, err := r.conn.QueryContext(ctx,
		"SELECT id, title, description, level, language FROM items WHERE "+cond+" ORDER BY id LIMIT ?",
		append(params, r.pageSize)...,
	)
	if err != nil {
		return domcat.Page{}, &db.Error{Op: db.OpSelect, Err: err}
	}
	type row struct{ id, title, description, level, language string }
	var found []row
	for rows.Next() {
		var rw row
		if err := rows.Scan(&rw.id, &rw.title, &rw.description, &rw.level, &rw.language); err != nil {
			_ = rows.Close()
			return domcat.Page{}, &db.Error{Op: db.OpSelect, Err: err}
		}
		found = append(found, rw)
	}
	if err := rows.Close(); err != nil {
		return domcat.Page{}, &db.Error{Op: db.OpSelect, Err: err}
	}
	if err := rows.Err(); err != nil {
		return domcat.Page{}, &db.Error{Op: db.OpSelect, Err: err}
	}

	ids := make([]string, len(found))
	for i, rw := range found {
		ids[i] = rw.id
	}
	tags, err := r.tags(ctx, ns, ids)
	if err != nil {
		return domcat.Page{}, err
	}

	items := make([]domcat.Item, len(found))
	for i, rw := range found {
		items[i] = domcat.Reconstruct(rw.id, rw.title, rw.description, rw.level, rw.language, tags[rw.id])
	}
	return domcat.Page{Items: items, Total: total}, nil
}

func (r *Repo) tags(ctx context.Context, ns string, ids []string) (map[string][]string, error) {
	out := make(map[string][]string, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	params := make([]any, 0, len(ids)+1)
	params = append(params, ns)
	for _, id := range ids {
		params = append(params, id)
	}
	rows, err := r.conn.QueryContext(ctx,
		"SELECT item_id, tag FROM item_tags WHERE namespace = ? AND item_id IN ("+placeholders(len(ids))+
			") ORDER BY item_id, position",
		params...,
	)
	if err != nil {
		return nil, &db.Error{Op: db.OpSelect, Err: err}
	}
	defer rows.Close()
	for rows.Next() {
		var id, tag string
		if err := rows.Scan(&id, &tag); err != nil {
			return nil, &db.Error{Op: db.OpSelect, Err: err}
		}
		out[id] = append(out[id], tag)
	}
	if err := rows.Err(); err != nil {
		return nil, &db.Error{Op: db.OpSelect, Err: err}
	}
	return out, nil
}

// Upsert stores an item in ns, replacing its tags. Returns true if it was created.
func (r *Repo) Upsert(ctx context.Context, ns string, it domcat.Item) (created bool, err error) {
	tx, err := r.conn.BeginTx(ctx, nil)
	if err != nil {
		return false, &db.Error{Op: db.OpUpsert, Err: err}
	}
	defer func() {
		if err != nil {
			err = errors.Join(err, tx.Rollback())
		}
	}()

	var n int
	if err := tx.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM items WHERE namespace = ? AND id = ?", ns, it.ID(),
	).Scan(&n); err != nil {
		return false, &db.Error{Op: db.OpUpsert, Err: err}
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO items (namespace, id, title, description, level, language, title_lc, description_lc)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (namespace, id) DO UPDATE SET
			title = excluded.title,
			description = excluded.description,
			level = excluded.level,
			language = excluded.language,
			title_lc = excluded.title_lc,
			description_lc = excluded.description_lc`,
		ns, it.ID(), it.Title(), it.Description(), it.Level(), it.Language(),
		domain.Lower(it.Title()), domain.Lower(it.Description()),
	); err != nil {
		return false, &db.Error{Op: db.OpUpsert, Err: err}
	}

	if _, err := tx.ExecContext(ctx,
		"DELETE FROM item_tags WHERE namespace = ? AND item_id = ?", ns, it.ID(),
	); err != nil {
		return false, &db.Error{Op: db.OpUpsert, Err: err}
	}
	for i, tag := range it.Tags() {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO item_tags (namespace, item_id, position, tag) VALUES (?, ?, ?, ?)",
			ns, it.ID(), i, tag,
		); err != nil {
			return false, &db.Error{Op: db.OpUpsert, Err: err}
		}
	}

	if err := tx.Commit(); err != nil {
		return false, &db.Error{Op: db.OpUpsert, Err: err}
	}
	return n == 0, nil
}

// Get returns an item by id.
func (r *Repo) Get(ctx context.Context, ns, id string) (domcat.Item, error) {
	var title, description, level, language string
	err := r.conn.QueryRowContext(ctx,
		"SELECT title, description, level, language FROM items WHERE namespace = ? AND id = ?", ns, id,
	).Scan(&title, &description, &level, &language)
	if errors.Is(err, sql.ErrNoRows) {
		return domcat.Item{}, domain.ErrNotFound
	}
	if err != nil {
		return domcat.Item{}, &db.Error{Op: db.OpSelect, Err: err}
	}
	tags, err := r.tags(ctx, ns, []string{id})
	if err != nil {
		return domcat.Item{}, err
	}
	return domcat.Reconstruct(id, title, description, level, language, tags[id]), nil
}

// Delete removes an item and its tags.
func (r *Repo) Delete(ctx context.Context, ns, id string) (err error) {
	tx, err := r.conn.BeginTx(ctx, nil)
	if err != nil {
		return &db.Error{Op: db.OpDelete, Err: err}
	}
	defer func() {
		if err != nil {
			err = errors.Join(err, tx.Rollback())
		}
	}()

	if _, err := tx.ExecContext(ctx,
		"DELETE FROM item_tags WHERE namespace = ? AND item_id = ?", ns, id,
	); err != nil {
		return &db.Error{Op: db.OpDelete, Err: err}
	}
	res, err := tx.ExecContext(ctx, "DELETE FROM items WHERE namespace = ? AND id = ?", ns, id)
	if err != nil {
		return &db.Error{Op: db.OpDelete, Err: err}
	}
	n, err := res.RowsAffected()
	if err != nil {
		return &db.Error{Op: db.OpDelete, Err: err}
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	if err := tx.Commit(); err != nil {
		return &db.Error{Op: db.OpDelete, Err: err}
	}
	return nil
}
