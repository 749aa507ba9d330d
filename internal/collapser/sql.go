package collapser

import (
	"context"
	"database/sql"
	"strings"

	apperrors "github.com/Adithya-Monish-Kumar-K/wordfreq/pkg/errors"
)

// Querier is satisfied by *sql.DB and *sql.Tx.
type Querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// LoadSQL builds a Table from the synonyms table:
//
//	CREATE TABLE synonyms (
//	    synonym   TEXT PRIMARY KEY,
//	    canonical TEXT NOT NULL
//	);
func LoadSQL(ctx context.Context, db Querier) (*Table, error) {
	rows, err := db.QueryContext(ctx, `SELECT synonym, canonical FROM synonyms ORDER BY synonym`)
	if err != nil {
		return nil, apperrors.IO("querying synonyms", err)
	}
	defer rows.Close()

	t := New()
	for rows.Next() {
		var syn, canonical string
		if err := rows.Scan(&syn, &canonical); err != nil {
			return nil, apperrors.IO("scanning synonym row", err)
		}
		syn = strings.TrimSpace(syn)
		canonical = strings.TrimSpace(canonical)
		if syn == "" || canonical == "" {
			return nil, apperrors.Formatf("synonyms row %q;%q: empty field", syn, canonical)
		}
		t.Add(canonical, syn)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.IO("iterating synonym rows", err)
	}
	return t, nil
}

// Execer is satisfied by *sql.DB and *sql.Tx.
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// SaveSQL replaces the contents of the synonyms table with the table's
// bindings. Run it inside a transaction so readers never see a partial set.
func (t *Table) SaveSQL(ctx context.Context, tx Execer) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM synonyms`); err != nil {
		return apperrors.IO("clearing synonyms", err)
	}
	for _, b := range t.Bindings() {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO synonyms (synonym, canonical) VALUES ($1, $2)`,
			b.Synonym, b.Canonical,
		); err != nil {
			return apperrors.IO("inserting synonym "+b.Synonym, err)
		}
	}
	return nil
}
