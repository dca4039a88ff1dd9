package store

import (
	"context"
	"database/sql"
	"strings"

	"github.com/anvylhq/anvyl/internal/anvylerrors"
)

func (s *Store) queryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return s.db.QueryRowContext(ctx, query, args...)
}

// isUniqueViolation reports whether err came from a UNIQUE/PRIMARY KEY
// constraint failure. go-sqlite3 reports these as *sqlite3.Error with a
// message containing "UNIQUE constraint failed"; matching on the message
// avoids importing the driver's internal error type here.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func requireRowAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return anvylerrors.Wrap(anvylerrors.Internal, "rows affected", err)
	}
	if n == 0 {
		return anvylerrors.New(anvylerrors.NotFound, "no matching row")
	}
	return nil
}
