// store/errors.go
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mattn/go-sqlite3"

	"github.com/ViniZap4/notes-server/domain"
)

// MySQL server error numbers that indicate bad input rather than a broken store.
const (
	mysqlDupEntry        = 1062
	mysqlBadNull         = 1048
	mysqlNoReferencedRow = 1452
	mysqlDataTooLong     = 1406
	mysqlTruncatedValue  = 1292
)

// mapErr translates driver errors into domain errors so callers can use
// errors.Is without knowing which database is behind the Store.
func mapErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrNotFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case pgerrcode.IsIntegrityConstraintViolation(pgErr.Code),
			pgerrcode.IsDataException(pgErr.Code):
			return fmt.Errorf("%w: %w", domain.ErrInvalidInput, err)
		case pgErr.Code == pgerrcode.QueryCanceled:
			return fmt.Errorf("%w: %w", context.Canceled, err)
		}
		return err
	}

	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		switch myErr.Number {
		case mysqlDupEntry, mysqlBadNull, mysqlNoReferencedRow, mysqlDataTooLong, mysqlTruncatedValue:
			return fmt.Errorf("%w: %w", domain.ErrInvalidInput, err)
		}
		return err
	}

	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) && liteErr.Code == sqlite3.ErrConstraint {
		return fmt.Errorf("%w: %w", domain.ErrInvalidInput, err)
	}

	return err
}

func notFound(what string, id int64) error {
	return fmt.Errorf("%s %d: %w", what, id, domain.ErrNotFound)
}
