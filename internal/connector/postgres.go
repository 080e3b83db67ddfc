package connector

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/sqlflow/sqlflow/pkg/errors"
)

// PostgresSource reads rows from a Postgres table or query, per
// SOURCE ... TYPE POSTGRES PARAMS {"dsn":..., "query":...}.
type PostgresSource struct {
	db    *sql.DB
	query string
}

// NewPostgresSource returns an unopened Postgres source.
func NewPostgresSource() *PostgresSource { return &PostgresSource{} }

func (s *PostgresSource) Type() string { return "POSTGRES" }

func (s *PostgresSource) Open(ctx context.Context, params map[string]any) error {
	dsn, ok := params["dsn"].(string)
	if !ok || dsn == "" {
		return fmt.Errorf("connector postgres: params.dsn is required")
	}
	query, ok := params["query"].(string)
	if !ok || query == "" {
		if table, ok := params["table"].(string); ok && table != "" {
			query = "SELECT * FROM " + table
		} else {
			return fmt.Errorf("connector postgres: params.query or params.table is required")
		}
	}

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return errors.NewConnectorError("", "POSTGRES", false, fmt.Errorf("open: %w", err))
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return errors.NewConnectorError("", "POSTGRES", true, fmt.Errorf("ping: %w", err))
	}

	s.db = db
	s.query = query
	return nil
}

func (s *PostgresSource) Rows(ctx context.Context, fn func(chunk []Row) error) error {
	rows, err := s.db.QueryContext(ctx, s.query)
	if err != nil {
		return errors.NewConnectorError("", "POSTGRES", true, err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return errors.NewConnectorError("", "POSTGRES", false, err)
	}

	chunk := make([]Row, 0, defaultChunkSize)
	for rows.Next() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return errors.NewConnectorError("", "POSTGRES", false, err)
		}

		row := make(Row, len(columns))
		for i, c := range columns {
			row[c] = values[i]
		}
		chunk = append(chunk, row)

		if len(chunk) >= defaultChunkSize {
			if err := fn(chunk); err != nil {
				return err
			}
			chunk = make([]Row, 0, defaultChunkSize)
		}
	}
	if err := rows.Err(); err != nil {
		return errors.NewConnectorError("", "POSTGRES", true, err)
	}
	if len(chunk) > 0 {
		if err := fn(chunk); err != nil {
			return err
		}
	}
	return nil
}

func (s *PostgresSource) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}
