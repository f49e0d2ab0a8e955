package source

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	_ "github.com/jackc/pgx/stdlib"
)

// Connect opens and pings a database and returns its Dialect. ClickHouse is reached on port 9000 with LZ4
// compression, Postgres on port 5432 through the pgx driver. dbName defaults to "default" for ClickHouse.
func Connect(dialect, host, user, password, dbName string) (*Dialect, error) {
	var (
		db *sql.DB
		e  error
	)

	switch strings.ToLower(dialect) {
	case ch:
		if dbName == "" {
			dbName = "default"
		}

		db = clickhouse.OpenDB(
			&clickhouse.Options{
				Addr: []string{host + ":9000"},
				Auth: clickhouse.Auth{
					Database: dbName,
					Username: user,
					Password: password,
				},
				DialTimeout: 300 * time.Second,
				Compression: &clickhouse.Compression{
					Method: clickhouse.CompressionLZ4,
				},
			})
	case pg:
		connectionStr := fmt.Sprintf("postgres://%s:%s@%s:5432/%s", user, password, host, dbName)
		if db, e = sql.Open("pgx", connectionStr); e != nil {
			return nil, e
		}
	default:
		return nil, fmt.Errorf("unsupported database %s", dialect)
	}

	if e = db.Ping(); e != nil {
		_ = db.Close()
		return nil, fmt.Errorf("connecting to %s at %s: %w", dialect, host, e)
	}

	return NewDialect(dialect, db)
}
