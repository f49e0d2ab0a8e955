// Package source reads and writes the observations and geography relations of profile queries in
// ClickHouse or Postgres.
package source

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/invertedv/profile"
)

// All code interacting with a database is here

var (
	//go:embed skeletons/clickhouse/createObservations.txt
	chCreateObs string
	//go:embed skeletons/postgres/createObservations.txt
	pgCreateObs string

	//go:embed skeletons/clickhouse/createRelations.txt
	chCreateRel string
	//go:embed skeletons/postgres/createRelations.txt
	pgCreateRel string

	//go:embed skeletons/clickhouse/dropIf.txt
	chDropIf string
	//go:embed skeletons/postgres/dropIf.txt
	pgDropIf string

	//go:embed skeletons/clickhouse/exists.txt
	chExists string
	//go:embed skeletons/postgres/exists.txt
	pgExists string

	//go:embed skeletons/clickhouse/observations.txt
	chObservations string
	//go:embed skeletons/postgres/observations.txt
	pgObservations string

	//go:embed skeletons/clickhouse/relations.txt
	chRelations string
	//go:embed skeletons/postgres/relations.txt
	pgRelations string
)

const (
	ch = "clickhouse"
	pg = "postgres"
)

// Dialect runs the profile queries against one database.
type Dialect struct {
	db      *sql.DB
	dialect string

	createObs    string
	createRel    string
	dropIf       string
	exists       string
	observations string
	relations    string

	bufSize int // in MB

	logger *slog.Logger
}

// NewDialect returns the Dialect for dialect ("clickhouse" or "postgres") over db.
func NewDialect(dialect string, db *sql.DB) (*Dialect, error) {
	dialect = strings.ToLower(dialect)

	d := &Dialect{db: db, dialect: dialect, bufSize: 1, logger: slog.Default()}

	switch d.dialect {
	case ch:
		d.createObs, d.createRel, d.dropIf, d.exists = chCreateObs, chCreateRel, chDropIf, chExists
		d.observations, d.relations = chObservations, chRelations
	case pg:
		d.createObs, d.createRel, d.dropIf, d.exists = pgCreateObs, pgCreateRel, pgDropIf, pgExists
		d.observations, d.relations = pgObservations, pgRelations
	default:
		return nil, fmt.Errorf("no skeletons for database %s", dialect)
	}

	return d, nil
}

// ***************** Methods *****************

func (d *Dialect) BufSize() int {
	return d.bufSize
}

func (d *Dialect) Close() error {
	return d.db.Close()
}

func (d *Dialect) DB() *sql.DB {
	return d.db
}

func (d *Dialect) DialectName() string {
	return d.dialect
}

// SetBufSize sets the size of the insert buffer in MB. 0 writes everything in one statement.
func (d *Dialect) SetBufSize(mb int) {
	d.bufSize = mb
}

func (d *Dialect) SetLogger(l *slog.Logger) {
	d.logger = l
}

// CreateTables creates the observation and relation tables. Existing tables are dropped if overwrite is
// true and left alone otherwise.
func (d *Dialect) CreateTables(ctx context.Context, obsTable, relTable string, overwrite bool) error {
	for _, x := range [][2]string{{obsTable, d.createObs}, {relTable, d.createRel}} {
		var (
			exists bool
			e      error
		)
		if exists, e = d.Exists(ctx, x[0]); e != nil {
			return e
		}

		if exists && !overwrite {
			continue
		}

		if e := d.DropTable(ctx, x[0]); e != nil {
			return e
		}

		if _, e := d.db.ExecContext(ctx, strings.ReplaceAll(x[1], "?TableName", x[0])); e != nil {
			return fmt.Errorf("creating %s: %w", x[0], e)
		}
	}

	return nil
}

func (d *Dialect) DropTable(ctx context.Context, tableName string) error {
	qry := strings.ReplaceAll(d.dropIf, "?TableName", tableName)
	_, e := d.db.ExecContext(ctx, qry)

	return e
}

func (d *Dialect) Exists(ctx context.Context, tableName string) (bool, error) {
	qry := strings.ReplaceAll(d.exists, "?TableName", tableName)

	var exist any
	if e := d.db.QueryRowContext(ctx, qry).Scan(&exist); e != nil {
		return false, e
	}

	switch x := exist.(type) {
	case bool:
		return x, nil
	case uint8:
		return x == 1, nil
	case int64:
		return x == 1, nil
	}

	return false, fmt.Errorf("unexpected result %v of %T checking table %s", exist, exist, tableName)
}

// Observations reads the estimates and errors of tables for geoids from tableName. SQL NULLs stay null.
func (d *Dialect) Observations(ctx context.Context, tableName string, tables, geoids []string) (profile.GeoData, error) {
	gd := make(profile.GeoData)
	if len(tables) == 0 || len(geoids) == 0 {
		return gd, nil
	}

	qry := strings.ReplaceAll(d.observations, "?TableName", tableName)
	qry = strings.ReplaceAll(qry, "?Tables", d.list(tables))
	qry = strings.ReplaceAll(qry, "?GeoIDs", d.list(geoids))

	start := time.Now()

	var (
		rows *sql.Rows
		e    error
	)
	if rows, e = d.db.QueryContext(ctx, qry); e != nil {
		return nil, fmt.Errorf("reading observations: %w", e)
	}
	defer func() { _ = rows.Close() }()

	n := 0
	for rows.Next() {
		var (
			geoid, tableID, variable string
			est, moe                 sql.NullFloat64
		)

		if ex := rows.Scan(&geoid, &tableID, &variable, &est, &moe); ex != nil {
			return nil, ex
		}

		gd.Set(geoid, tableID, variable, nullable(est), nullable(moe))
		n++
	}

	if e := rows.Err(); e != nil {
		return nil, e
	}

	d.logger.Debug("read observations",
		slog.String("dialect", d.dialect),
		slog.Int("rows", n),
		slog.Duration("elapsed", time.Since(start)))

	return gd, nil
}

// Relations reads the ordered relations of geoid from tableName.
func (d *Dialect) Relations(ctx context.Context, tableName, geoid string) ([]profile.GeographyRelation, error) {
	qry := strings.ReplaceAll(d.relations, "?TableName", tableName)
	qry = strings.ReplaceAll(qry, "?GeoID", d.quote(geoid))

	var (
		rows *sql.Rows
		e    error
	)
	if rows, e = d.db.QueryContext(ctx, qry); e != nil {
		return nil, fmt.Errorf("reading relations: %w", e)
	}
	defer func() { _ = rows.Close() }()

	var rels []profile.GeographyRelation
	for rows.Next() {
		var r profile.GeographyRelation
		if ex := rows.Scan(&r.GeoID, &r.Relation, &r.SumLevel, &r.DisplayName); ex != nil {
			return nil, ex
		}

		rels = append(rels, r)
	}

	return rels, rows.Err()
}

// SaveObservations inserts every observation in data into tableName.
func (d *Dialect) SaveObservations(ctx context.Context, tableName string, data profile.GeoData) error {
	var rows [][]string
	for geoid, tables := range data {
		for tableID, td := range tables {
			vars := make(map[string]bool)
			for v := range td.Estimate {
				vars[v] = true
			}

			for v := range td.Error {
				vars[v] = true
			}

			for v := range vars {
				rows = append(rows, []string{d.quote(geoid), d.quote(tableID), d.quote(v),
					d.number(td.Estimate[v]), d.number(td.Error[v])})
			}
		}
	}

	return d.insert(ctx, tableName, "geoid, table_id, variable, estimate, error", rows)
}

// SaveRelations inserts the relations of geoid into tableName, keeping their order.
func (d *Dialect) SaveRelations(ctx context.Context, tableName, geoid string, relations []profile.GeographyRelation) error {
	var rows [][]string
	for ind, r := range relations {
		rows = append(rows, []string{d.quote(geoid), strconv.Itoa(ind), d.quote(r.Relation), d.quote(r.GeoID),
			d.quote(r.SumLevel), d.quote(r.DisplayName)})
	}

	return d.insert(ctx, tableName, "geoid, ord, relation, related_geoid, sumlevel, display_name", rows)
}

// ***************** Unexported *****************

// insert writes rows in statements of at most bufSize MB
func (d *Dialect) insert(ctx context.Context, tableName, fields string, rows [][]string) error {
	const (
		bSep   = byte(',')
		bOpen  = byte('(')
		bClose = byte(')')
	)

	var buffer []byte
	bsize := d.bufSize * 1024 * 1024

	flush := func() error {
		qry := fmt.Sprintf("INSERT INTO %s (%s) VALUES ", tableName, fields) + string(buffer)
		buffer = nil
		_, e := d.db.ExecContext(ctx, qry)

		return e
	}

	for _, row := range rows {
		if buffer != nil {
			buffer = append(buffer, bSep)
		}

		buffer = append(buffer, bOpen)
		buffer = append(buffer, []byte(strings.Join(row, ","))...)
		buffer = append(buffer, bClose)

		if bsize > 0 && len(buffer) >= bsize {
			if e := flush(); e != nil {
				return e
			}
		}
	}

	if buffer != nil {
		return flush()
	}

	return nil
}

func (d *Dialect) quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

func (d *Dialect) list(vals []string) string {
	q := make([]string, len(vals))
	for ind, v := range vals {
		q[ind] = d.quote(v)
	}

	return strings.Join(q, ",")
}

func (d *Dialect) number(x *float64) string {
	if x == nil || math.IsNaN(*x) || math.IsInf(*x, 0) {
		return "NULL"
	}

	return strconv.FormatFloat(*x, 'g', -1, 64)
}

func nullable(x sql.NullFloat64) *float64 {
	if !x.Valid {
		return nil
	}

	return profile.Float(x.Float64)
}
