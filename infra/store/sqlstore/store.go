// Package sqlstore implements the persistence collaborator on database/sql.
// SQLite (modernc.org/sqlite) and PostgreSQL (pgx stdlib) are supported.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"github.com/kilianp07/fleetops/core/model"
	"github.com/kilianp07/fleetops/core/store"
)

// Store persists fleet records and tracks in a SQL database.
type Store struct {
	db      *sql.DB
	dialect Dialect
}

var _ store.Store = (*Store)(nil)

// Open opens or creates the database and ensures the schema.
func Open(ctx context.Context, d Dialect, dsn string) (*Store, error) {
	db, err := sql.Open(d.Driver, dsn)
	if err != nil {
		return nil, err
	}
	if d.Driver == SQLite.Driver {
		// single writer; also keeps in-memory databases alive
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
		db.SetConnMaxLifetime(0)
	}
	s := &Store{db: db, dialect: d}
	for _, stmt := range d.schema() {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			if cerr := db.Close(); cerr != nil {
				return nil, fmt.Errorf("close db: %v (schema err: %w)", cerr, err)
			}
			return nil, fmt.Errorf("schema: %w", err)
		}
	}
	return s, nil
}

// OpenSQLite is a shorthand for Open with the SQLite dialect.
func OpenSQLite(ctx context.Context, path string) (*Store, error) {
	return Open(ctx, SQLite, path)
}

// Close closes the underlying database.
func (s *Store) Close() error { return s.db.Close() }

func ms(t time.Time) int64 { return t.UnixMilli() }

func fromMS(v int64) time.Time { return time.UnixMilli(v).UTC() }

// rangeClause appends the vehicle and date filters of q on column col.
func rangeClause(q store.Query, col string) (string, []any) {
	var (
		where string
		args  []any
	)
	if !q.AllVehicles {
		where += ` AND vehicle_id = ?`
		args = append(args, q.VehicleID)
	}
	if !q.Start.IsZero() {
		where += ` AND ` + col + ` >= ?`
		args = append(args, ms(q.Start))
	}
	if !q.End.IsZero() {
		where += ` AND ` + col + ` <= ?`
		args = append(args, ms(q.End))
	}
	return where, args
}

func (s *Store) query(ctx context.Context, q string, args ...any) (*sql.Rows, error) {
	return s.db.QueryContext(ctx, s.dialect.Rebind(q), args...)
}

func (s *Store) Vehicles(ctx context.Context) ([]model.Vehicle, error) {
	rows, err := s.query(ctx, `SELECT id, registration_number, brand, model, year, vehicle_type
        FROM vehicles ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var res []model.Vehicle
	for rows.Next() {
		var v model.Vehicle
		if err := rows.Scan(&v.ID, &v.RegistrationNumber, &v.Brand, &v.Model, &v.Year, &v.Type); err != nil {
			return nil, err
		}
		res = append(res, v)
	}
	return res, rows.Err()
}

func (s *Store) Vehicle(ctx context.Context, id int64) (model.Vehicle, error) {
	var v model.Vehicle
	err := s.db.QueryRowContext(ctx, s.dialect.Rebind(`SELECT id, registration_number, brand, model, year, vehicle_type
        FROM vehicles WHERE id = ?`), id).
		Scan(&v.ID, &v.RegistrationNumber, &v.Brand, &v.Model, &v.Year, &v.Type)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Vehicle{}, fmt.Errorf("vehicle %d: %w", id, store.ErrNotFound)
	}
	return v, err
}

const routeColumns = `id, vehicle_id, start_location, end_location, start_lat, start_lon,
        end_lat, end_lon, distance, estimated_time`

type scanner interface {
	Scan(dest ...any) error
}

func scanRoute(sc scanner) (model.Route, error) {
	var r model.Route
	err := sc.Scan(&r.ID, &r.VehicleID, &r.StartLocation, &r.EndLocation,
		&r.Start.Lat, &r.Start.Lon, &r.End.Lat, &r.End.Lon, &r.Distance, &r.EstimatedTime)
	return r, err
}

func (s *Store) Routes(ctx context.Context) ([]model.Route, error) {
	rows, err := s.query(ctx, `SELECT `+routeColumns+` FROM routes ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var res []model.Route
	for rows.Next() {
		r, err := scanRoute(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, r)
	}
	return res, rows.Err()
}

func (s *Store) Route(ctx context.Context, id int64) (model.Route, error) {
	row := s.db.QueryRowContext(ctx, s.dialect.Rebind(`SELECT `+routeColumns+` FROM routes WHERE id = ?`), id)
	r, err := scanRoute(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Route{}, fmt.Errorf("route %d: %w", id, store.ErrNotFound)
	}
	return r, err
}

func (s *Store) FuelRecords(ctx context.Context, q store.Query) ([]model.FuelRecord, error) {
	where, args := rangeClause(q, "date_ms")
	rows, err := s.query(ctx, `SELECT id, vehicle_id, fuel_type, date_ms, amount, cost, mileage
        FROM fuel_records WHERE 1=1`+where+` ORDER BY date_ms, id`, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var res []model.FuelRecord
	for rows.Next() {
		var (
			r  model.FuelRecord
			ts int64
		)
		if err := rows.Scan(&r.ID, &r.VehicleID, &r.FuelType, &ts, &r.Amount, &r.Cost, &r.Mileage); err != nil {
			return nil, err
		}
		r.Date = fromMS(ts)
		res = append(res, r)
	}
	return res, rows.Err()
}

func (s *Store) MaintenanceRecords(ctx context.Context, q store.Query) ([]model.MaintenanceRecord, error) {
	where, args := rangeClause(q, "date_ms")
	rows, err := s.query(ctx, `SELECT id, vehicle_id, maintenance_type, description, date_ms, cost
        FROM maintenance WHERE 1=1`+where+` ORDER BY date_ms, id`, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var res []model.MaintenanceRecord
	for rows.Next() {
		var (
			r  model.MaintenanceRecord
			ts int64
		)
		if err := rows.Scan(&r.ID, &r.VehicleID, &r.Kind, &r.Description, &ts, &r.Cost); err != nil {
			return nil, err
		}
		r.Date = fromMS(ts)
		res = append(res, r)
	}
	return res, rows.Err()
}

func (s *Store) Tasks(ctx context.Context, q store.Query) ([]model.Task, error) {
	var (
		where string
		args  []any
	)
	if !q.AllVehicles {
		where += ` AND t.vehicle_id = ?`
		args = append(args, q.VehicleID)
	}
	if !q.Start.IsZero() {
		where += ` AND t.start_ms >= ?`
		args = append(args, ms(q.Start))
	}
	if !q.End.IsZero() {
		where += ` AND t.start_ms <= ?`
		args = append(args, ms(q.End))
	}
	rows, err := s.query(ctx, `SELECT t.id, t.vehicle_id, t.route_id, t.start_ms,
        r.id, r.vehicle_id, r.start_location, r.end_location, r.start_lat, r.start_lon,
        r.end_lat, r.end_lon, r.distance, r.estimated_time
        FROM tasks t JOIN routes r ON r.id = t.route_id
        WHERE 1=1`+where+` ORDER BY t.start_ms, t.id`, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var res []model.Task
	for rows.Next() {
		var (
			t  model.Task
			ts int64
			r  = &t.Route
		)
		if err := rows.Scan(&t.ID, &t.VehicleID, &t.RouteID, &ts,
			&r.ID, &r.VehicleID, &r.StartLocation, &r.EndLocation,
			&r.Start.Lat, &r.Start.Lon, &r.End.Lat, &r.End.Lon, &r.Distance, &r.EstimatedTime); err != nil {
			return nil, err
		}
		t.StartTime = fromMS(ts)
		res = append(res, t)
	}
	return res, rows.Err()
}

func (s *Store) ConsumptionSamples(ctx context.Context, q store.Query) ([]model.ConsumptionSample, error) {
	where, args := rangeClause(q, "ts_ms")
	rows, err := s.query(ctx, `SELECT vehicle_id, ts_ms, consumption_rate, current_level
        FROM fuel_consumption WHERE 1=1`+where+` ORDER BY ts_ms, id`, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var res []model.ConsumptionSample
	for rows.Next() {
		var (
			c  model.ConsumptionSample
			ts int64
		)
		if err := rows.Scan(&c.VehicleID, &ts, &c.ConsumptionRate, &c.CurrentLevel); err != nil {
			return nil, err
		}
		c.Timestamp = fromMS(ts)
		res = append(res, c)
	}
	return res, rows.Err()
}

func (s *Store) TrackPoints(ctx context.Context, key model.TrackKey) ([]model.TrackPoint, error) {
	rows, err := s.query(ctx, `SELECT seq, latitude, longitude, speed, fuel_level, ts_ms
        FROM tracking_data WHERE vehicle_id = ? AND route_id = ? ORDER BY seq`,
		key.VehicleID, key.RouteID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var res []model.TrackPoint
	for rows.Next() {
		var (
			p           = model.TrackPoint{VehicleID: key.VehicleID, RouteID: key.RouteID}
			speed, fuel sql.NullFloat64
			ts          int64
		)
		if err := rows.Scan(&p.Seq, &p.Lat, &p.Lon, &speed, &fuel, &ts); err != nil {
			return nil, err
		}
		if speed.Valid {
			p.Speed = &speed.Float64
		}
		if fuel.Valid {
			p.FuelLevel = &fuel.Float64
		}
		p.Timestamp = fromMS(ts)
		res = append(res, p)
	}
	return res, rows.Err()
}

func (s *Store) CountTrackPoints(ctx context.Context, key *model.TrackKey) (int, error) {
	var (
		n   int
		err error
	)
	if key == nil {
		err = s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM tracking_data`).Scan(&n)
	} else {
		err = s.db.QueryRowContext(ctx,
			s.dialect.Rebind(`SELECT COUNT(*) FROM tracking_data WHERE vehicle_id = ? AND route_id = ?`),
			key.VehicleID, key.RouteID).Scan(&n)
	}
	return n, err
}

func (s *Store) TrackKeys(ctx context.Context) ([]model.TrackKey, error) {
	rows, err := s.query(ctx, `SELECT DISTINCT vehicle_id, route_id FROM tracking_data
        ORDER BY vehicle_id, route_id`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var res []model.TrackKey
	for rows.Next() {
		var k model.TrackKey
		if err := rows.Scan(&k.VehicleID, &k.RouteID); err != nil {
			return nil, err
		}
		res = append(res, k)
	}
	return res, rows.Err()
}

// WithTx runs fn in a database transaction.
func (s *Store) WithTx(ctx context.Context, fn func(store.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	if err := fn(&sqlTx{tx: tx, dialect: s.dialect}); err != nil {
		if rerr := tx.Rollback(); rerr != nil {
			return fmt.Errorf("rollback: %v (cause: %w)", rerr, err)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

type sqlTx struct {
	tx      *sql.Tx
	dialect Dialect
}

func (t *sqlTx) DeleteTrack(ctx context.Context, key model.TrackKey) error {
	_, err := t.tx.ExecContext(ctx,
		t.dialect.Rebind(`DELETE FROM tracking_data WHERE vehicle_id = ? AND route_id = ?`),
		key.VehicleID, key.RouteID)
	return err
}

func (t *sqlTx) DeleteAllTracks(ctx context.Context) error {
	_, err := t.tx.ExecContext(ctx, `DELETE FROM tracking_data`)
	return err
}

func (t *sqlTx) InsertTrackPoints(ctx context.Context, pts []model.TrackPoint) error {
	stmt, err := t.tx.PrepareContext(ctx, t.dialect.Rebind(`INSERT INTO tracking_data
        (vehicle_id, route_id, seq, latitude, longitude, speed, fuel_level, ts_ms)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?)`))
	if err != nil {
		return err
	}
	defer func() { _ = stmt.Close() }()
	for _, p := range pts {
		if _, err := stmt.ExecContext(ctx, p.VehicleID, p.RouteID, p.Seq, p.Lat, p.Lon,
			nullable(p.Speed), nullable(p.FuelLevel), ms(p.Timestamp)); err != nil {
			return fmt.Errorf("insert point %s#%d: %w", p.Key(), p.Seq, err)
		}
	}
	return nil
}

func nullable(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

// bulk runs one prepared insert per row inside a transaction.
func (s *Store) bulk(ctx context.Context, query string, n int, args func(i int) []any) error {
	if n == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	stmt, err := tx.PrepareContext(ctx, s.dialect.Rebind(query))
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	for i := 0; i < n; i++ {
		if _, err := stmt.ExecContext(ctx, args(i)...); err != nil {
			_ = stmt.Close()
			_ = tx.Rollback()
			return err
		}
	}
	if err := stmt.Close(); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

func (s *Store) InsertVehicles(ctx context.Context, vs []model.Vehicle) error {
	return s.bulk(ctx, `INSERT INTO vehicles (id, registration_number, brand, model, year, vehicle_type)
        VALUES (?, ?, ?, ?, ?, ?)`, len(vs), func(i int) []any {
		v := vs[i]
		return []any{v.ID, v.RegistrationNumber, v.Brand, v.Model, v.Year, v.Type}
	})
}

func (s *Store) InsertRoutes(ctx context.Context, rs []model.Route) error {
	return s.bulk(ctx, `INSERT INTO routes (`+routeColumns+`)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, len(rs), func(i int) []any {
		r := rs[i]
		return []any{r.ID, r.VehicleID, r.StartLocation, r.EndLocation,
			r.Start.Lat, r.Start.Lon, r.End.Lat, r.End.Lon, r.Distance, r.EstimatedTime}
	})
}

func (s *Store) InsertFuelRecords(ctx context.Context, rs []model.FuelRecord) error {
	return s.bulk(ctx, `INSERT INTO fuel_records (vehicle_id, fuel_type, date_ms, amount, cost, mileage)
        VALUES (?, ?, ?, ?, ?, ?)`, len(rs), func(i int) []any {
		r := rs[i]
		return []any{r.VehicleID, r.FuelType, ms(r.Date), r.Amount, r.Cost, r.Mileage}
	})
}

func (s *Store) InsertMaintenanceRecords(ctx context.Context, rs []model.MaintenanceRecord) error {
	return s.bulk(ctx, `INSERT INTO maintenance (vehicle_id, maintenance_type, description, date_ms, cost)
        VALUES (?, ?, ?, ?, ?)`, len(rs), func(i int) []any {
		r := rs[i]
		return []any{r.VehicleID, r.Kind, r.Description, ms(r.Date), r.Cost}
	})
}

func (s *Store) InsertTasks(ctx context.Context, ts []model.Task) error {
	return s.bulk(ctx, `INSERT INTO tasks (vehicle_id, route_id, start_ms) VALUES (?, ?, ?)`,
		len(ts), func(i int) []any {
			t := ts[i]
			return []any{t.VehicleID, t.RouteID, ms(t.StartTime)}
		})
}

func (s *Store) InsertConsumptionSamples(ctx context.Context, ss []model.ConsumptionSample) error {
	return s.bulk(ctx, `INSERT INTO fuel_consumption (vehicle_id, ts_ms, consumption_rate, current_level)
        VALUES (?, ?, ?, ?)`, len(ss), func(i int) []any {
		c := ss[i]
		return []any{c.VehicleID, ms(c.Timestamp), c.ConsumptionRate, c.CurrentLevel}
	})
}
