package sqlstore

import (
	"fmt"
	"strconv"
	"strings"
)

// Dialect captures the differences between the supported SQL backends.
type Dialect struct {
	// Driver is the database/sql driver name.
	Driver string
	// Serial is the column definition of an auto-incremented primary key.
	Serial string
	// Numbered placeholders ($1, $2...) instead of "?".
	Numbered bool
}

var (
	SQLite   = Dialect{Driver: "sqlite", Serial: "INTEGER PRIMARY KEY AUTOINCREMENT"}
	Postgres = Dialect{Driver: "pgx", Serial: "BIGSERIAL PRIMARY KEY", Numbered: true}
)

// DialectFor returns the dialect of a configured backend name.
func DialectFor(backend string) (Dialect, error) {
	switch strings.ToLower(backend) {
	case "sqlite", "sqlite3":
		return SQLite, nil
	case "postgres", "postgresql", "pgx":
		return Postgres, nil
	default:
		return Dialect{}, fmt.Errorf("unsupported sql backend %q", backend)
	}
}

// Rebind rewrites "?" placeholders for the dialect.
func (d Dialect) Rebind(query string) string {
	if !d.Numbered {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (d Dialect) schema() []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS vehicles (
            id BIGINT PRIMARY KEY,
            registration_number TEXT NOT NULL,
            brand TEXT NOT NULL DEFAULT '',
            model TEXT NOT NULL DEFAULT '',
            year INTEGER NOT NULL DEFAULT 0,
            vehicle_type TEXT NOT NULL DEFAULT ''
        )`,
		`CREATE TABLE IF NOT EXISTS routes (
            id BIGINT PRIMARY KEY,
            vehicle_id BIGINT NOT NULL DEFAULT 0,
            start_location TEXT NOT NULL DEFAULT '',
            end_location TEXT NOT NULL DEFAULT '',
            start_lat DOUBLE PRECISION NOT NULL DEFAULT 0,
            start_lon DOUBLE PRECISION NOT NULL DEFAULT 0,
            end_lat DOUBLE PRECISION NOT NULL DEFAULT 0,
            end_lon DOUBLE PRECISION NOT NULL DEFAULT 0,
            distance DOUBLE PRECISION NOT NULL DEFAULT 0,
            estimated_time DOUBLE PRECISION NOT NULL DEFAULT 0
        )`,
		`CREATE TABLE IF NOT EXISTS fuel_records (
            id ` + d.Serial + `,
            vehicle_id BIGINT NOT NULL,
            fuel_type TEXT NOT NULL DEFAULT '',
            date_ms BIGINT NOT NULL,
            amount DOUBLE PRECISION NOT NULL DEFAULT 0,
            cost DOUBLE PRECISION NOT NULL DEFAULT 0,
            mileage DOUBLE PRECISION NOT NULL DEFAULT 0
        )`,
		`CREATE INDEX IF NOT EXISTS idx_fuel_vehicle_date ON fuel_records(vehicle_id, date_ms)`,
		`CREATE TABLE IF NOT EXISTS maintenance (
            id ` + d.Serial + `,
            vehicle_id BIGINT NOT NULL,
            maintenance_type TEXT NOT NULL DEFAULT '',
            description TEXT NOT NULL DEFAULT '',
            date_ms BIGINT NOT NULL,
            cost DOUBLE PRECISION NOT NULL DEFAULT 0
        )`,
		`CREATE INDEX IF NOT EXISTS idx_maintenance_vehicle_date ON maintenance(vehicle_id, date_ms)`,
		`CREATE TABLE IF NOT EXISTS tasks (
            id ` + d.Serial + `,
            vehicle_id BIGINT NOT NULL,
            route_id BIGINT NOT NULL,
            start_ms BIGINT NOT NULL
        )`,
		`CREATE TABLE IF NOT EXISTS fuel_consumption (
            id ` + d.Serial + `,
            vehicle_id BIGINT NOT NULL,
            ts_ms BIGINT NOT NULL,
            consumption_rate DOUBLE PRECISION NOT NULL,
            current_level DOUBLE PRECISION NOT NULL DEFAULT 0
        )`,
		`CREATE TABLE IF NOT EXISTS tracking_data (
            id ` + d.Serial + `,
            vehicle_id BIGINT NOT NULL,
            route_id BIGINT NOT NULL,
            seq INTEGER NOT NULL,
            latitude DOUBLE PRECISION NOT NULL,
            longitude DOUBLE PRECISION NOT NULL,
            speed DOUBLE PRECISION,
            fuel_level DOUBLE PRECISION,
            ts_ms BIGINT NOT NULL
        )`,
		`CREATE INDEX IF NOT EXISTS idx_tracking_pair ON tracking_data(vehicle_id, route_id, seq)`,
	}
}
