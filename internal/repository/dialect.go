package repository

import (
	"fmt"
	"strconv"
	"strings"

	"user_management/internal/config"
)

// Dialect covers the differences between the supported SQL backends.
// Queries are written with '?' placeholders and rebound per dialect.
type Dialect struct {
	name      string
	numbered  bool // $1, $2, ... placeholders
	returning bool // generated ids come back via RETURNING, not LastInsertId
	// syncIDs moves the id generator past explicitly inserted ids. Empty when
	// the backend does that on its own.
	syncIDs string
}

var (
	MySQL    = Dialect{name: config.DriverMySQL}
	SQLite   = Dialect{name: config.DriverSQLite}
	Postgres = Dialect{
		name:      config.DriverPostgres,
		numbered:  true,
		returning: true,
		syncIDs:   `SELECT setval(pg_get_serial_sequence('users', 'id'), (SELECT MAX(id) FROM users))`,
	}
)

func DialectFor(driver string) (Dialect, error) {
	switch driver {
	case config.DriverMySQL:
		return MySQL, nil
	case config.DriverSQLite:
		return SQLite, nil
	case config.DriverPostgres:
		return Postgres, nil
	default:
		return Dialect{}, fmt.Errorf("no sql dialect for driver %q", driver)
	}
}

func (d Dialect) String() string { return d.name }

// Rebind rewrites '?' placeholders for dialects that number them.
func (d Dialect) Rebind(q string) string {
	if !d.numbered {
		return q
	}
	var b strings.Builder
	b.Grow(len(q) + 8)
	n := 0
	for _, r := range q {
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
