package dialect

import "fmt"

// Get returns the Dialect implementation for the named target engine.
// The variant is closed: anything but postgres or mysql is an error.
func Get(name string) (Dialect, error) {
	switch name {
	case "postgres":
		return &PostgresDialect{}, nil
	case "mysql":
		return &MysqlDialect{}, nil
	default:
		return nil, fmt.Errorf("unknown target database type: %s", name)
	}
}

// Ensure interface implementation
var _ Dialect = (*PostgresDialect)(nil)
var _ Dialect = (*MysqlDialect)(nil)
