package sqlite

// Config holds SQLite repository configuration derived from storage.Config.
type Config struct {
	// DSN is a SQLite connection string or file path, e.g.:
	//   "file:templates.db?_pragma=busy_timeout(5000)"
	//   ":memory:"
	DSN string

	// MaxOpenConns caps the pool. SQLite serializes writers, and every
	// connection to ":memory:" opens a separate database, so it defaults
	// to 1.
	MaxOpenConns int
}
