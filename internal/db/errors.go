package db

import "errors"

// Sentinel errors for database operations.
var (
	ErrKeyNotFound      = errors.New("db: key not found")
	ErrIndexExists      = errors.New("db: index already exists")
	ErrTextNotSupported = errors.New("db: engine does not index TEXT fields")
)

// Op constants map to Redis/Valkey command names (or SQL statements) for
// error context.
const (
	OpCreateIndex = "FT.CREATE"
	OpIndexInfo   = "FT.INFO"
	OpSearch      = "FT.SEARCH"
	OpDel         = "DEL"
	OpHGetAll     = "HGETALL"
	OpHSet        = "HSET"
	OpExists      = "EXISTS"
	OpSelect      = "SELECT"
	OpUpsert      = "UPSERT"
	OpDelete      = "DELETE"
	OpMigrate     = "MIGRATE"
)

// Error wraps an underlying error with the operation name for diagnostics.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string { return e.Op + ": " + e.Err.Error() }
func (e *Error) Unwrap() error { return e.Err }
