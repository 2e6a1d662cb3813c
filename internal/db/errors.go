package db

import "errors"

var (
	// ErrKeyNotFound is an embedding cache miss or a listing hash with no vector.
	ErrKeyNotFound = errors.New("db: key not found")
	// ErrIndexNotFound means the listing vector index has not been created yet.
	// Searches treat it as an empty index.
	ErrIndexNotFound = errors.New("db: index not found")
	// ErrIndexExists is returned when another replica created the index first.
	ErrIndexExists = errors.New("db: index already exists")
)

// Op constants name the Valkey command that failed, for logs and traces.
const (
	OpCreateIndex = "FT.CREATE"
	OpDropIndex   = "FT.DROPINDEX"
	OpIndexInfo   = "FT.INFO"
	OpSearch      = "FT.SEARCH"
	OpDel         = "DEL"
	OpHGetAll     = "HGETALL"
	OpHSet        = "HSET"
	OpExists      = "EXISTS"
	OpGet         = "GET"
	OpSet         = "SET"
	OpXAdd        = "XADD"
)

// Error carries the failed command. Callers match the cause with errors.Is;
// the vector index reports anything else as domain.ErrProviderError.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string { return e.Op + ": " + e.Err.Error() }
func (e *Error) Unwrap() error { return e.Err }
