package repo

import "errors"

// ErrDuplicateTarget is returned when a watchlist insert collides with an
// existing (owner, identifier) pair.
var ErrDuplicateTarget = errors.New("target already on watchlist")

// ErrNotFound is returned by updates and deletes that matched no row.
var ErrNotFound = errors.New("not found")
