package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores and clients return these
// (optionally wrapped) so services can branch on them without knowing which
// backend produced them.
//
// - ErrNotFound: key or entry does not exist (cache miss)
// - ErrUnavailable: dependency temporarily unavailable
// - ErrInvalidState: value present but unusable (corrupt cache entry)
var (
	ErrNotFound     = errors.New("not found")
	ErrUnavailable  = errors.New("unavailable")
	ErrInvalidState = errors.New("invalid state")
)
