package pgc

import "errors"

// Sentinel errors: a handful of well-known values plus an Op-wrapping
// type so callers can both errors.Is() a sentinel and read the failing
// operation's name.
var (
	ErrPageNotFound     = errors.New("pgc: page not found")
	ErrInvalidEntry     = errors.New("pgc: invalid page entry")
	ErrAlreadyDeleted   = errors.New("pgc: page is already tagged for deletion")
	ErrForbiddenTransition = errors.New("pgc: forbidden state transition")
	ErrCacheHasReferencedPages = errors.New("pgc: cache destroyed with pages still referenced")
	ErrSaveDirtyFailed  = errors.New("pgc: save_dirty callback failed")
)

// CacheError wraps a sentinel with the operation that produced it.
type CacheError struct {
	Op  string
	Err error
}

func (e *CacheError) Error() string {
	if e.Err == nil {
		return e.Op + ": <nil>"
	}
	return e.Op + ": " + e.Err.Error()
}

func (e *CacheError) Unwrap() error { return e.Err }

func newError(op string, err error) error {
	return &CacheError{Op: op, Err: err}
}

func IsNotFound(err error) bool   { return errors.Is(err, ErrPageNotFound) }
func IsForbidden(err error) bool  { return errors.Is(err, ErrForbiddenTransition) }
func IsInvalidEntry(err error) bool { return errors.Is(err, ErrInvalidEntry) }
