package contract

import (
	"errors"
	"fmt"
)

// Error kinds shared by every component. Callers test them with errors.Is.
var (
	ErrIO             = errors.New("io error")
	ErrParse          = errors.New("parse error")
	ErrConstraint     = errors.New("constraint violation")
	ErrConnectivity   = errors.New("connectivity error")
	ErrConfig         = errors.New("invalid configuration")
	ErrScanInProgress = errors.New("scan already in progress")
)

// Wrap tags err with an error kind and a message.
// The result matches both kind and err under errors.Is.
func Wrap(kind error, msg string, err error) error {
	if err == nil {
		return fmt.Errorf("%s: %w", msg, kind)
	}
	return fmt.Errorf("%s: %w: %w", msg, kind, err)
}

// Kind returns the first known error kind found in err's chain, or nil.
func Kind(err error) error {
	for _, k := range []error{ErrScanInProgress, ErrConfig, ErrParse, ErrConstraint, ErrConnectivity, ErrIO} {
		if errors.Is(err, k) {
			return k
		}
	}
	return nil
}
