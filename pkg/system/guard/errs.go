package guard

import "fmt"

// ReleaseError reports that giving a resource back to the OS failed.
type ReleaseError struct {
	Kind string
	Err  error
}

func (e *ReleaseError) Error() string {
	return fmt.Sprintf("guard: release %s: %v", e.Kind, e.Err)
}

func (e *ReleaseError) Unwrap() error { return e.Err }
