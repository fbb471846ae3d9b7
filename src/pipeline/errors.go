package pipeline

import (
	"fmt"

	"github.com/daemonless/dbuild/src/cit"
)

// TestFailure carries the per-level test outcome for a failed pair.
type TestFailure struct {
	Tag    string
	Arch   string
	Result *cit.Result
}

func (e *TestFailure) Error() string {
	return fmt.Sprintf("tests failed for :%s (%s)", e.Tag, e.Arch)
}
