package envbuild

import (
	"fmt"

	"github.com/prforge/prforge/internal/pipeline"
)

// BuildError is the terminal failure of an environment build, carrying
// the last classification and the full attempt history.
type BuildError struct {
	Classification string
	Attempts       []pipeline.BuildAttempt
	Stderr         string
}

func (e *BuildError) Error() string {
	return fmt.Sprintf("environment build failed after %d attempt(s): %s", len(e.Attempts), e.Classification)
}
