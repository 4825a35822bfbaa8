package marketplace

import (
	"errors"
	"fmt"
)

// ErrRateLimited marks an HTTP 429 from the upstream API. The orchestrator
// treats it as "wait and retry the same page" rather than a lost page.
var ErrRateLimited = errors.New("upstream rate limit hit")

// ShapeError marks a response that decoded but did not match the expected
// endpoint shape. Treated like a transport failure: the page is skipped.
type ShapeError struct {
	Kind   Kind
	Detail string
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("unexpected %s response shape: %s", e.Kind, e.Detail)
}
