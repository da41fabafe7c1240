package remote

import (
	"fmt"

	"github.com/dgallion1/docscrub/internal/apperr"
)

// RemoteServiceError reports that every attempt against the chunking service
// failed. It matches apperr.ErrRemoteService and unwraps to the last failure.
type RemoteServiceError struct {
	Endpoint string
	Attempts int
	Last     error
}

func (e *RemoteServiceError) Error() string {
	return fmt.Sprintf("remote %s failed after %d attempt(s): %v", e.Endpoint, e.Attempts, e.Last)
}

func (e *RemoteServiceError) Unwrap() []error {
	if e.Last == nil {
		return []error{apperr.ErrRemoteService}
	}
	return []error{apperr.ErrRemoteService, e.Last}
}

// statusError is a non-2xx reply.
type statusError struct {
	Status int
	Body   string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("status %d: %s", e.Status, e.Body)
}

// rejectedError is a 2xx reply carrying success:false.
type rejectedError struct {
	Type    string
	Message string
}

func (e *rejectedError) Error() string {
	if e.Type == "" {
		return "chunking failed: " + e.Message
	}
	return fmt.Sprintf("chunking failed (%s): %s", e.Type, e.Message)
}
