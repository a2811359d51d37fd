package assist

import (
	"errors"
	"fmt"
)

// Sentinel errors for unusable assistant replies.
var (
	// ErrMalformedResponse indicates the reply lacked the expected candidate text.
	ErrMalformedResponse = errors.New("API response missing expected data structure")

	// ErrEmptyResult indicates the reply was blank once code fences were removed.
	ErrEmptyResult = errors.New("received empty response from assistant")

	// ErrMissingAPIKey is returned by NewClient when no key was configured.
	ErrMissingAPIKey = errors.New("missing API key")
)

// RemoteAPIError is returned when the upstream call failed or answered with a
// non-success status.
type RemoteAPIError struct {
	// StatusCode is zero when no HTTP response was received.
	StatusCode int
	// Message is the upstream error message when one was present.
	Message string
	Err     error
}

func (e *RemoteAPIError) Error() string {
	switch {
	case e.StatusCode != 0:
		return fmt.Sprintf("API returned error (%d): %s", e.StatusCode, e.Message)
	case e.Err != nil:
		return fmt.Sprintf("API request failed: %v", e.Err)
	}
	return "API request failed: " + e.Message
}

func (e *RemoteAPIError) Unwrap() error {
	return e.Err
}

// ContentBlockedError is returned when the assistant refused the prompt for
// content-safety reasons. It is not transient; retrying the same prompt will
// not help.
type ContentBlockedError struct {
	Reason string
}

func (e *ContentBlockedError) Error() string {
	return "content blocked: " + e.Reason
}

// Describe maps a pipeline failure to the title and detail of a user notice.
func Describe(err error) (title, detail string) {
	var blocked *ContentBlockedError
	var remote *RemoteAPIError
	switch {
	case errors.As(err, &blocked):
		return "Request blocked by content policy", "The assistant declined this code (" + blocked.Reason + "). Editing and retrying the same code will not change this."
	case errors.As(err, &remote):
		return "Assistant request failed", remote.Error()
	case errors.Is(err, ErrMalformedResponse), errors.Is(err, ErrEmptyResult):
		return "Failed to generate code", err.Error()
	}
	return "Failed to generate code", "Please try again."
}
