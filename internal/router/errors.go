package router

import "fmt"

// NotFoundError is raised when resolution exhausts every bucket (§4.2
// step 5). Available lists agents registered for the request's
// (domain, port), to help the caller correct the request.
type NotFoundError struct {
	DID       string
	Domain    string
	Port      string
	Available []string
}

func (e *NotFoundError) Error() string {
	if len(e.Available) == 0 {
		return fmt.Sprintf("no agent resolves %q for %s:%s", e.DID, e.Domain, e.Port)
	}
	return fmt.Sprintf("no agent resolves %q for %s:%s (available: %v)", e.DID, e.Domain, e.Port, e.Available)
}
