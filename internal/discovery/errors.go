package discovery

import "errors"

// Domain errors for the discovery package.
var (
	// ErrPublishFailed is returned when a discovery or availability message could not be published.
	ErrPublishFailed = errors.New("discovery: publish failed")
)
