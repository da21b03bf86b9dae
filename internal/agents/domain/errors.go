package domain

import "errors"

var (
	// ErrNotFound indicates the agent does not exist within the caller's tenant.
	ErrNotFound = errors.New("agent not found")
	// ErrProviderCreateFailed indicates the remote agent provisioning failed.
	ErrProviderCreateFailed = errors.New("voice provider agent creation failed")
)
