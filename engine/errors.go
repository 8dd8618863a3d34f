package engine

import "errors"

var (
	// ErrNoEngineConfigured indicates the user has no engine configured for
	// the requested capability.
	ErrNoEngineConfigured = errors.New("no engine configured for capability")

	// ErrUnknownEngine indicates the configured engine UUID is not
	// registered.
	ErrUnknownEngine = errors.New("unknown engine")

	// ErrCapabilityUnsupported indicates the configured engine does not
	// provide the requested capability.
	ErrCapabilityUnsupported = errors.New("engine does not support capability")
)
