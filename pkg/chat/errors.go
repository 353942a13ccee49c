package chat

import "github.com/pkg/errors"

// Sentinel errors for the conversation core. Call sites wrap them with
// pkg/errors so errors.Is still matches after context has been added.
var (
	// ErrStorageUnavailable means the message store could not be reached or
	// queried. Write paths never swallow it; the session listing read path
	// degrades to an empty list instead.
	ErrStorageUnavailable = errors.New("message store unavailable")

	// ErrGenerationFailed means the model client failed or the stream was cut
	// off. Fragments already delivered remain valid and are not retracted.
	ErrGenerationFailed = errors.New("generation failed")

	// ErrCorruptSession means stored rows could not be decoded into the
	// expected role/content shape. Recovery goes through Manager.Repair,
	// never through the request path.
	ErrCorruptSession = errors.New("corrupt session")
)
