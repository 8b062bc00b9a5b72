package catalog

import (
	"errors"
)

// ErrProviderUnavailable is returned when a catalog source isn't ready for use yet.
var ErrProviderUnavailable = errors.New("catalog source isn't currently available")

// ErrNoArtifacts is returned when a query matches no current artifacts.
var ErrNoArtifacts = errors.New("no matching update artifacts found")

// ErrInvalidContainer is returned when a downloaded container file lacks the
// required installer metadata.
var ErrInvalidContainer = errors.New("container file is missing installer metadata")
