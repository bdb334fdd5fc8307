package hospital

import (
	"errors"

	"github.com/sarchlab/wardsim/sim/resource"
)

// Caller-input errors. They are returned before any virtual time elapses.
var (
	// ErrInvalidCapacity is returned when the ward has no beds.
	ErrInvalidCapacity = resource.ErrInvalidCapacity

	// ErrInvalidPriority is returned when a priority lies outside
	// 1..NumPriorities.
	ErrInvalidPriority = errors.New("invalid priority")

	// ErrNegativeDuration is returned for a negative length of stay or
	// warm-up.
	ErrNegativeDuration = errors.New("negative duration")

	// ErrInvalidInterval is returned when the audit interval is not positive.
	ErrInvalidInterval = errors.New("invalid audit interval")

	// ErrAuditStarted is returned when the audit is started twice.
	ErrAuditStarted = errors.New("audit already started")
)
