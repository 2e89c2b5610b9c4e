package referenceframe

import (
	"fmt"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// legacyFramePrefix is the leading marker frame ids carried before tf2; it must not be used.
const legacyFramePrefix = "/"

// ErrTransformUnavailable is the reason shared by all lookups that could not be answered.
var ErrTransformUnavailable = errors.New("transform unavailable")

// InvalidFrameIDError is returned for frame ids that break the naming convention.
type InvalidFrameIDError struct {
	FrameID string
}

func (e *InvalidFrameIDError) Error() string {
	return fmt.Sprintf("frame id %q should not start with a %q, see tf2 migration notes", e.FrameID, legacyFramePrefix)
}

// ValidateFrameID returns an *InvalidFrameIDError if frameID starts with the legacy leading
// marker. The empty frame id is accepted here; callers needing a name check for it themselves.
func ValidateFrameID(frameID string) error {
	if strings.HasPrefix(frameID, legacyFramePrefix) {
		return &InvalidFrameIDError{FrameID: frameID}
	}
	return nil
}

// ExtrapolationError is returned when a transform is requested outside the interval the buffer
// holds samples for.
type ExtrapolationError struct {
	Frame     string
	Requested time.Time
	Earliest  time.Time
	Latest    time.Time
}

func (e *ExtrapolationError) Error() string {
	return fmt.Sprintf("lookup of frame %q at %v would require extrapolation, buffer holds [%v, %v]",
		e.Frame, e.Requested.UTC(), e.Earliest.UTC(), e.Latest.UTC())
}

// Unwrap makes extrapolation errors match ErrTransformUnavailable.
func (e *ExtrapolationError) Unwrap() error {
	return ErrTransformUnavailable
}

// NewFrameNotFoundError is returned for frames the buffer has never heard of.
func NewFrameNotFoundError(frame string) error {
	return errors.Wrapf(ErrTransformUnavailable, "frame %q not found", frame)
}

// NewFramesNotConnectedError is returned when two frames do not share an ancestor.
func NewFramesNotConnectedError(target, source string) error {
	return errors.Wrapf(ErrTransformUnavailable, "frames %q and %q are not connected", target, source)
}
