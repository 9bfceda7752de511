package sprite

import (
	"fmt"

	"github.com/ironsheep/sprite-tools/internal/imaging"
	"github.com/pkg/errors"
)

// InvalidDirectoryError reports a sprite path that is missing or not a directory.
type InvalidDirectoryError struct {
	Path   string
	Reason string
}

func (e *InvalidDirectoryError) Error() string {
	return fmt.Sprintf("%s %s", e.Path, e.Reason)
}

// NoSubimagesFoundError reports a directory without immediate PNG children.
type NoSubimagesFoundError struct {
	Dir string
}

func (e *NoSubimagesFoundError) Error() string {
	return fmt.Sprintf("no subimages found in %s", e.Dir)
}

// SizeMismatchError reports a frame whose size differs from the first frame.
type SizeMismatchError struct {
	Frame     string
	ExpectedW int
	ExpectedH int
	ActualW   int
	ActualH   int
}

func (e *SizeMismatchError) Error() string {
	return fmt.Sprintf("subimage %s is %dx%d; expected %dx%d",
		e.Frame, e.ActualW, e.ActualH, e.ExpectedW, e.ExpectedH)
}

// NoAlphaChannelError reports a frame that cannot be bled.
type NoAlphaChannelError struct {
	Frame string
}

func (e *NoAlphaChannelError) Error() string {
	return fmt.Sprintf("subimage %s has no alpha channel", e.Frame)
}

// GradientMapsError reports a missing or malformed gradient map definition file.
type GradientMapsError struct {
	Path   string
	Reason string
}

func (e *GradientMapsError) Error() string {
	if e.Path == "" {
		return e.Reason
	}
	return fmt.Sprintf("gradient maps file %s: %s", e.Path, e.Reason)
}

// IsValidation reports whether err is a deterministic validation failure
// rather than an I/O or unexpected error.
func IsValidation(err error) bool {
	var (
		invalidDir   *InvalidDirectoryError
		noSubimages  *NoSubimagesFoundError
		sizeMismatch *SizeMismatchError
		noAlpha      *NoAlphaChannelError
		gradientMaps *GradientMapsError
		invalidColor *imaging.InvalidColorError
		invalidPos   *imaging.InvalidPositionError
		duplicatePos *imaging.DuplicatePositionError
	)
	return errors.As(err, &invalidDir) ||
		errors.As(err, &noSubimages) ||
		errors.As(err, &sizeMismatch) ||
		errors.As(err, &noAlpha) ||
		errors.As(err, &gradientMaps) ||
		errors.As(err, &invalidColor) ||
		errors.As(err, &invalidPos) ||
		errors.As(err, &duplicatePos)
}
