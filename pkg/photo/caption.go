package photo

import (
	"fmt"

	"github.com/pkg/errors"
)

// EXIF field names used for captions
const (
	TagFNumber         = "FNumber"
	TagExposureTime    = "ExposureTime"
	TagISOSpeedRatings = "ISOSpeedRatings"
)

var (
	// ErrMissingTag is returned when a tag needed for the caption is absent.
	ErrMissingTag = errors.New("missing EXIF tag")
	// ErrZeroDenominator is returned for rationals with a zero denominator.
	ErrZeroDenominator = errors.New("zero denominator")
)

// Caption formats the exposure settings as "F2.8, 1/250 s, ISO 100".
// There is no fallback: a missing tag is an error.
func Caption(tags Tags) (string, error) {
	fnumber, err := tags.Rational(TagFNumber)
	if err != nil {
		return "", err
	}
	aperture, err := fnumber.Float()
	if err != nil {
		return "", errors.Wrap(err, TagFNumber)
	}

	exposure, err := tags.Rational(TagExposureTime)
	if err != nil {
		return "", err
	}

	iso, err := tags.Int(TagISOSpeedRatings)
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("F%s, %d/%d s, ISO %d", formatFloat(aperture), exposure.Num, exposure.Den, iso), nil
}
