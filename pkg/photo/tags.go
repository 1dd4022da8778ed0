package photo

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/rwcarlsen/goexif/exif"
	"github.com/rwcarlsen/goexif/tiff"
)

// MaxTagLength is the longest string form a tag may have to be kept.
// Larger values are usually embedded thumbnails or maker blobs.
const MaxTagLength = 255

// unknownPrefix is how goexif names tags it has no field name for.
const unknownPrefix = "UnknownTag_"

// Kind is the shape of a tag value.
type Kind int

// Tag value kinds
const (
	KindInt Kind = iota
	KindFloat
	KindRational
	KindText
	KindBytes
)

// Rational is a numerator/denominator pair as stored in EXIF.
type Rational struct {
	Num int64
	Den int64
}

// Float returns Num/Den.
func (r Rational) Float() (float64, error) {
	if r.Den == 0 {
		return 0, errors.Wrapf(ErrZeroDenominator, "%d/0", r.Num)
	}
	return float64(r.Num) / float64(r.Den), nil
}

// Value is a decoded EXIF tag value.
type Value struct {
	Kind      Kind
	Ints      []int64
	Floats    []float64
	Rationals []Rational
	Text      string
	Bytes     []byte
}

// String renders the value the way it is measured against MaxTagLength:
// single values bare, multiple values as a parenthesised tuple, raw bytes
// quoted with non-printable bytes escaped.
func (v Value) String() string {
	var parts []string
	switch v.Kind {
	case KindInt:
		for _, i := range v.Ints {
			parts = append(parts, strconv.FormatInt(i, 10))
		}
	case KindFloat:
		for _, f := range v.Floats {
			parts = append(parts, formatFloat(f))
		}
	case KindRational:
		for _, r := range v.Rationals {
			parts = append(parts, fmt.Sprintf("(%d, %d)", r.Num, r.Den))
		}
	case KindText:
		return v.Text
	default:
		return fmt.Sprintf("b%q", v.Bytes)
	}

	if len(parts) == 1 {
		return parts[0]
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

// Tags maps EXIF field names (e.g. "FNumber") to their values.
type Tags map[string]Value

// Rational returns the first rational of the named tag.
func (t Tags) Rational(name string) (Rational, error) {
	v, ok := t[name]
	if !ok {
		return Rational{}, errors.Wrap(ErrMissingTag, name)
	}
	if v.Kind != KindRational || len(v.Rationals) == 0 {
		return Rational{}, errors.Errorf("tag %s is not a rational", name)
	}
	return v.Rationals[0], nil
}

// Int returns the first integer of the named tag.
func (t Tags) Int(name string) (int64, error) {
	v, ok := t[name]
	if !ok {
		return 0, errors.Wrap(ErrMissingTag, name)
	}
	if v.Kind != KindInt || len(v.Ints) == 0 {
		return 0, errors.Errorf("tag %s is not an integer", name)
	}
	return v.Ints[0], nil
}

// tagWalker collects goexif fields into Tags.
type tagWalker struct {
	tags Tags
}

func (w *tagWalker) Walk(name exif.FieldName, tag *tiff.Tag) error {
	if strings.HasPrefix(string(name), unknownPrefix) {
		return nil
	}

	v, err := valueOf(tag)
	if err != nil {
		return errors.Wrapf(err, "failed to decode EXIF tag %s", name)
	}
	if len(v.String()) > MaxTagLength {
		return nil
	}
	w.tags[string(name)] = v
	return nil
}

// FromEXIF converts decoded EXIF data into Tags, dropping unknown tags and
// tags whose string form is longer than MaxTagLength.
func FromEXIF(x *exif.Exif) (Tags, error) {
	w := &tagWalker{tags: make(Tags)}
	if err := x.Walk(w); err != nil {
		return nil, err
	}
	return w.tags, nil
}

func valueOf(tag *tiff.Tag) (Value, error) {
	n := int(tag.Count)

	switch tag.Format() {
	case tiff.IntVal:
		v := Value{Kind: KindInt}
		for i := 0; i < n; i++ {
			x, err := tag.Int64(i)
			if err != nil {
				return Value{}, err
			}
			v.Ints = append(v.Ints, x)
		}
		return v, nil
	case tiff.FloatVal:
		v := Value{Kind: KindFloat}
		for i := 0; i < n; i++ {
			x, err := tag.Float(i)
			if err != nil {
				return Value{}, err
			}
			v.Floats = append(v.Floats, x)
		}
		return v, nil
	case tiff.RatVal:
		v := Value{Kind: KindRational}
		for i := 0; i < n; i++ {
			num, den, err := tag.Rat2(i)
			if err != nil {
				return Value{}, err
			}
			v.Rationals = append(v.Rationals, Rational{Num: num, Den: den})
		}
		return v, nil
	case tiff.StringVal:
		s, err := tag.StringVal()
		if err != nil {
			return Value{}, err
		}
		return Value{Kind: KindText, Text: strings.TrimRight(s, "\x00")}, nil
	default:
		return Value{Kind: KindBytes, Bytes: append([]byte(nil), tag.Val...)}, nil
	}
}

// formatFloat prints the shortest representation, keeping a trailing ".0"
// on integral values so 4 reads as "4.0".
func formatFloat(f float64) string {
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.ContainsAny(s, ".eE") && !strings.Contains(s, "Inf") && !strings.Contains(s, "NaN") {
		s += ".0"
	}
	return s
}
