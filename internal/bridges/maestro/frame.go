package maestro

import (
	"bytes"
	"encoding/json"
	"fmt"
	"maps"
	"math"
	"slices"
	"strconv"
	"strings"
)

// FrameSeparator delimits fields in a cloud status frame.
const FrameSeparator = "|"

// unknownCodeLabel prefixes enumerated values with no known label.
const unknownCodeLabel = "Unknown code:"

// Transform selects how a non-enumerated field is converted.
type Transform int

// Field transforms.
const (
	// TransformInteger keeps the parsed value as an int64.
	TransformInteger Transform = iota

	// TransformHalved divides the parsed value by two (half-degree units).
	TransformHalved

	// TransformDuration renders a count of seconds as "d:h:m:s".
	TransformDuration
)

// String returns the transform name.
func (t Transform) String() string {
	switch t {
	case TransformInteger:
		return "integer"
	case TransformHalved:
		return "halved"
	case TransformDuration:
		return "duration"
	default:
		return fmt.Sprintf("Transform(%d)", int(t))
	}
}

// FieldRule binds a frame position to a field name and its conversion.
// A rule with Labels is enumerated and ignores Transform.
type FieldRule struct {
	Index     int
	Name      string
	Transform Transform
	Labels    map[int64]string
}

// UnknownCode is the decoded value of an enumerated field whose code has no label.
type UnknownCode struct {
	Code int64
}

// String renders the code for plain-text topics, e.g. "Unknown code: 99".
func (u UnknownCode) String() string {
	return unknownCodeLabel + " " + strconv.FormatInt(u.Code, 10)
}

// MarshalJSON renders the code as the pair ["Unknown code:", "99"].
func (u UnknownCode) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]string{unknownCodeLabel, strconv.FormatInt(u.Code, 10)})
}

// Snapshot maps field names to decoded values. Values are int64, float64,
// string, or UnknownCode.
type Snapshot map[string]any

// Clone returns a shallow copy. Values are immutable so this is sufficient.
func (s Snapshot) Clone() Snapshot {
	if s == nil {
		return nil
	}
	return maps.Clone(s)
}

// MarshalJSON writes the snapshot with sorted keys. Whole floats keep a
// trailing ".0" so halved readings such as 22.0 stay floats on the wire.
func (s Snapshot) MarshalJSON() ([]byte, error) {
	if s == nil {
		return []byte("null"), nil
	}
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, key := range slices.Sorted(maps.Keys(s)) {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(key)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')

		if f, ok := s[key].(float64); ok && !math.IsInf(f, 0) && f == math.Trunc(f) {
			buf.WriteString(strconv.FormatFloat(f, 'f', 1, 64))
			continue
		}
		v, err := json.Marshal(s[key])
		if err != nil {
			return nil, fmt.Errorf("encoding %q: %w", key, err)
		}
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Decoder turns status frames into snapshots using a fixed rule table.
//
// Thread Safety: A Decoder is immutable after construction and safe for concurrent use.
type Decoder struct {
	rules map[int]FieldRule
}

// NewDecoder creates a decoder for the given rules.
func NewDecoder(rules []FieldRule) (*Decoder, error) {
	if err := validateRules(rules); err != nil {
		return nil, fmt.Errorf("invalid field rules: %w", err)
	}
	d := &Decoder{rules: make(map[int]FieldRule, len(rules))}
	for _, r := range rules {
		d.rules[r.Index] = r
	}
	return d, nil
}

// NewInfoDecoder creates a decoder for C|RecuperoInfo frames.
func NewInfoDecoder() *Decoder {
	d, err := NewDecoder(infoFrameRules)
	if err != nil {
		// The built-in table is static; a failure here is a programming error.
		panic(err)
	}
	return d
}

// Decode converts a frame into a fresh snapshot.
//
// Fields without a rule are ignored. A field that is not hexadecimal is
// skipped and reported as an ErrMalformedField in the returned slice; the
// rest of the frame is still decoded.
func (d *Decoder) Decode(frame string) (Snapshot, []error) {
	fields := strings.Split(frame, FrameSeparator)
	// Frames end with a separator.
	if n := len(fields); n > 0 && strings.TrimSpace(fields[n-1]) == "" {
		fields = fields[:n-1]
	}
	snap := make(Snapshot, len(d.rules))

	var errs []error
	for i, raw := range fields {
		rule, ok := d.rules[i]
		if !ok {
			continue
		}
		value, err := decodeField(rule, raw)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		snap[rule.Name] = value
	}
	return snap, errs
}

// decodeField applies a single rule to a raw field.
func decodeField(rule FieldRule, raw string) (any, error) {
	n, err := parseHex(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: index %d (%s): %q", ErrMalformedField, rule.Index, rule.Name, raw)
	}

	if len(rule.Labels) > 0 {
		if label, ok := rule.Labels[n]; ok {
			return label, nil
		}
		return UnknownCode{Code: n}, nil
	}

	switch rule.Transform {
	case TransformHalved:
		return float64(n) / 2, nil
	case TransformDuration:
		return formatDuration(n), nil
	default:
		return n, nil
	}
}

// parseHex parses a hexadecimal field, tolerating whitespace and a 0x prefix.
func parseHex(raw string) (int64, error) {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	if s == "" {
		return 0, strconv.ErrSyntax
	}
	return strconv.ParseInt(s, 16, 64)
}

// formatDuration renders seconds as days:hours:minutes:seconds without padding.
func formatDuration(seconds int64) string {
	minutes, s := seconds/60, seconds%60
	hours, m := minutes/60, minutes%60
	d, h := hours/24, hours%24
	return fmt.Sprintf("%d:%d:%d:%d", d, h, m, s)
}
