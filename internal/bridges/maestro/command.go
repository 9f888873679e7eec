package maestro

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Cloud request strings.
const (
	// RequestInfo asks the stove for a status frame.
	RequestInfo = "C|RecuperoInfo"

	// RequestParameters asks for the full parameter set after joining.
	RequestParameters = "RecuperoParametri"

	// writeParameterPrefix starts a parameter write directive.
	writeParameterPrefix = "C|WriteParametri"
)

// doubledValueCode is the parameter whose value the cloud expects multiplied by two.
const doubledValueCode = "42"

// ParseBusCommand converts a "code,value" bus payload into a cloud directive.
//
//	ParseBusCommand("34,1")  // "C|WriteParametri|34|1"
//	ParseBusCommand("42,3")  // "C|WriteParametri|42|6"
//
// Fields after the value are ignored. The value for code 42 is parsed as a
// float, doubled and truncated.
func ParseBusCommand(payload string) (string, error) {
	fields := strings.Split(strings.TrimSpace(payload), ",")
	if len(fields) < 2 {
		return "", fmt.Errorf("%w: %q: expected code,value", ErrInvalidCommand, payload)
	}
	code := strings.TrimSpace(fields[0])
	value := strings.TrimSpace(fields[1])

	if _, err := strconv.Atoi(code); err != nil {
		return "", fmt.Errorf("%w: %q: code is not a number", ErrInvalidCommand, payload)
	}
	if value == "" {
		return "", fmt.Errorf("%w: %q: empty value", ErrInvalidCommand, payload)
	}
	// The directive is "|"-delimited; a separator in the value would split it.
	if strings.Contains(value, "|") {
		return "", fmt.Errorf("%w: %q: value contains %q", ErrInvalidCommand, payload, "|")
	}

	if code == doubledValueCode {
		f, err := strconv.ParseFloat(value, 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return "", fmt.Errorf("%w: %q: value is not a number", ErrInvalidCommand, payload)
		}
		doubled := f * 2
		if doubled > math.MaxInt32 || doubled < math.MinInt32 {
			return "", fmt.Errorf("%w: %q: value out of range", ErrInvalidCommand, payload)
		}
		value = strconv.FormatInt(int64(doubled), 10)
	}

	return writeParameterPrefix + "|" + code + "|" + value, nil
}

// ParseEntityCommand converts a payload received on an entity command topic
// into a cloud directive, using codes to resolve the entity's parameter code.
func ParseEntityCommand(codes map[string]int, key, payload string) (string, error) {
	code, ok := codes[key]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownEntity, key)
	}
	return ParseBusCommand(strconv.Itoa(code) + "," + payload)
}
