package shop

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Identity is the canonical string form of a product identifier. Cart keys,
// catalog lookups and order lines all use it.
type Identity string

// ErrInvalidIdentity is returned for values that have no string form or are blank
var ErrInvalidIdentity = errors.New("invalid product identity")

func (id Identity) String() string {
	return string(id)
}

// NewIdentity builds an Identity from whatever representation a caller holds:
// strings, integers, integral floats, json.Number, raw bytes, or any
// fmt.Stringer (backend object ids). Surrounding whitespace is trimmed.
func NewIdentity(v interface{}) (Identity, error) {
	var s string
	switch t := v.(type) {
	case Identity:
		s = string(t)
	case string:
		s = t
	case []byte:
		s = string(t)
	case json.Number:
		s = t.String()
	case int:
		s = strconv.FormatInt(int64(t), 10)
	case int8:
		s = strconv.FormatInt(int64(t), 10)
	case int16:
		s = strconv.FormatInt(int64(t), 10)
	case int32:
		s = strconv.FormatInt(int64(t), 10)
	case int64:
		s = strconv.FormatInt(t, 10)
	case uint:
		s = strconv.FormatUint(uint64(t), 10)
	case uint8:
		s = strconv.FormatUint(uint64(t), 10)
	case uint16:
		s = strconv.FormatUint(uint64(t), 10)
	case uint32:
		s = strconv.FormatUint(uint64(t), 10)
	case uint64:
		s = strconv.FormatUint(t, 10)
	case float32:
		s = formatFloatID(float64(t))
	case float64:
		s = formatFloatID(t)
	case fmt.Stringer:
		s = t.String()
	case nil:
		return "", ErrInvalidIdentity
	default:
		return "", fmt.Errorf("%w: unsupported type %T", ErrInvalidIdentity, v)
	}

	s = strings.TrimSpace(s)
	if s == "" {
		return "", ErrInvalidIdentity
	}
	return Identity(s), nil
}

// MustIdentity is NewIdentity for literals known to be valid
func MustIdentity(v interface{}) Identity {
	id, err := NewIdentity(v)
	if err != nil {
		panic(err)
	}
	return id
}

// formatFloatID renders 7.0 as "7" so numeric ids decoded as float64 match their string form
func formatFloatID(f float64) string {
	if f == math.Trunc(f) && math.Abs(f) < 1<<53 {
		return strconv.FormatInt(int64(f), 10)
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// identityFromJSON decodes an identity field that may be a JSON string, a
// number, or an extended-JSON object id ({"$oid": "..."}). Absent or null
// fields yield an empty identity and no error.
func identityFromJSON(raw json.RawMessage) (Identity, error) {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return "", nil
	}

	dec := json.NewDecoder(strings.NewReader(trimmed))
	dec.UseNumber()
	var v interface{}
	if err := dec.Decode(&v); err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidIdentity, err)
	}
	if m, ok := v.(map[string]interface{}); ok {
		oid, ok := m["$oid"]
		if !ok {
			return "", fmt.Errorf("%w: object without $oid", ErrInvalidIdentity)
		}
		v = oid
	}
	return NewIdentity(v)
}
