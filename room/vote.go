package room

import (
	"encoding/json"
	"errors"
	"strconv"
	"strings"
)

// Vote is an opaque card value. The room never checks it against a deck.
// Values that read as numbers travel as JSON numbers; anything else travels
// as a JSON string.
type Vote string

// numeric reports whether v is a JSON number literal and returns its value.
func (v Vote) numeric() (float64, bool) {
	s := string(v)
	if s == "" || strings.TrimSpace(s) != s {
		return 0, false
	}
	if c := s[0]; c != '-' && (c < '0' || c > '9') {
		return 0, false
	}
	if !json.Valid([]byte(s)) {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil && !errors.Is(err, strconv.ErrRange) {
		return 0, false
	}
	return f, true
}

// CompareVotes orders numbers numerically ahead of everything else and
// everything else lexically.
func CompareVotes(a, b Vote) int {
	fa, na := a.numeric()
	fb, nb := b.numeric()
	switch {
	case na && nb:
		if fa < fb {
			return -1
		}
		if fa > fb {
			return 1
		}
		return strings.Compare(string(a), string(b))
	case na:
		return -1
	case nb:
		return 1
	default:
		return strings.Compare(string(a), string(b))
	}
}

func (v Vote) MarshalJSON() ([]byte, error) {
	if _, ok := v.numeric(); ok {
		return []byte(v), nil
	}
	return json.Marshal(string(v))
}

func (v *Vote) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = Vote(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil || n == "" {
		return errors.New("vote must be a number or a string")
	}
	*v = Vote(n)
	return nil
}
