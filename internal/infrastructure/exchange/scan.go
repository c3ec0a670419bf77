package exchange

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Venue messages are small flat JSON objects with a fixed shape, so adapters
// pull the few fields they need by literal key instead of decoding the
// whole document. Only the returned field values are copied out of msg.

var errEmptyNumber = errors.New("empty number")

// HasKey reports whether `"key"` appears in msg.
func HasKey(msg []byte, key string) bool {
	return keyIndex(msg, key, 0) >= 0
}

// StringField returns the string value of the first `"key": "value"` pair.
func StringField(msg []byte, key string) (string, bool) {
	for from := 0; ; {
		i := keyIndex(msg, key, from)
		if i < 0 {
			return "", false
		}
		j := skipSpace(msg, i)
		if j < len(msg) && msg[j] == ':' {
			j = skipSpace(msg, j+1)
			if j < len(msg) && msg[j] == '"' {
				return quoted(msg, j)
			}
			return "", false
		}
		// the key text appeared as a value, keep looking
		from = i
	}
}

// ArrayStringField returns element idx of `"key": ["v0", "v1", ...]` when that
// element is a string.
func ArrayStringField(msg []byte, key string, idx int) (string, bool) {
	for from := 0; ; {
		i := keyIndex(msg, key, from)
		if i < 0 {
			return "", false
		}
		j := skipSpace(msg, i)
		if j >= len(msg) || msg[j] != ':' {
			from = i
			continue
		}
		j = skipSpace(msg, j+1)
		if j >= len(msg) || msg[j] != '[' {
			return "", false
		}
		j++
		for n := 0; ; n++ {
			j = skipSpace(msg, j)
			if j >= len(msg) {
				return "", false
			}
			if n == idx {
				if msg[j] != '"' {
					return "", false
				}
				return quoted(msg, j)
			}
			j = skipValue(msg, j)
			j = skipSpace(msg, j)
			if j >= len(msg) || msg[j] != ',' {
				return "", false
			}
			j++
		}
	}
}

// LastString returns the last quoted string in msg.
func LastString(msg []byte) (string, bool) {
	end := bytes.LastIndexByte(msg, '"')
	if end <= 0 {
		return "", false
	}
	start := bytes.LastIndexByte(msg[:end], '"')
	if start < 0 {
		return "", false
	}
	return string(msg[start+1 : end]), true
}

// IsArray reports whether the first non-space byte opens a JSON array.
func IsArray(msg []byte) bool {
	j := skipSpace(msg, 0)
	return j < len(msg) && msg[j] == '['
}

// ParsePrice parses a decimal price; non-positive values are rejected.
func ParsePrice(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, errEmptyNumber
	}
	v, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse price %q: %w", s, err)
	}
	if !v.IsPositive() {
		return decimal.Zero, fmt.Errorf("parse price %q: not positive", s)
	}
	return v, nil
}

// keyIndex returns the offset just past `"key"` at or after from, or -1.
func keyIndex(msg []byte, key string, from int) int {
	if from >= len(msg) {
		return -1
	}
	needle := make([]byte, 0, len(key)+2)
	needle = append(needle, '"')
	needle = append(needle, key...)
	needle = append(needle, '"')
	i := bytes.Index(msg[from:], needle)
	if i < 0 {
		return -1
	}
	return from + i + len(needle)
}

func skipSpace(msg []byte, i int) int {
	for i < len(msg) && (msg[i] == ' ' || msg[i] == '\n' || msg[i] == '\r' || msg[i] == '\t') {
		i++
	}
	return i
}

func quoted(msg []byte, open int) (string, bool) {
	end := bytes.IndexByte(msg[open+1:], '"')
	if end < 0 {
		return "", false
	}
	return string(msg[open+1 : open+1+end]), true
}

// skipValue steps over one scalar or string value starting at i.
func skipValue(msg []byte, i int) int {
	if i < len(msg) && msg[i] == '"' {
		end := bytes.IndexByte(msg[i+1:], '"')
		if end < 0 {
			return len(msg)
		}
		return i + 1 + end + 1
	}
	for i < len(msg) && msg[i] != ',' && msg[i] != ']' && msg[i] != '}' {
		i++
	}
	return i
}
