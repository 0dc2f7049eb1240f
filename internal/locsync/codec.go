package locsync

import (
	"net/url"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Encode renders v as a location parameter value: percent-escaped JSON.
func Encode[T any](v T) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return url.QueryEscape(string(data)), nil
}

// Decode parses a location parameter back into a value. It never fails: an
// absent, repeated or malformed parameter yields def.
func Decode[T any](vals []string, def T) T {
	if len(vals) != 1 {
		return def
	}
	raw, err := url.QueryUnescape(vals[0])
	if err != nil {
		return def
	}
	var out T
	if err := json.UnmarshalFromString(raw, &out); err != nil {
		return def
	}
	return out
}
