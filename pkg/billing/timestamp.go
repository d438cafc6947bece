package billing

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// Timestamp decodes the time encodings the backend emits: RFC 3339 strings,
// Unix seconds or milliseconds, and serialized Firestore timestamps
// ({"_seconds":..,"_nanoseconds":..} or {"seconds":..,"nanos":..}).
// It always encodes as an RFC 3339 string.
type Timestamp struct {
	time.Time
}

// unixMillisThreshold separates Unix seconds from milliseconds (year 33658 in seconds).
const unixMillisThreshold = 1e12

func (ts *Timestamp) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		ts.Time = time.Time{}
		return nil
	}

	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		if s == "" {
			ts.Time = time.Time{}
			return nil
		}
		t, err := time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return fmt.Errorf("invalid timestamp %q: %w", s, err)
		}
		ts.Time = t.UTC()
		return nil

	case '{':
		var fs struct {
			Seconds      *int64 `json:"seconds"`
			Nanos        int64  `json:"nanos"`
			USeconds     *int64 `json:"_seconds"`
			UNanoseconds int64  `json:"_nanoseconds"`
		}
		if err := json.Unmarshal(data, &fs); err != nil {
			return err
		}
		switch {
		case fs.USeconds != nil:
			ts.Time = time.Unix(*fs.USeconds, fs.UNanoseconds).UTC()
		case fs.Seconds != nil:
			ts.Time = time.Unix(*fs.Seconds, fs.Nanos).UTC()
		default:
			return fmt.Errorf("invalid timestamp object: %s", data)
		}
		return nil

	default:
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return err
		}
		v, err := n.Float64()
		if err != nil {
			return fmt.Errorf("invalid timestamp number %s: %w", n, err)
		}
		if v >= unixMillisThreshold {
			ts.Time = time.UnixMilli(int64(v)).UTC()
		} else {
			ts.Time = time.Unix(int64(v), 0).UTC()
		}
		return nil
	}
}

func (ts Timestamp) MarshalJSON() ([]byte, error) {
	if ts.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(ts.UTC().Format(time.RFC3339Nano))
}
