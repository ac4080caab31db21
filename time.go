package docseal

import (
	"encoding/json"
	"time"

	"github.com/iov-one/docseal/errors"
)

// UnixTime is a ledger timestamp with a precision of one second. Creation
// and signing times, as well as session expirations, use it.
type UnixTime int64

// AsUnixTime truncates t to whole seconds.
func AsUnixTime(t time.Time) UnixTime {
	return UnixTime(t.Unix())
}

func (t UnixTime) Time() time.Time {
	return time.Unix(int64(t), 0)
}

// Add works like time.Time.Add, dropping the sub second part of d.
func (t UnixTime) Add(d time.Duration) UnixTime {
	return t + UnixTime(d/time.Second)
}

// UnmarshalJSON accepts a number of seconds or an RFC 3339 string, the
// latter being handy in genesis files.
func (t *UnixTime) UnmarshalJSON(raw []byte) error {
	var secs int64
	if err := json.Unmarshal(raw, &secs); err != nil {
		var std time.Time
		if err := json.Unmarshal(raw, &std); err != nil {
			return errors.Wrap(errors.ErrInput, "time must be a number or an RFC 3339 string")
		}
		secs = std.Unix()
	}
	if secs < 0 {
		return errors.Wrap(errors.ErrInput, "time before epoch")
	}
	*t = UnixTime(secs)
	return nil
}

func (t UnixTime) Validate() error {
	if t < 0 {
		return errors.Wrap(errors.ErrState, "negative value")
	}
	return nil
}

func (t UnixTime) String() string {
	return t.Time().UTC().Format(time.RFC3339)
}
