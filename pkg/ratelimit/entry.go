package ratelimit

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"
)

// ErrMalformedState is returned when persisted limiter state cannot be decoded
var ErrMalformedState = errors.New("malformed rate limit state")

// Entry is the per-client window state
type Entry struct {
	Attempts    int
	WindowStart time.Time
}

// MarshalJSON encodes the entry as [attempts, window_start] with the
// window start in fractional epoch seconds.
func (e Entry) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]interface{}{e.Attempts, epochSeconds(e.WindowStart)})
}

func (e *Entry) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("%w: entry is not an array: %v", ErrMalformedState, err)
	}
	if len(raw) != 2 {
		return fmt.Errorf("%w: entry has %d elements, want 2", ErrMalformedState, len(raw))
	}

	var attempts int
	if err := json.Unmarshal(raw[0], &attempts); err != nil {
		return fmt.Errorf("%w: attempts: %v", ErrMalformedState, err)
	}
	var start float64
	if err := json.Unmarshal(raw[1], &start); err != nil {
		return fmt.Errorf("%w: window_start: %v", ErrMalformedState, err)
	}

	e.Attempts = attempts
	e.WindowStart = fromEpochSeconds(start)
	return nil
}

// decodeEntry decodes one stored entry, reporting any failure as
// ErrMalformedState
func decodeEntry(data []byte) (Entry, error) {
	var e Entry
	if err := json.Unmarshal(data, &e); err != nil {
		if errors.Is(err, ErrMalformedState) {
			return Entry{}, err
		}
		return Entry{}, fmt.Errorf("%w: %v", ErrMalformedState, err)
	}
	return e, nil
}

func epochSeconds(t time.Time) float64 {
	return float64(t.UnixNano()) / float64(time.Second)
}

func fromEpochSeconds(s float64) time.Time {
	sec, frac := math.Modf(s)
	return time.Unix(int64(sec), int64(math.Round(frac*float64(time.Second))))
}
