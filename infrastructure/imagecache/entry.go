package imagecache

import (
	"encoding/json"
	"time"
)

// persistedEntry is the L2 record layout: the cached value plus its absolute
// expiry in epoch milliseconds.
type persistedEntry struct {
	Data   json.RawMessage `json:"data"`
	Expiry int64           `json:"expiry"`
}

func encodeEntry(value any, ttl time.Duration, now time.Time) (payload string, expiry int64, err error) {
	data, err := json.Marshal(value)
	if err != nil {
		return "", 0, err
	}
	expiry = now.Add(ttl).UnixMilli()
	raw, err := json.Marshal(persistedEntry{Data: data, Expiry: expiry})
	if err != nil {
		return "", 0, err
	}
	return string(raw), expiry, nil
}

// decodeEntry parses a persisted payload and reports whether it is still
// alive. Corrupt payloads count as expired so they get purged like any stale
// record.
func decodeEntry(payload string, now time.Time) (json.RawMessage, bool) {
	var entry persistedEntry
	if err := json.Unmarshal([]byte(payload), &entry); err != nil {
		return nil, false
	}
	if now.UnixMilli() > entry.Expiry {
		return nil, false
	}
	return entry.Data, true
}
