package orderpipe

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"

	"golang.org/x/xerrors"
)

// Event is a Cloud Storage object-change event. Cloud Functions deliver it
// directly for storage triggers; for Pub/Sub triggers it is carried inside
// the message payload (see PubSubMessage).
type Event struct {
	Name   string `json:"name"`
	Bucket string `json:"bucket"`
}

// FullPath returns full path of the storage object beginning with gs://.
func (e *Event) FullPath() string {
	return fmt.Sprintf("gs://%s/%s", e.Bucket, e.Name)
}

func (e *Event) validate() error {
	if e.Bucket == "" || e.Name == "" {
		return xerrors.Errorf("event must carry both bucket and name (bucket=%q, name=%q): %w",
			e.Bucket, e.Name, ErrMalformedTrigger)
	}

	return nil
}

// PubSubMessage is the envelope delivered by a Pub/Sub trigger. Data holds
// the storage event, either as a JSON object or as a base64-encoded JSON
// string, depending on how the notification was published.
type PubSubMessage struct {
	Data       json.RawMessage   `json:"data"`
	Attributes map[string]string `json:"attributes,omitempty"`
}

// Event decodes the wrapped storage event. Each payload shape gets one
// explicit case; anything else is rejected as a malformed trigger.
func (m *PubSubMessage) Event() (Event, error) {
	var e Event

	data := bytes.TrimSpace(m.Data)
	if len(data) == 0 {
		return e, xerrors.Errorf("pub/sub message has no data field: %w", ErrMalformedTrigger)
	}

	switch data[0] {
	case '{':
		// Already-decoded mapping.
		if err := json.Unmarshal(data, &e); err != nil {
			return e, xerrors.Errorf("pub/sub data is not a storage event: %v: %w", err, ErrMalformedTrigger)
		}
	case '"':
		// Base64-encoded JSON string.
		var enc string
		if err := json.Unmarshal(data, &enc); err != nil {
			return e, xerrors.Errorf("pub/sub data is not a string: %v: %w", err, ErrMalformedTrigger)
		}

		raw, err := base64.StdEncoding.DecodeString(enc)
		if err != nil {
			return e, xerrors.Errorf("pub/sub data is not valid base64: %v: %w", err, ErrMalformedTrigger)
		}

		if err := json.Unmarshal(raw, &e); err != nil {
			return e, xerrors.Errorf("decoded pub/sub data is not a storage event: %v: %w", err, ErrMalformedTrigger)
		}
	default:
		return e, xerrors.Errorf("unexpected pub/sub data shape: %w", ErrMalformedTrigger)
	}

	if err := e.validate(); err != nil {
		return e, err
	}

	return e, nil
}
