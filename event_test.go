package orderpipe

import (
	"encoding/base64"
	"encoding/json"
	"testing"
)

func TestEvent_FullPath(t *testing.T) {
	e := Event{Bucket: "b", Name: "dir/f.json"}

	if got := e.FullPath(); got != "gs://b/dir/f.json" {
		t.Errorf(`FullPath should be "gs://b/dir/f.json", but %q`, got)
	}
}

func TestPubSubMessage_Event_decodedMapping(t *testing.T) {
	m := PubSubMessage{Data: json.RawMessage(`{"bucket":"b","name":"f.json"}`)}

	e, err := m.Event()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if e.Bucket != "b" || e.Name != "f.json" {
		t.Errorf(`event should be ("b","f.json"), but (%q,%q)`, e.Bucket, e.Name)
	}
}

func TestPubSubMessage_Event_base64(t *testing.T) {
	enc := base64.StdEncoding.EncodeToString([]byte(`{"bucket":"b","name":"f.json"}`))
	data, err := json.Marshal(enc)
	if err != nil {
		t.Fatal(err)
	}

	m := PubSubMessage{Data: data}

	e, err := m.Event()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Both payload shapes must decode to the same pair.
	direct := Event{Bucket: "b", Name: "f.json"}
	if e != direct {
		t.Errorf("base64 envelope should decode to %+v, but %+v", direct, e)
	}
}

func TestPubSubMessage_Event_malformed(t *testing.T) {
	cases := map[string]json.RawMessage{
		"empty data":          nil,
		"unexpected shape":    json.RawMessage(`42`),
		"invalid base64":      json.RawMessage(`"%%%not-base64%%%"`),
		"non-json payload":    json.RawMessage(`"` + base64.StdEncoding.EncodeToString([]byte("nope")) + `"`),
		"missing bucket":      json.RawMessage(`{"name":"f.json"}`),
		"missing name":        json.RawMessage(`{"bucket":"b"}`),
		"empty string fields": json.RawMessage(`{"bucket":"","name":""}`),
	}

	for name, data := range cases {
		t.Run(name, func(t *testing.T) {
			m := PubSubMessage{Data: data}

			if _, err := m.Event(); err == nil {
				t.Error("expected error but no error occurred")
			} else if !IsNonRetryable(err) {
				t.Errorf("error should be classified non-retryable: %v", err)
			}
		})
	}
}
