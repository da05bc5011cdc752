package orderpipe

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"time"

	"cloud.google.com/go/storage"
	"github.com/rs/zerolog"
	"golang.org/x/xerrors"
)

// Simulator replays a master CSV as a stream: each step pops the first data
// row, publishes it as a single JSON order object to the staging bucket, and
// writes the shrunken CSV back over the source object. Storage notifications
// on the staging bucket then drive the load pipeline exactly as live traffic
// would.
type Simulator struct {
	store objectStore

	SourceBucket string
	SourceObject string
	DestBucket   string

	now func() time.Time
}

// NewSimulator builds a Simulator reading sourceBucket/sourceObject and
// publishing into destBucket.
func NewSimulator(client *storage.Client, sourceBucket, sourceObject, destBucket string) *Simulator {
	return &Simulator{
		store:        newGCSStore(client),
		SourceBucket: sourceBucket,
		SourceObject: sourceObject,
		DestBucket:   destBucket,
		now:          time.Now,
	}
}

// Step publishes one order and returns the name of the object it created.
// An exhausted source (header only, or empty) returns an empty name and no
// error.
func (s *Simulator) Step(ctx context.Context) (string, error) {
	l := zerolog.Ctx(ctx)

	data, err := s.store.read(ctx, s.SourceBucket, s.SourceObject)
	if err != nil {
		return "", xerrors.Errorf("failed to read source csv: %w", err)
	}

	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1

	rows, err := reader.ReadAll()
	if err != nil {
		return "", xerrors.Errorf("failed to parse source csv: %w", err)
	}

	if len(rows) < 2 {
		l.Info().Str("object", s.SourceObject).Msg("source csv exhausted, nothing to publish")
		return "", nil
	}

	record, err := OrderRecordFromCSV(rows[1])
	if err != nil {
		return "", xerrors.Errorf("failed to convert csv row: %w", err)
	}

	payload, err := json.MarshalIndent(record, "", "    ")
	if err != nil {
		return "", xerrors.Errorf("failed to marshal order record: %w", err)
	}

	name := "simulation_" + s.now().Format("20060102_150405") + ".json"

	if err := s.store.write(ctx, s.DestBucket, name, "application/json", payload); err != nil {
		return "", xerrors.Errorf("failed to publish order object: %w", err)
	}

	remainder, err := marshalCSV(append(rows[:1:1], rows[2:]...))
	if err != nil {
		return "", xerrors.Errorf("failed to rebuild source csv: %w", err)
	}

	if err := s.store.write(ctx, s.SourceBucket, s.SourceObject, "text/csv", remainder); err != nil {
		return "", xerrors.Errorf("failed to write back source csv: %w", err)
	}

	l.Info().Str("object", name).Int("rows_left", len(rows)-2).Msg("published simulated order")

	return name, nil
}

// Run steps on the given interval until the context is canceled or the
// source is exhausted.
func (s *Simulator) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		name, err := s.Step(ctx)
		if err != nil {
			return err
		}

		if name == "" {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func marshalCSV(rows [][]string) ([]byte, error) {
	var buf bytes.Buffer
	if err := csv.NewWriter(&buf).WriteAll(rows); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}
