package orderpipe

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
)

// memStore is an in-memory objectStore shared by archiver and simulator
// tests.
type memStore struct {
	objects map[string][]byte

	copies  []string
	deletes []string

	copyErr   error
	deleteErr error
}

func newMemStore() *memStore {
	return &memStore{objects: map[string][]byte{}}
}

func key(bucket, name string) string { return bucket + "/" + name }

func (s *memStore) exists(_ context.Context, bucket, name string) (bool, error) {
	_, ok := s.objects[key(bucket, name)]
	return ok, nil
}

func (s *memStore) read(_ context.Context, bucket, name string) ([]byte, error) {
	data, ok := s.objects[key(bucket, name)]
	if !ok {
		return nil, errTest
	}

	return data, nil
}

func (s *memStore) write(_ context.Context, bucket, name, _ string, data []byte) error {
	s.objects[key(bucket, name)] = data
	return nil
}

func (s *memStore) copy(_ context.Context, srcBucket, srcName, dstBucket, dstName string) error {
	if s.copyErr != nil {
		return s.copyErr
	}

	s.copies = append(s.copies, key(srcBucket, srcName)+"->"+key(dstBucket, dstName))
	s.objects[key(dstBucket, dstName)] = s.objects[key(srcBucket, srcName)]

	return nil
}

func (s *memStore) delete(_ context.Context, bucket, name string) error {
	if s.deleteErr != nil {
		return s.deleteErr
	}

	s.deletes = append(s.deletes, key(bucket, name))
	delete(s.objects, key(bucket, name))

	return nil
}

func testCtx() context.Context {
	return zerolog.Nop().WithContext(context.Background())
}

func TestArchiver_Archive(t *testing.T) {
	store := newMemStore()
	store.objects["src/f.json"] = []byte("data")

	a := &Archiver{store: store, archiveBucket: "archive"}

	if err := a.Archive(testCtx(), "src", "f.json"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, ok := store.objects["archive/f.json"]; !ok {
		t.Error("object should exist in the archive bucket")
	}

	if _, ok := store.objects["src/f.json"]; ok {
		t.Error("source object should be deleted after the copy")
	}

	if len(store.copies) != 1 || store.copies[0] != "src/f.json->archive/f.json" {
		t.Errorf("unexpected copies: %v", store.copies)
	}
}

func TestArchiver_Archive_missingSource(t *testing.T) {
	store := newMemStore()

	a := &Archiver{store: store, archiveBucket: "archive"}

	if err := a.Archive(testCtx(), "src", "gone.json"); err != nil {
		t.Errorf("missing source should be a benign skip, got %v", err)
	}

	if len(store.deletes) != 0 {
		t.Errorf("delete should not be called for a missing source, saw %v", store.deletes)
	}
}

func TestArchiver_Archive_copyFailure(t *testing.T) {
	store := newMemStore()
	store.objects["src/f.json"] = []byte("data")
	store.copyErr = errTest

	a := &Archiver{store: store, archiveBucket: "archive"}

	if err := a.Archive(testCtx(), "src", "f.json"); err == nil {
		t.Error("expected error but no error occurred")
	}

	if len(store.deletes) != 0 {
		t.Errorf("source must never be deleted before a confirmed copy, saw %v", store.deletes)
	}
}
