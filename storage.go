package orderpipe

import (
	"context"
	"io"

	"cloud.google.com/go/storage"
	"golang.org/x/xerrors"
)

// objectStore is the slice of the object-storage surface the pipeline
// consumes. The default implementation is Cloud Storage; tests swap in an
// in-memory fake.
type objectStore interface {
	exists(ctx context.Context, bucket, name string) (bool, error)
	read(ctx context.Context, bucket, name string) ([]byte, error)
	write(ctx context.Context, bucket, name, contentType string, data []byte) error
	copy(ctx context.Context, srcBucket, srcName, dstBucket, dstName string) error
	delete(ctx context.Context, bucket, name string) error
}

type gcsStore struct {
	client *storage.Client
}

func newGCSStore(client *storage.Client) *gcsStore {
	return &gcsStore{client: client}
}

func (s *gcsStore) exists(ctx context.Context, bucket, name string) (bool, error) {
	_, err := s.client.Bucket(bucket).Object(name).Attrs(ctx)
	if err == storage.ErrObjectNotExist {
		return false, nil
	}
	if err != nil {
		return false, xerrors.Errorf("failed to stat gs://%s/%s: %w", bucket, name, err)
	}

	return true, nil
}

func (s *gcsStore) read(ctx context.Context, bucket, name string) ([]byte, error) {
	r, err := s.client.Bucket(bucket).Object(name).NewReader(ctx)
	if err != nil {
		return nil, xerrors.Errorf("failed to open gs://%s/%s: %w", bucket, name, err)
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, xerrors.Errorf("failed to read gs://%s/%s: %w", bucket, name, err)
	}

	return data, nil
}

func (s *gcsStore) write(ctx context.Context, bucket, name, contentType string, data []byte) error {
	w := s.client.Bucket(bucket).Object(name).NewWriter(ctx)
	w.ContentType = contentType

	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return xerrors.Errorf("failed to write gs://%s/%s: %w", bucket, name, err)
	}

	if err := w.Close(); err != nil {
		return xerrors.Errorf("failed to finalize gs://%s/%s: %w", bucket, name, err)
	}

	return nil
}

func (s *gcsStore) copy(ctx context.Context, srcBucket, srcName, dstBucket, dstName string) error {
	src := s.client.Bucket(srcBucket).Object(srcName)
	dst := s.client.Bucket(dstBucket).Object(dstName)

	if _, err := dst.CopierFrom(src).Run(ctx); err != nil {
		return xerrors.Errorf("failed to copy gs://%s/%s to gs://%s/%s: %w",
			srcBucket, srcName, dstBucket, dstName, err)
	}

	return nil
}

func (s *gcsStore) delete(ctx context.Context, bucket, name string) error {
	if err := s.client.Bucket(bucket).Object(name).Delete(ctx); err != nil {
		return xerrors.Errorf("failed to delete gs://%s/%s: %w", bucket, name, err)
	}

	return nil
}
