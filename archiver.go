package orderpipe

import (
	"context"

	"cloud.google.com/go/storage"
	"github.com/rs/zerolog"
	"golang.org/x/xerrors"
)

// objectArchiver is the archive stage seen by the pipeline.
type objectArchiver interface {
	Archive(ctx context.Context, bucket, name string) error
}

// Archiver relocates processed source objects to the archive bucket under
// the same name. The move is copy-then-delete: the original is removed only
// after the copy is confirmed, so a crash mid-archive leaves at worst two
// copies, never zero.
type Archiver struct {
	store         objectStore
	archiveBucket string
}

// NewArchiver builds an Archiver moving objects into archiveBucket.
func NewArchiver(client *storage.Client, archiveBucket string) *Archiver {
	return &Archiver{store: newGCSStore(client), archiveBucket: archiveBucket}
}

// Archive moves bucket/name into the archive bucket. A source object that no
// longer exists is a benign skip; a duplicate trigger usually archived it
// already.
func (a *Archiver) Archive(ctx context.Context, bucket, name string) error {
	l := zerolog.Ctx(ctx)

	ok, err := a.store.exists(ctx, bucket, name)
	if err != nil {
		return xerrors.Errorf("failed to check source object before archiving: %w", err)
	}

	if !ok {
		l.Warn().Str("bucket", bucket).Str("object", name).
			Msg("source object not found for archiving, likely already processed")
		return nil
	}

	if err := a.store.copy(ctx, bucket, name, a.archiveBucket, name); err != nil {
		return xerrors.Errorf("failed to archive object: %w", err)
	}

	if err := a.store.delete(ctx, bucket, name); err != nil {
		return xerrors.Errorf("failed to delete source object after archiving: %w", err)
	}

	l.Info().Str("bucket", bucket).Str("object", name).Str("archive_bucket", a.archiveBucket).
		Msg("object archived")

	return nil
}
