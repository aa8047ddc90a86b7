package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/lyzr/imagehost/cmd/imagehost/models"
	"github.com/lyzr/imagehost/cmd/imagehost/repository"
	"github.com/lyzr/imagehost/common/blob"
	"github.com/lyzr/imagehost/common/lock"
	"github.com/lyzr/imagehost/common/logger"
	"github.com/lyzr/imagehost/common/telemetry"
)

// cleanup runs detached from the request so a disconnect cannot interrupt a rollback
const cleanupTimeout = 10 * time.Second

// Upload is one inbound upload request
type Upload struct {
	Filename      string
	ContentLength int64 // -1 when not declared
	Body          io.Reader
}

// UploadOutcome is the result of a successful ingestion
type UploadOutcome struct {
	Record    *models.ImageRecord
	Duplicate bool
}

// Location returns the public path of the stored image
func (o *UploadOutcome) Location() string {
	return o.Record.Location()
}

// UploadPipeline validates an upload, names it, and commits it to the blob store
// and the metadata store so that either both hold it or neither does.
type UploadPipeline struct {
	validator *Validator
	identity  IdentityDeriver
	blobs     blob.Store
	repo      repository.ImageRepository
	locker    lock.Locker
	telemetry *telemetry.Telemetry
	log       *logger.Logger
	now       func() time.Time
}

// NewUploadPipeline creates the pipeline
func NewUploadPipeline(
	validator *Validator,
	identity IdentityDeriver,
	blobs blob.Store,
	repo repository.ImageRepository,
	locker lock.Locker,
	tel *telemetry.Telemetry,
	log *logger.Logger,
) *UploadPipeline {
	return &UploadPipeline{
		validator: validator,
		identity:  identity,
		blobs:     blobs,
		repo:      repo,
		locker:    locker,
		telemetry: tel,
		log:       log,
		now:       time.Now,
	}
}

// Ingest runs Received → SizeChecked → ExtensionChecked → BytesStaged →
// StructurallyValidated → IdentityResolved → DedupHit | Committed.
// Validation failures return before either store is touched.
func (p *UploadPipeline) Ingest(ctx context.Context, up Upload) (*UploadOutcome, error) {
	start := time.Now()
	log := p.log.WithContext(ctx)
	log.Info("upload received", "filename", up.Filename, "content_length", up.ContentLength)

	if err := p.validator.CheckSize(up.ContentLength); err != nil {
		log.Warn("upload rejected", "stage", "size", "error", err)
		return nil, err
	}

	name, err := p.validator.CheckFilename(up.Filename)
	if err != nil {
		log.Warn("upload rejected", "stage", "extension", "error", err)
		return nil, err
	}

	data, err := p.stage(up.Body)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			log.Warn("upload abandoned by client", "stage", "staging", "error", ctxErr)
			return nil, ctxErr
		}
		log.Warn("upload rejected", "stage", "staging", "error", err)
		return nil, err
	}
	p.telemetry.RecordDuration("upload.stage", start)

	decodeStart := time.Now()
	if err := p.validator.CheckContent(name.Ext, data); err != nil {
		log.Warn("upload rejected", "stage", "structure", "error", err)
		return nil, err
	}
	p.telemetry.RecordDuration("upload.decode", decodeStart)

	identity := p.identity.Derive(data)
	log = log.WithIdentity(identity)

	outcome, err := p.commit(ctx, log, identity, name, data)
	if err != nil {
		return nil, err
	}

	p.telemetry.RecordDuration("upload.total", start)
	log.Info("upload complete",
		"original_name", outcome.Record.OriginalName,
		"size_kb", outcome.Record.SizeKB,
		"duplicate", outcome.Duplicate,
	)
	return outcome, nil
}

// stage reads the whole payload, refusing anything above the ceiling
func (p *UploadPipeline) stage(body io.Reader) ([]byte, error) {
	if body == nil {
		return nil, fmt.Errorf("%w: empty body", ErrBadRequest)
	}

	limit := p.validator.MaxBytes()
	data, err := io.ReadAll(io.LimitReader(body, limit+1))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read body", ErrBadRequest)
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("%w: body exceeds limit of %d", ErrPayloadTooLarge, limit)
	}
	return data, nil
}

func (p *UploadPipeline) commit(ctx context.Context, log *logger.Logger, identity string, name FileName, data []byte) (*UploadOutcome, error) {
	commitStart := time.Now()
	defer p.telemetry.RecordDuration("upload.commit", commitStart)

	unlock, err := p.locker.Lock(ctx, identity)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		log.Error("failed to acquire identity lock", "error", err)
		return nil, fmt.Errorf("%w: %v", ErrStorageFailure, err)
	}
	defer unlock()

	if p.identity.Deduplicates() {
		existing, err := p.repo.FindByIdentity(ctx, identity)
		if err == nil {
			log.Info("dedup hit", "stage", "identity")
			return &UploadOutcome{Record: existing, Duplicate: true}, nil
		}
		if !errors.Is(err, repository.ErrNotFound) {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			log.Error("failed to look up identity", "error", err)
			return nil, fmt.Errorf("%w: %v", ErrStorageFailure, err)
		}
	}

	// Nothing is durable yet; a client that went away gets nothing written.
	if err := ctx.Err(); err != nil {
		log.Warn("upload abandoned by client", "stage", "commit")
		return nil, err
	}

	created, err := p.blobs.Put(ctx, identity, name.Ext, data)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		log.Error("blob write failed", "error", err)
		return nil, fmt.Errorf("%w: %v", ErrStorageFailure, err)
	}

	rec := &models.ImageRecord{
		Identity:     identity,
		OriginalName: name.Original,
		SizeKB:       sizeKB(len(data)),
		FileType:     name.FileType(),
		UploadTime:   p.now(),
	}

	if err := p.repo.Insert(ctx, rec); err != nil {
		return p.recoverInsert(ctx, log, rec, created, err)
	}

	p.telemetry.RecordEvent("image.committed", map[string]any{
		"identity": identity,
		"size_kb":  rec.SizeKB,
	})
	return &UploadOutcome{Record: rec}, nil
}

// recoverInsert decides the outcome of a failed metadata insert. A record that
// exists despite the error (a concurrent uploader of the same bytes, or an insert
// that committed before the error surfaced) is a success; otherwise the blob this
// request created is removed.
func (p *UploadPipeline) recoverInsert(ctx context.Context, log *logger.Logger, rec *models.ImageRecord, created bool, insertErr error) (*UploadOutcome, error) {
	cleanupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cleanupTimeout)
	defer cancel()

	duplicate := errors.Is(insertErr, repository.ErrDuplicateIdentity)

	existing, err := p.repo.FindByIdentity(cleanupCtx, rec.Identity)
	switch {
	case err == nil && (duplicate && p.identity.Deduplicates()):
		log.Info("dedup hit", "stage", "insert")
		return &UploadOutcome{Record: existing, Duplicate: true}, nil
	case err == nil && !duplicate:
		log.Warn("insert reported an error but the record is present", "error", insertErr)
		return &UploadOutcome{Record: existing}, nil
	case err != nil && !errors.Is(err, repository.ErrNotFound):
		// Unknown metadata state: keeping the blob cannot leave a record without bytes.
		log.Error("cannot verify metadata after failed insert; blob kept", "insert_error", insertErr, "error", err)
		return nil, fmt.Errorf("%w: %v", ErrStorageFailure, insertErr)
	}

	if created {
		p.rollbackBlob(cleanupCtx, log, rec)
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		log.Warn("upload abandoned by client", "stage", "insert")
		return nil, ctxErr
	}

	log.Error("metadata insert failed", "error", insertErr)
	return nil, fmt.Errorf("%w: %v", ErrStorageFailure, insertErr)
}

func (p *UploadPipeline) rollbackBlob(ctx context.Context, log *logger.Logger, rec *models.ImageRecord) {
	err := p.blobs.Delete(ctx, rec.Identity, rec.Ext())
	if err != nil && !errors.Is(err, blob.ErrNotFound) {
		log.Error("rollback failed; orphaned blob", "blob", rec.Filename(), "error", err)
		return
	}
	log.Info("blob rolled back", "blob", rec.Filename())
}

// sizeKB rounds half up, so 512 bytes is 1 KB
func sizeKB(n int) int64 {
	return (int64(n) + 512) / 1024
}
