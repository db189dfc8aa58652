package services

import (
	"context"
	"fmt"
	"io"
	"path/filepath"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/lukyamuziB/lenken-backend/internal/apperr"
	"github.com/lukyamuziB/lenken-backend/internal/logger"
	"github.com/lukyamuziB/lenken-backend/internal/repos"
	"github.com/lukyamuziB/lenken-backend/internal/types"
)

// FileService handles session attachments: the metadata row lives in
// postgres, the bytes in the bucket under a generated name.
type FileService interface {
	Upload(ctx context.Context, sessionID, actorID uuid.UUID, name string, content io.Reader) (*types.SessionFile, error)
	List(ctx context.Context, sessionID uuid.UUID) ([]types.SessionFile, error)
	URL(ctx context.Context, fileID uuid.UUID) (string, error)
	Delete(ctx context.Context, fileID, actorID uuid.UUID) error
}

type fileService struct {
	db          *gorm.DB
	log         *logger.Logger
	fileRepo    repos.SessionFileRepo
	sessionRepo repos.SessionRepo
	requestRepo repos.RequestRepo
	bucket      BucketService
}

func NewFileService(db *gorm.DB, log *logger.Logger, fileRepo repos.SessionFileRepo, sessionRepo repos.SessionRepo, requestRepo repos.RequestRepo, bucket BucketService) FileService {
	return &fileService{
		db:          db,
		log:         log.With("service", "FileService"),
		fileRepo:    fileRepo,
		sessionRepo: sessionRepo,
		requestRepo: requestRepo,
		bucket:      bucket,
	}
}

func (fs *fileService) Upload(ctx context.Context, sessionID, actorID uuid.UUID, name string, content io.Reader) (*types.SessionFile, error) {
	if fs.bucket == nil {
		return nil, fmt.Errorf("file storage is not configured")
	}
	session, err := fs.sessionRepo.GetByID(ctx, nil, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch session: %w", err)
	}
	if session == nil {
		return nil, apperr.NotFound("session %s not found", sessionID)
	}
	req, err := fs.requestRepo.GetByID(ctx, nil, session.RequestID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch request: %w", err)
	}
	if req == nil || !req.IsParty(actorID) {
		return nil, apperr.AccessDenied("only a session participant can attach files")
	}

	generated := uuid.New().String() + filepath.Ext(name)
	if err := fs.bucket.UploadFile(ctx, generated, content); err != nil {
		return nil, fmt.Errorf("failed to store file: %w", err)
	}

	file := &types.SessionFile{
		ID:            uuid.New(),
		SessionID:     sessionID,
		UploadedByID:  actorID,
		GeneratedName: generated,
		Name:          name,
	}
	if _, err := fs.fileRepo.Create(ctx, nil, file); err != nil {
		// The row failed after the object landed; remove the orphan.
		if dErr := fs.bucket.DeleteFile(ctx, generated); dErr != nil {
			fs.log.Error("Failed to remove orphaned bucket object", "key", generated, "error", dErr)
		}
		return nil, fmt.Errorf("failed to record file: %w", err)
	}
	return file, nil
}

func (fs *fileService) List(ctx context.Context, sessionID uuid.UUID) ([]types.SessionFile, error) {
	return fs.fileRepo.ListBySession(ctx, nil, sessionID)
}

func (fs *fileService) URL(ctx context.Context, fileID uuid.UUID) (string, error) {
	file, err := fs.fileRepo.GetByID(ctx, nil, fileID)
	if err != nil {
		return "", fmt.Errorf("failed to fetch file: %w", err)
	}
	if file == nil {
		return "", apperr.NotFound("file %s not found", fileID)
	}
	return fs.bucket.GetPublicURL(file.GeneratedName), nil
}

func (fs *fileService) Delete(ctx context.Context, fileID, actorID uuid.UUID) error {
	file, err := fs.fileRepo.GetByID(ctx, nil, fileID)
	if err != nil {
		return fmt.Errorf("failed to fetch file: %w", err)
	}
	if file == nil {
		return apperr.NotFound("file %s not found", fileID)
	}
	if file.UploadedByID != actorID {
		return apperr.AccessDenied("only the uploader can delete a file")
	}
	if err := fs.fileRepo.Delete(ctx, nil, fileID); err != nil {
		return fmt.Errorf("failed to delete file record: %w", err)
	}
	if err := fs.bucket.DeleteFile(ctx, file.GeneratedName); err != nil {
		// Metadata is gone; the stray object is only logged.
		fs.log.Error("Failed to delete bucket object", "key", file.GeneratedName, "error", err)
	}
	return nil
}
