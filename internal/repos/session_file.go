package repos

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/lukyamuziB/lenken-backend/internal/logger"
	"github.com/lukyamuziB/lenken-backend/internal/types"
)

type SessionFileRepo interface {
	Create(ctx context.Context, tx *gorm.DB, file *types.SessionFile) (*types.SessionFile, error)
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.SessionFile, error)
	ListBySession(ctx context.Context, tx *gorm.DB, sessionID uuid.UUID) ([]types.SessionFile, error)
	Delete(ctx context.Context, tx *gorm.DB, id uuid.UUID) error
}

type sessionFileRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSessionFileRepo(db *gorm.DB, baseLog *logger.Logger) SessionFileRepo {
	return &sessionFileRepo{db: db, log: baseLog.With("repo", "SessionFileRepo")}
}

func (fr *sessionFileRepo) Create(ctx context.Context, tx *gorm.DB, file *types.SessionFile) (*types.SessionFile, error) {
	transaction := tx
	if transaction == nil {
		transaction = fr.db
	}
	if err := transaction.WithContext(ctx).Create(file).Error; err != nil {
		return nil, err
	}
	return file, nil
}

func (fr *sessionFileRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.SessionFile, error) {
	transaction := tx
	if transaction == nil {
		transaction = fr.db
	}
	var result types.SessionFile
	err := transaction.WithContext(ctx).
		Where("id = ?", id).
		First(&result).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (fr *sessionFileRepo) ListBySession(ctx context.Context, tx *gorm.DB, sessionID uuid.UUID) ([]types.SessionFile, error) {
	transaction := tx
	if transaction == nil {
		transaction = fr.db
	}
	var results []types.SessionFile
	if err := transaction.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("created_at ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (fr *sessionFileRepo) Delete(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = fr.db
	}
	return transaction.WithContext(ctx).
		Where("id = ?", id).
		Delete(&types.SessionFile{}).Error
}
