package repos

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/lukyamuziB/lenken-backend/internal/logger"
	"github.com/lukyamuziB/lenken-backend/internal/types"
)

type RequestRepo interface {
	Create(ctx context.Context, tx *gorm.DB, req *types.MentorshipRequest) (*types.MentorshipRequest, error)
	// GetByID returns (nil, nil) when the request does not exist; the service
	// layer decides whether that is a NotFound.
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.MentorshipRequest, error)
	GetByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) ([]*types.MentorshipRequest, error)
	ListByStatus(ctx context.Context, tx *gorm.DB, status types.RequestStatus) ([]*types.MentorshipRequest, error)
	ListByStatusForUser(ctx context.Context, tx *gorm.DB, status types.RequestStatus, userID uuid.UUID) ([]*types.MentorshipRequest, error)
	ListOpenCreatedBefore(ctx context.Context, tx *gorm.DB, cutoff time.Time) ([]*types.MentorshipRequest, error)
	ListMatchedWithSessions(ctx context.Context, tx *gorm.DB) ([]*types.MentorshipRequest, error)
	Save(ctx context.Context, tx *gorm.DB, req *types.MentorshipRequest) error
	// UpdateStatus writes only the status column, leaving associations alone.
	UpdateStatus(ctx context.Context, tx *gorm.DB, id uuid.UUID, status types.RequestStatus) error
}

type requestRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewRequestRepo(db *gorm.DB, baseLog *logger.Logger) RequestRepo {
	return &requestRepo{db: db, log: baseLog.With("repo", "RequestRepo")}
}

func (rr *requestRepo) Create(ctx context.Context, tx *gorm.DB, req *types.MentorshipRequest) (*types.MentorshipRequest, error) {
	transaction := tx
	if transaction == nil {
		transaction = rr.db
	}
	if err := transaction.WithContext(ctx).Create(req).Error; err != nil {
		return nil, err
	}
	return req, nil
}

func (rr *requestRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.MentorshipRequest, error) {
	transaction := tx
	if transaction == nil {
		transaction = rr.db
	}
	var result types.MentorshipRequest
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

func (rr *requestRepo) GetByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) ([]*types.MentorshipRequest, error) {
	transaction := tx
	if transaction == nil {
		transaction = rr.db
	}
	var results []*types.MentorshipRequest
	if len(ids) == 0 {
		return results, nil
	}
	if err := transaction.WithContext(ctx).
		Where("id IN ?", ids).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (rr *requestRepo) ListByStatus(ctx context.Context, tx *gorm.DB, status types.RequestStatus) ([]*types.MentorshipRequest, error) {
	transaction := tx
	if transaction == nil {
		transaction = rr.db
	}
	var results []*types.MentorshipRequest
	if err := transaction.WithContext(ctx).
		Where("status = ?", status).
		Order("created_at DESC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (rr *requestRepo) ListByStatusForUser(ctx context.Context, tx *gorm.DB, status types.RequestStatus, userID uuid.UUID) ([]*types.MentorshipRequest, error) {
	transaction := tx
	if transaction == nil {
		transaction = rr.db
	}
	var results []*types.MentorshipRequest
	if err := transaction.WithContext(ctx).
		Where("status = ?", status).
		Where("created_by_id = ? OR mentor_id = ? OR mentee_id = ?", userID, userID, userID).
		Order("created_at DESC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (rr *requestRepo) ListOpenCreatedBefore(ctx context.Context, tx *gorm.DB, cutoff time.Time) ([]*types.MentorshipRequest, error) {
	transaction := tx
	if transaction == nil {
		transaction = rr.db
	}
	var results []*types.MentorshipRequest
	if err := transaction.WithContext(ctx).
		Where("status = ?", types.RequestStatusOpen).
		Where("created_at <= ?", cutoff).
		Order("created_at ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (rr *requestRepo) ListMatchedWithSessions(ctx context.Context, tx *gorm.DB) ([]*types.MentorshipRequest, error) {
	transaction := tx
	if transaction == nil {
		transaction = rr.db
	}
	var results []*types.MentorshipRequest
	if err := transaction.WithContext(ctx).
		Where("status = ?", types.RequestStatusMatched).
		Preload("Sessions").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (rr *requestRepo) Save(ctx context.Context, tx *gorm.DB, req *types.MentorshipRequest) error {
	transaction := tx
	if transaction == nil {
		transaction = rr.db
	}
	return transaction.WithContext(ctx).Save(req).Error
}

func (rr *requestRepo) UpdateStatus(ctx context.Context, tx *gorm.DB, id uuid.UUID, status types.RequestStatus) error {
	transaction := tx
	if transaction == nil {
		transaction = rr.db
	}
	return transaction.WithContext(ctx).
		Model(&types.MentorshipRequest{}).
		Where("id = ?", id).
		Update("status", status).Error
}
