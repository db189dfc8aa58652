package repos

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/lukyamuziB/lenken-backend/internal/logger"
	"github.com/lukyamuziB/lenken-backend/internal/types"
)

type RatingRepo interface {
	Create(ctx context.Context, tx *gorm.DB, rating *types.Rating) (*types.Rating, error)
	GetBySessionAndUser(ctx context.Context, tx *gorm.DB, sessionID, userID uuid.UUID) (*types.Rating, error)
	ListByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]types.Rating, error)
}

type ratingRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewRatingRepo(db *gorm.DB, baseLog *logger.Logger) RatingRepo {
	return &ratingRepo{db: db, log: baseLog.With("repo", "RatingRepo")}
}

func (rr *ratingRepo) Create(ctx context.Context, tx *gorm.DB, rating *types.Rating) (*types.Rating, error) {
	transaction := tx
	if transaction == nil {
		transaction = rr.db
	}
	if err := transaction.WithContext(ctx).Create(rating).Error; err != nil {
		return nil, err
	}
	return rating, nil
}

func (rr *ratingRepo) GetBySessionAndUser(ctx context.Context, tx *gorm.DB, sessionID, userID uuid.UUID) (*types.Rating, error) {
	transaction := tx
	if transaction == nil {
		transaction = rr.db
	}
	var result types.Rating
	err := transaction.WithContext(ctx).
		Where("session_id = ? AND user_id = ?", sessionID, userID).
		First(&result).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (rr *ratingRepo) ListByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]types.Rating, error) {
	transaction := tx
	if transaction == nil {
		transaction = rr.db
	}
	var results []types.Rating
	if err := transaction.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
