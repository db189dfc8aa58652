package services

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/lukyamuziB/lenken-backend/internal/apperr"
	"github.com/lukyamuziB/lenken-backend/internal/logger"
	"github.com/lukyamuziB/lenken-backend/internal/repos"
	"github.com/lukyamuziB/lenken-backend/internal/types"
)

type RateSessionInput struct {
	Values map[string]int `json:"values"`
	Scale  int            `json:"scale"`
}

type RatingService interface {
	RateSession(ctx context.Context, sessionID, actorID uuid.UUID, input RateSessionInput) (*types.Rating, error)
	UserSummary(ctx context.Context, userID uuid.UUID) (*types.RatingSummary, error)
}

type ratingService struct {
	db          *gorm.DB
	log         *logger.Logger
	ratingRepo  repos.RatingRepo
	sessionRepo repos.SessionRepo
	requestRepo repos.RequestRepo
}

func NewRatingService(db *gorm.DB, log *logger.Logger, ratingRepo repos.RatingRepo, sessionRepo repos.SessionRepo, requestRepo repos.RequestRepo) RatingService {
	return &ratingService{
		db:          db,
		log:         log.With("service", "RatingService"),
		ratingRepo:  ratingRepo,
		sessionRepo: sessionRepo,
		requestRepo: requestRepo,
	}
}

func (rs *ratingService) RateSession(ctx context.Context, sessionID, actorID uuid.UUID, input RateSessionInput) (*types.Rating, error) {
	fields := map[string]string{}
	if len(input.Values) == 0 {
		fields["values"] = "required"
	}
	if input.Scale <= 0 {
		fields["scale"] = "must be positive"
	}
	for criterion, v := range input.Values {
		if v < 0 || v > input.Scale {
			fields["values."+criterion] = fmt.Sprintf("must be between 0 and %d", input.Scale)
		}
	}
	if len(fields) > 0 {
		return nil, apperr.Validation("invalid rating", fields)
	}

	session, err := rs.sessionRepo.GetByID(ctx, nil, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch session: %w", err)
	}
	if session == nil {
		return nil, apperr.NotFound("session %s not found", sessionID)
	}
	req, err := rs.requestRepo.GetByID(ctx, nil, session.RequestID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch request: %w", err)
	}
	if req == nil {
		return nil, apperr.NotFound("mentorship request %s not found", session.RequestID)
	}
	if !req.IsParty(actorID) {
		return nil, apperr.AccessDenied("only a session participant can rate it")
	}

	rating := &types.Rating{
		ID:        uuid.New(),
		SessionID: sessionID,
		UserID:    actorID,
		Values:    datatypes.NewJSONType(input.Values),
		Scale:     input.Scale,
	}

	// Duplicate submissions must fail, not overwrite: check inside the
	// transaction, with the unique index on (session_id, user_id) as the
	// concurrent-writer backstop.
	err = rs.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := rs.ratingRepo.GetBySessionAndUser(ctx, tx, sessionID, actorID)
		if err != nil {
			return err
		}
		if existing != nil {
			return apperr.Conflict("session %s is already rated by this user", sessionID)
		}
		_, err = rs.ratingRepo.Create(ctx, tx, rating)
		return err
	})
	if err != nil {
		if apperr.IsConflict(err) {
			return nil, err
		}
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperr.Conflict("session %s is already rated by this user", sessionID)
		}
		return nil, fmt.Errorf("failed to create rating: %w", err)
	}
	return rating, nil
}

func (rs *ratingService) UserSummary(ctx context.Context, userID uuid.UUID) (*types.RatingSummary, error) {
	ratings, err := rs.ratingRepo.ListByUser(ctx, nil, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list ratings: %w", err)
	}
	if len(ratings) == 0 {
		return &types.RatingSummary{}, nil
	}

	sessionIDs := make([]uuid.UUID, 0, len(ratings))
	for _, r := range ratings {
		sessionIDs = append(sessionIDs, r.SessionID)
	}
	sessions, err := rs.sessionRepo.GetByIDs(ctx, nil, sessionIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch rated sessions: %w", err)
	}
	requestBySession := make(map[uuid.UUID]uuid.UUID, len(sessions))
	requestIDs := make([]uuid.UUID, 0, len(sessions))
	for _, s := range sessions {
		requestBySession[s.ID] = s.RequestID
		requestIDs = append(requestIDs, s.RequestID)
	}
	requests, err := rs.requestRepo.GetByIDs(ctx, nil, requestIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch rated requests: %w", err)
	}
	requestByID := make(map[uuid.UUID]*types.MentorshipRequest, len(requests))
	for _, r := range requests {
		requestByID[r.ID] = r
	}

	roleOf := func(r types.Rating) (string, bool) {
		req := requestByID[requestBySession[r.SessionID]]
		if req == nil {
			return "", false
		}
		if req.MenteeID != nil && *req.MenteeID == r.UserID {
			return "mentee", true
		}
		if req.MentorID != nil && *req.MentorID == r.UserID {
			return "mentor", true
		}
		return "", false
	}

	return aggregateRatings(ratings, roleOf), nil
}

// aggregateRatings flattens every criterion value across a user's ratings
// into two running role-specific lists. The per-rating values are never
// pre-averaged; the overall average is the simple mean of the two role
// averages, not a weighted mean over all values.
func aggregateRatings(ratings []types.Rating, roleOf func(types.Rating) (string, bool)) *types.RatingSummary {
	var mentorValues, menteeValues []int
	for _, r := range ratings {
		role, ok := roleOf(r)
		if !ok {
			continue
		}
		for _, v := range r.Values.Data() {
			if role == "mentor" {
				mentorValues = append(mentorValues, v)
			} else {
				menteeValues = append(menteeValues, v)
			}
		}
	}

	summary := &types.RatingSummary{TotalRatings: len(ratings)}
	summary.AverageMentorRating = roundTo(mean(mentorValues), 1)
	summary.AverageMenteeRating = roundTo(mean(menteeValues), 1)

	switch {
	case len(mentorValues) > 0 && len(menteeValues) > 0:
		summary.AverageRating = roundTo((summary.AverageMentorRating+summary.AverageMenteeRating)/2, 2)
	case len(mentorValues) > 0:
		summary.AverageRating = summary.AverageMentorRating
	case len(menteeValues) > 0:
		summary.AverageRating = summary.AverageMenteeRating
	}
	return summary
}

func mean(values []int) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0
	for _, v := range values {
		sum += v
	}
	return float64(sum) / float64(len(values))
}

func roundTo(v float64, places int) float64 {
	factor := math.Pow(10, float64(places))
	return math.Round(v*factor) / factor
}
