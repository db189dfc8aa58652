package services

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/lukyamuziB/lenken-backend/internal/apperr"
	"github.com/lukyamuziB/lenken-backend/internal/logger"
	"github.com/lukyamuziB/lenken-backend/internal/repos"
	"github.com/lukyamuziB/lenken-backend/internal/schedule"
	"github.com/lukyamuziB/lenken-backend/internal/types"
)

type CreateRequestInput struct {
	Title       string        `json:"title"`
	Description string        `json:"description"`
	Duration    float64       `json:"duration"`
	Pairing     types.Pairing `json:"pairing"`
}

type RequestService interface {
	Create(ctx context.Context, creatorID uuid.UUID, input CreateRequestInput) (*types.MentorshipRequest, error)
	Get(ctx context.Context, id uuid.UUID) (*types.MentorshipRequest, error)
	List(ctx context.Context, status types.RequestStatus, userID *uuid.UUID) ([]*types.MentorshipRequest, error)
	IndicateInterest(ctx context.Context, requestID, actorID uuid.UUID) (*types.MentorshipRequest, error)
	WithdrawInterest(ctx context.Context, requestID, actorID uuid.UUID) (*types.MentorshipRequest, error)
	Match(ctx context.Context, requestID, actorID, mentorID uuid.UUID) (*types.MentorshipRequest, error)
	Cancel(ctx context.Context, requestID, actorID uuid.UUID, reason string, isAdmin bool) (*types.MentorshipRequest, error)
	CompleteElapsed(ctx context.Context, now time.Time) (int, error)
}

type requestService struct {
	db          *gorm.DB
	log         *logger.Logger
	requestRepo repos.RequestRepo
	userRepo    repos.UserRepo
	notifier    NotificationService
}

var timeOfDayPattern = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d$`)

func NewRequestService(db *gorm.DB, log *logger.Logger, requestRepo repos.RequestRepo, userRepo repos.UserRepo, notifier NotificationService) RequestService {
	return &requestService{
		db:          db,
		log:         log.With("service", "RequestService"),
		requestRepo: requestRepo,
		userRepo:    userRepo,
		notifier:    notifier,
	}
}

func validatePairing(p types.Pairing) map[string]string {
	fields := map[string]string{}
	if len(p.Days) == 0 {
		fields["pairing.days"] = "required"
	} else if len(schedule.ParseWeekdays(p.Days)) != len(p.Days) {
		fields["pairing.days"] = "must be distinct lower-case weekday names"
	}
	if !timeOfDayPattern.MatchString(p.StartTime) {
		fields["pairing.start_time"] = "must be HH:MM"
	}
	if !timeOfDayPattern.MatchString(p.EndTime) {
		fields["pairing.end_time"] = "must be HH:MM"
	}
	if p.Timezone == "" {
		fields["pairing.timezone"] = "required"
	} else if _, err := time.LoadLocation(p.Timezone); err != nil {
		fields["pairing.timezone"] = "unknown timezone"
	}
	if len(fields) == 0 {
		return nil
	}
	return fields
}

func (rs *requestService) Create(ctx context.Context, creatorID uuid.UUID, input CreateRequestInput) (*types.MentorshipRequest, error) {
	fields := map[string]string{}
	if input.Title == "" {
		fields["title"] = "required"
	}
	if input.Duration <= 0 {
		fields["duration"] = "must be a positive number of months"
	}
	for k, v := range validatePairing(input.Pairing) {
		fields[k] = v
	}
	if len(fields) > 0 {
		return nil, apperr.Validation("invalid mentorship request", fields)
	}

	req := &types.MentorshipRequest{
		ID:          uuid.New(),
		CreatedByID: creatorID,
		Title:       input.Title,
		Description: input.Description,
		Status:      types.RequestStatusOpen,
		Duration:    input.Duration,
		Pairing:     datatypes.NewJSONType(input.Pairing),
		Interested:  datatypes.NewJSONSlice([]uuid.UUID{}),
	}
	created, err := rs.requestRepo.Create(ctx, nil, req)
	if err != nil {
		return nil, fmt.Errorf("failed to create mentorship request: %w", err)
	}
	return created, nil
}

func (rs *requestService) Get(ctx context.Context, id uuid.UUID) (*types.MentorshipRequest, error) {
	req, err := rs.requestRepo.GetByID(ctx, nil, id)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch mentorship request: %w", err)
	}
	if req == nil {
		return nil, apperr.NotFound("mentorship request %s not found", id)
	}
	return req, nil
}

func (rs *requestService) List(ctx context.Context, status types.RequestStatus, userID *uuid.UUID) ([]*types.MentorshipRequest, error) {
	if userID != nil {
		return rs.requestRepo.ListByStatusForUser(ctx, nil, status, *userID)
	}
	return rs.requestRepo.ListByStatus(ctx, nil, status)
}

func (rs *requestService) IndicateInterest(ctx context.Context, requestID, actorID uuid.UUID) (*types.MentorshipRequest, error) {
	var result *types.MentorshipRequest
	err := rs.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		req, err := rs.requestRepo.GetByID(ctx, tx, requestID)
		if err != nil {
			return err
		}
		if req == nil {
			return apperr.NotFound("mentorship request %s not found", requestID)
		}
		if req.Status != types.RequestStatusOpen {
			return apperr.Conflict("interest can only be indicated on an open request")
		}
		if req.CreatedByID == actorID {
			return apperr.Conflict("cannot indicate interest in your own request")
		}
		for _, id := range req.Interested {
			if id == actorID {
				return apperr.Conflict("interest already indicated")
			}
		}
		req.Interested = append(req.Interested, actorID)
		if err := rs.requestRepo.Save(ctx, tx, req); err != nil {
			return fmt.Errorf("failed to save interest: %w", err)
		}
		result = req
		return nil
	})
	if err != nil {
		return nil, err
	}

	rs.notifyInterest(ctx, result, actorID)
	return result, nil
}

func (rs *requestService) notifyInterest(ctx context.Context, req *types.MentorshipRequest, actorID uuid.UUID) {
	users, err := rs.userRepo.GetByIDs(ctx, nil, []uuid.UUID{req.CreatedByID, actorID})
	if err != nil {
		rs.log.Warn("Could not resolve users for interest notification", "request_id", req.ID, "error", err)
		return
	}
	var creator, actor *types.User
	for _, u := range users {
		switch u.ID {
		case req.CreatedByID:
			creator = u
		case actorID:
			actor = u
		}
	}
	if creator == nil || actor == nil {
		return
	}
	rs.notifier.SendEmail(ctx, MailInterestIndicated, []string{creator.Email}, map[string]interface{}{
		"request_id":    req.ID.String(),
		"request_title": req.Title,
		"interested":    actor.FirstName + " " + actor.LastName,
	})
	if creator.SlackHandle != "" {
		rs.notifier.SendSlackMessage(ctx, creator.SlackHandle,
			fmt.Sprintf("%s %s is interested in your mentorship request %q", actor.FirstName, actor.LastName, req.Title))
	}
}

func (rs *requestService) WithdrawInterest(ctx context.Context, requestID, actorID uuid.UUID) (*types.MentorshipRequest, error) {
	var result *types.MentorshipRequest
	err := rs.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		req, err := rs.requestRepo.GetByID(ctx, tx, requestID)
		if err != nil {
			return err
		}
		if req == nil {
			return apperr.NotFound("mentorship request %s not found", requestID)
		}
		kept := make([]uuid.UUID, 0, len(req.Interested))
		found := false
		for _, id := range req.Interested {
			if id == actorID {
				found = true
				continue
			}
			kept = append(kept, id)
		}
		if !found {
			return apperr.NotFound("no interest to withdraw on request %s", requestID)
		}
		req.Interested = kept
		if err := rs.requestRepo.Save(ctx, tx, req); err != nil {
			return fmt.Errorf("failed to withdraw interest: %w", err)
		}
		result = req
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (rs *requestService) Match(ctx context.Context, requestID, actorID, mentorID uuid.UUID) (*types.MentorshipRequest, error) {
	var result *types.MentorshipRequest
	err := rs.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		req, err := rs.requestRepo.GetByID(ctx, tx, requestID)
		if err != nil {
			return err
		}
		if req == nil {
			return apperr.NotFound("mentorship request %s not found", requestID)
		}
		if req.CreatedByID != actorID {
			return apperr.AccessDenied("only the request creator can select a mentor")
		}
		if req.Status != types.RequestStatusOpen {
			return apperr.Conflict("request is not open")
		}
		interested := false
		for _, id := range req.Interested {
			if id == mentorID {
				interested = true
				break
			}
		}
		if !interested {
			return apperr.Conflict("selected mentor has not indicated interest")
		}

		now := time.Now()
		menteeID := req.CreatedByID
		req.MentorID = &mentorID
		req.MenteeID = &menteeID
		req.Status = types.RequestStatusMatched
		req.MatchDate = &now
		if err := rs.requestRepo.Save(ctx, tx, req); err != nil {
			return fmt.Errorf("failed to match request: %w", err)
		}
		result = req
		return nil
	})
	if err != nil {
		return nil, err
	}

	rs.notifyMatch(ctx, result)
	return result, nil
}

func (rs *requestService) notifyMatch(ctx context.Context, req *types.MentorshipRequest) {
	ids := []uuid.UUID{}
	if req.MentorID != nil {
		ids = append(ids, *req.MentorID)
	}
	if req.MenteeID != nil {
		ids = append(ids, *req.MenteeID)
	}
	users, err := rs.userRepo.GetByIDs(ctx, nil, ids)
	if err != nil {
		rs.log.Warn("Could not resolve users for match notification", "request_id", req.ID, "error", err)
		return
	}
	emails := make([]string, 0, len(users))
	for _, u := range users {
		emails = append(emails, u.Email)
		if u.SlackHandle != "" {
			rs.notifier.SendSlackMessage(ctx, u.SlackHandle,
				fmt.Sprintf("Your mentorship request %q has been matched", req.Title))
		}
	}
	rs.notifier.SendEmail(ctx, MailRequestMatched, emails, map[string]interface{}{
		"request_id":    req.ID.String(),
		"request_title": req.Title,
		"match_date":    req.MatchDate,
	})
}

func (rs *requestService) Cancel(ctx context.Context, requestID, actorID uuid.UUID, reason string, isAdmin bool) (*types.MentorshipRequest, error) {
	var result *types.MentorshipRequest
	err := rs.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		req, err := rs.requestRepo.GetByID(ctx, tx, requestID)
		if err != nil {
			return err
		}
		if req == nil {
			return apperr.NotFound("mentorship request %s not found", requestID)
		}
		if req.CreatedByID != actorID && !isAdmin {
			return apperr.AccessDenied("only the request creator or an admin can cancel a request")
		}
		if req.Status == types.RequestStatusCancelled {
			return apperr.Conflict("request is already cancelled")
		}
		if req.Status == types.RequestStatusCompleted {
			return apperr.Conflict("a completed request cannot be cancelled")
		}
		req.Status = types.RequestStatusCancelled
		req.CancellationReason = reason
		if err := rs.requestRepo.Save(ctx, tx, req); err != nil {
			return fmt.Errorf("failed to cancel request: %w", err)
		}
		result = req
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// CompleteElapsed transitions matched requests whose duration has run out.
// Run from the notifications daemon; idempotent across runs.
func (rs *requestService) CompleteElapsed(ctx context.Context, now time.Time) (int, error) {
	matched, err := rs.requestRepo.ListMatchedWithSessions(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to list matched requests: %w", err)
	}
	completed := 0
	for _, req := range matched {
		expires := req.ExpiresAt()
		if expires == nil || now.Before(*expires) {
			continue
		}
		// Status-only write: these rows come in with Sessions preloaded and a
		// full Save would re-upsert the association rows on every sweep.
		if err := rs.requestRepo.UpdateStatus(ctx, nil, req.ID, types.RequestStatusCompleted); err != nil {
			rs.log.Error("Failed to complete elapsed request", "request_id", req.ID, "error", err)
			continue
		}
		completed++
	}
	return completed, nil
}
