package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/lukyamuziB/lenken-backend/internal/apperr"
	"github.com/lukyamuziB/lenken-backend/internal/clients/timetracker"
	"github.com/lukyamuziB/lenken-backend/internal/logger"
	"github.com/lukyamuziB/lenken-backend/internal/repos"
	"github.com/lukyamuziB/lenken-backend/internal/schedule"
	"github.com/lukyamuziB/lenken-backend/internal/types"
)

type LogSessionInput struct {
	Date      time.Time `json:"date"`
	StartTime string    `json:"start_time"`
	EndTime   string    `json:"end_time"`
}

type SessionService interface {
	LogSession(ctx context.Context, requestID, actorID uuid.UUID, input LogSessionInput) (*types.Session, error)
	ApproveSession(ctx context.Context, sessionID, actorID uuid.UUID) (*types.Session, error)
	RejectSession(ctx context.Context, sessionID, actorID uuid.UUID) (*types.Session, error)
	// SessionDates is the schedule view: all past dates classified plus only
	// the next upcoming one.
	SessionDates(ctx context.Context, requestID uuid.UUID, now time.Time) ([]schedule.SessionDate, error)
	// SessionReport classifies every expected date, future ones included.
	SessionReport(ctx context.Context, requestID uuid.UUID, now time.Time) ([]schedule.SessionDate, error)
}

type sessionService struct {
	db          *gorm.DB
	log         *logger.Logger
	requestRepo repos.RequestRepo
	sessionRepo repos.SessionRepo
	userRepo    repos.UserRepo
	tracker     timetracker.Client
	notifier    NotificationService
	fallbackTo  string
}

func NewSessionService(
	db *gorm.DB,
	log *logger.Logger,
	requestRepo repos.RequestRepo,
	sessionRepo repos.SessionRepo,
	userRepo repos.UserRepo,
	tracker timetracker.Client,
	notifier NotificationService,
	fallbackEmail string,
) SessionService {
	return &sessionService{
		db:          db,
		log:         log.With("service", "SessionService"),
		requestRepo: requestRepo,
		sessionRepo: sessionRepo,
		userRepo:    userRepo,
		tracker:     tracker,
		notifier:    notifier,
		fallbackTo:  fallbackEmail,
	}
}

func (ss *sessionService) LogSession(ctx context.Context, requestID, actorID uuid.UUID, input LogSessionInput) (*types.Session, error) {
	req, err := ss.requestRepo.GetByID(ctx, nil, requestID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch request: %w", err)
	}
	if req == nil {
		return nil, apperr.NotFound("mentorship request %s not found", requestID)
	}
	if !req.IsParty(actorID) {
		return nil, apperr.AccessDenied("only the request's mentor or mentee can log a session")
	}
	if req.Status != types.RequestStatusMatched {
		return nil, apperr.Conflict("sessions can only be logged on a matched request")
	}

	date := schedule.DateOf(input.Date.UTC())
	now := time.Now()

	session := &types.Session{
		ID:        uuid.New(),
		RequestID: requestID,
		Date:      date,
		StartTime: input.StartTime,
		EndTime:   input.EndTime,
	}
	isMentee := req.MenteeID != nil && *req.MenteeID == actorID
	if isMentee {
		session.MenteeApproval = types.ApprovalApproved
		session.MenteeLoggedAt = &now
		session.MentorApproval = types.ApprovalUnset
	} else {
		session.MentorApproval = types.ApprovalApproved
		session.MentorLoggedAt = &now
		session.MenteeApproval = types.ApprovalUnset
	}

	// Check-then-insert inside one transaction; the unique index on
	// (request_id, date) backstops concurrent loggers.
	err = ss.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := ss.sessionRepo.GetByRequestAndDate(ctx, tx, requestID, date)
		if err != nil {
			return err
		}
		if existing != nil {
			return apperr.Conflict("a session is already logged for %s", date.Format("2006-01-02"))
		}
		_, err = ss.sessionRepo.Create(ctx, tx, session)
		return err
	})
	if err != nil {
		if apperr.IsConflict(err) {
			return nil, err
		}
		// A concurrent logger can slip past the read; the unique index
		// rejects the loser and that is still a conflict, not a failure.
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperr.Conflict("a session is already logged for %s", date.Format("2006-01-02"))
		}
		return nil, fmt.Errorf("failed to log session: %w", err)
	}
	return session, nil
}

func (ss *sessionService) ApproveSession(ctx context.Context, sessionID, actorID uuid.UUID) (*types.Session, error) {
	session, req, err := ss.loadSessionForActor(ctx, sessionID, actorID)
	if err != nil {
		return nil, err
	}

	wasConfirmed := session.Confirmed()
	now := time.Now()
	isMentee := req.MenteeID != nil && *req.MenteeID == actorID

	if isMentee {
		if session.MenteeApproval != types.ApprovalApproved {
			session.MenteeApproval = types.ApprovalApproved
			session.MenteeLoggedAt = &now
		}
	} else {
		if session.MentorApproval != types.ApprovalApproved {
			session.MentorApproval = types.ApprovalApproved
			session.MentorLoggedAt = &now
		}
	}

	if err := ss.sessionRepo.Save(ctx, nil, session); err != nil {
		return nil, fmt.Errorf("failed to save session approval: %w", err)
	}

	// The confirmation side effect fires on the transition only, so a
	// repeated approve call cannot double-log hours.
	if !wasConfirmed && session.Confirmed() {
		ss.logHours(ctx, req, session)
	}
	return session, nil
}

func (ss *sessionService) RejectSession(ctx context.Context, sessionID, actorID uuid.UUID) (*types.Session, error) {
	session, req, err := ss.loadSessionForActor(ctx, sessionID, actorID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	if req.MenteeID != nil && *req.MenteeID == actorID {
		session.MenteeApproval = types.ApprovalRejected
		session.MenteeLoggedAt = &now
	} else {
		session.MentorApproval = types.ApprovalRejected
		session.MentorLoggedAt = &now
	}

	if err := ss.sessionRepo.Save(ctx, nil, session); err != nil {
		return nil, fmt.Errorf("failed to save session rejection: %w", err)
	}
	return session, nil
}

func (ss *sessionService) loadSessionForActor(ctx context.Context, sessionID, actorID uuid.UUID) (*types.Session, *types.MentorshipRequest, error) {
	session, err := ss.sessionRepo.GetByID(ctx, nil, sessionID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to fetch session: %w", err)
	}
	if session == nil {
		return nil, nil, apperr.NotFound("session %s not found", sessionID)
	}
	req, err := ss.requestRepo.GetByID(ctx, nil, session.RequestID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to fetch request: %w", err)
	}
	if req == nil {
		return nil, nil, apperr.NotFound("mentorship request %s not found", session.RequestID)
	}
	if !req.IsParty(actorID) {
		return nil, nil, apperr.AccessDenied("only the request's mentor or mentee can act on this session")
	}
	return session, req, nil
}

// logHours posts the confirmed session to the external time tracker on the
// mentor's behalf. Failure degrades to a fallback email; the session stays
// confirmed either way.
func (ss *sessionService) logHours(ctx context.Context, req *types.MentorshipRequest, session *types.Session) {
	if ss.tracker == nil || req.MentorID == nil {
		return
	}

	fallback := func(reason string, err error) {
		ss.log.Error("Time tracker entry failed, sending fallback notification",
			"session_id", session.ID, "reason", reason, "error", err)
		ss.notifier.SendEmail(ctx, MailTimeTrackerFallback, []string{ss.fallbackTo}, map[string]interface{}{
			"session_id": session.ID.String(),
			"request_id": req.ID.String(),
			"date":       session.Date.Format("2006-01-02"),
			"reason":     reason,
		})
	}

	mentors, err := ss.userRepo.GetByIDs(ctx, nil, []uuid.UUID{*req.MentorID})
	if err != nil || len(mentors) == 0 {
		fallback("mentor lookup failed", err)
		return
	}
	mentor := mentors[0]

	account, err := ss.tracker.GetUserByEmail(ctx, mentor.Email)
	if err != nil {
		fallback("time tracker account lookup failed", err)
		return
	}

	minutes := sessionMinutes(session.StartTime, session.EndTime)
	if _, err := ss.tracker.PostEntry(ctx, timetracker.Entry{
		Date:        session.Date.Format("2006-01-02"),
		UserID:      account.ID,
		Minutes:     minutes,
		Description: fmt.Sprintf("Mentorship session for request %q", req.Title),
	}); err != nil {
		fallback("time tracker entry rejected", err)
	}
}

// sessionMinutes derives the session length from HH:MM bounds, defaulting to
// an hour when the bounds are absent or inverted.
func sessionMinutes(start, end string) int {
	s, sErr := time.Parse("15:04", start)
	e, eErr := time.Parse("15:04", end)
	if sErr != nil || eErr != nil || !e.After(s) {
		return 60
	}
	return int(e.Sub(s).Minutes())
}

func (ss *sessionService) SessionDates(ctx context.Context, requestID uuid.UUID, now time.Time) ([]schedule.SessionDate, error) {
	expected, sessions, localNow, err := ss.expectedAndLogged(ctx, requestID, now)
	if err != nil {
		return nil, err
	}
	return schedule.Reconcile(expected, sessions, localNow), nil
}

func (ss *sessionService) SessionReport(ctx context.Context, requestID uuid.UUID, now time.Time) ([]schedule.SessionDate, error) {
	expected, sessions, localNow, err := ss.expectedAndLogged(ctx, requestID, now)
	if err != nil {
		return nil, err
	}
	return schedule.ReconcileAll(expected, sessions, localNow), nil
}

func (ss *sessionService) expectedAndLogged(ctx context.Context, requestID uuid.UUID, now time.Time) ([]time.Time, []types.Session, time.Time, error) {
	req, err := ss.requestRepo.GetByID(ctx, nil, requestID)
	if err != nil {
		return nil, nil, now, fmt.Errorf("failed to fetch request: %w", err)
	}
	if req == nil {
		return nil, nil, now, apperr.NotFound("mentorship request %s not found", requestID)
	}
	if req.MatchDate == nil {
		return nil, nil, now, apperr.Conflict("request %s has no match date", requestID)
	}

	pairing := req.Pairing.Data()
	loc, err := time.LoadLocation(pairing.Timezone)
	if err != nil {
		ss.log.Warn("Unknown pairing timezone, falling back to UTC", "request_id", req.ID, "timezone", pairing.Timezone)
		loc = time.UTC
	}

	start := req.MatchDate.In(loc)
	end := req.ExpiresAt().In(loc)
	expected := schedule.SessionDates(start, end, pairing.Days)

	sessions, err := ss.sessionRepo.ListByRequest(ctx, nil, requestID)
	if err != nil {
		return nil, nil, now, fmt.Errorf("failed to list sessions: %w", err)
	}
	return expected, sessions, now.In(loc), nil
}
