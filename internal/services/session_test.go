package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/lukyamuziB/lenken-backend/internal/apperr"
	"github.com/lukyamuziB/lenken-backend/internal/types"
)

type sessionFixture struct {
	svc      SessionService
	requests *fakeRequestRepo
	sessions *fakeSessionRepo
	tracker  *fakeTracker
	notifier *fakeNotifier
	request  *types.MentorshipRequest
	mentorID uuid.UUID
	menteeID uuid.UUID
}

func newSessionFixture(t *testing.T) *sessionFixture {
	t.Helper()
	mentorID := uuid.New()
	menteeID := uuid.New()
	matchDate := time.Date(2021, time.January, 4, 0, 0, 0, 0, time.UTC)

	req := &types.MentorshipRequest{
		ID:          uuid.New(),
		CreatedByID: menteeID,
		MentorID:    &mentorID,
		MenteeID:    &menteeID,
		Title:       "Learn Go",
		Status:      types.RequestStatusMatched,
		MatchDate:   &matchDate,
		Duration:    2,
		Pairing: datatypes.NewJSONType(types.Pairing{
			StartTime: "18:00",
			EndTime:   "19:00",
			Days:      []string{"monday"},
			Timezone:  "UTC",
		}),
	}

	requests := newFakeRequestRepo()
	_ = requests.Save(context.Background(), nil, req)
	sessions := newFakeSessionRepo()
	users := newFakeUserRepo(
		&types.User{ID: mentorID, Email: "mentor@example.com"},
		&types.User{ID: menteeID, Email: "mentee@example.com"},
	)
	tracker := &fakeTracker{}
	notifier := &fakeNotifier{}

	svc := NewSessionService(testDB(t), testLogger(t), requests, sessions, users, tracker, notifier, "ops@example.com")
	return &sessionFixture{
		svc:      svc,
		requests: requests,
		sessions: sessions,
		tracker:  tracker,
		notifier: notifier,
		request:  req,
		mentorID: mentorID,
		menteeID: menteeID,
	}
}

func TestLogSession(t *testing.T) {
	fx := newSessionFixture(t)
	ctx := context.Background()
	date := time.Date(2021, time.January, 11, 0, 0, 0, 0, time.UTC)

	created, err := fx.svc.LogSession(ctx, fx.request.ID, fx.menteeID, LogSessionInput{
		Date: date, StartTime: "18:00", EndTime: "19:00",
	})
	if err != nil {
		t.Fatalf("LogSession: %v", err)
	}
	if created.MenteeApproval != types.ApprovalApproved {
		t.Fatalf("mentee approval = %q, want approved", created.MenteeApproval)
	}
	if created.MentorApproval != types.ApprovalUnset {
		t.Fatalf("mentor approval = %q, want unset", created.MentorApproval)
	}
	if created.MenteeLoggedAt == nil || created.MentorLoggedAt != nil {
		t.Fatal("only the mentee timestamp should be set")
	}
	if created.Confirmed() {
		t.Fatal("a freshly logged session must not be confirmed")
	}
}

func TestLogSessionDuplicateDateConflicts(t *testing.T) {
	fx := newSessionFixture(t)
	ctx := context.Background()
	date := time.Date(2021, time.January, 11, 0, 0, 0, 0, time.UTC)
	input := LogSessionInput{Date: date, StartTime: "18:00", EndTime: "19:00"}

	if _, err := fx.svc.LogSession(ctx, fx.request.ID, fx.menteeID, input); err != nil {
		t.Fatalf("first LogSession: %v", err)
	}
	_, err := fx.svc.LogSession(ctx, fx.request.ID, fx.mentorID, input)
	if !apperr.IsConflict(err) {
		t.Fatalf("second LogSession error = %v, want conflict", err)
	}
}

// blindSessionRepo behaves like the losing side of a concurrent same-date
// log: the pre-insert read ran before the winner committed and sees nothing,
// then the insert hits the unique index.
type blindSessionRepo struct {
	*fakeSessionRepo
}

func (r *blindSessionRepo) GetByRequestAndDate(ctx context.Context, tx *gorm.DB, requestID uuid.UUID, date time.Time) (*types.Session, error) {
	return nil, nil
}

func (r *blindSessionRepo) Create(ctx context.Context, tx *gorm.DB, session *types.Session) (*types.Session, error) {
	return nil, gorm.ErrDuplicatedKey
}

func TestLogSessionRaceLoserGetsConflict(t *testing.T) {
	fx := newSessionFixture(t)
	svc := NewSessionService(testDB(t), testLogger(t), fx.requests, &blindSessionRepo{fx.sessions},
		newFakeUserRepo(), fx.tracker, fx.notifier, "ops@example.com")

	_, err := svc.LogSession(context.Background(), fx.request.ID, fx.menteeID, LogSessionInput{
		Date: time.Date(2021, time.January, 11, 0, 0, 0, 0, time.UTC), StartTime: "18:00", EndTime: "19:00",
	})
	if !apperr.IsConflict(err) {
		t.Fatalf("error = %v, want conflict when the unique index rejects the insert", err)
	}
}

func TestLogSessionAccessDenied(t *testing.T) {
	fx := newSessionFixture(t)
	_, err := fx.svc.LogSession(context.Background(), fx.request.ID, uuid.New(), LogSessionInput{
		Date: time.Date(2021, time.January, 11, 0, 0, 0, 0, time.UTC),
	})
	if !apperr.IsAccessDenied(err) {
		t.Fatalf("error = %v, want access denied", err)
	}
}

func TestLogSessionUnknownRequest(t *testing.T) {
	fx := newSessionFixture(t)
	_, err := fx.svc.LogSession(context.Background(), uuid.New(), fx.menteeID, LogSessionInput{
		Date: time.Date(2021, time.January, 11, 0, 0, 0, 0, time.UTC),
	})
	if !apperr.IsNotFound(err) {
		t.Fatalf("error = %v, want not found", err)
	}
}

func TestApproveSessionConfirmsAndLogsHoursOnce(t *testing.T) {
	fx := newSessionFixture(t)
	ctx := context.Background()
	date := time.Date(2021, time.January, 11, 0, 0, 0, 0, time.UTC)

	created, err := fx.svc.LogSession(ctx, fx.request.ID, fx.menteeID, LogSessionInput{
		Date: date, StartTime: "18:00", EndTime: "19:00",
	})
	if err != nil {
		t.Fatalf("LogSession: %v", err)
	}

	approved, err := fx.svc.ApproveSession(ctx, created.ID, fx.mentorID)
	if err != nil {
		t.Fatalf("ApproveSession: %v", err)
	}
	if !approved.Confirmed() {
		t.Fatal("session should be confirmed after both approvals")
	}
	if len(fx.tracker.entries) != 1 {
		t.Fatalf("tracker entries = %d, want 1", len(fx.tracker.entries))
	}
	if fx.tracker.entries[0].Minutes != 60 {
		t.Fatalf("entry minutes = %d, want 60", fx.tracker.entries[0].Minutes)
	}

	// Repeating the approval must not post a second entry.
	if _, err := fx.svc.ApproveSession(ctx, created.ID, fx.mentorID); err != nil {
		t.Fatalf("second ApproveSession: %v", err)
	}
	if len(fx.tracker.entries) != 1 {
		t.Fatalf("tracker entries after repeat = %d, want 1", len(fx.tracker.entries))
	}
}

func TestApproveSessionNeverClearsOtherRole(t *testing.T) {
	fx := newSessionFixture(t)
	ctx := context.Background()
	created, err := fx.svc.LogSession(ctx, fx.request.ID, fx.menteeID, LogSessionInput{
		Date: time.Date(2021, time.January, 11, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("LogSession: %v", err)
	}

	if _, err := fx.svc.ApproveSession(ctx, created.ID, fx.menteeID); err != nil {
		t.Fatalf("mentee re-approve: %v", err)
	}
	stored, _ := fx.sessions.GetByID(ctx, nil, created.ID)
	if stored.MenteeApproval != types.ApprovalApproved {
		t.Fatalf("mentee approval = %q, want approved", stored.MenteeApproval)
	}
	if stored.MentorApproval != types.ApprovalUnset {
		t.Fatalf("mentor approval = %q after mentee re-approve, want unset", stored.MentorApproval)
	}
	if !stored.MenteeLoggedAt.Equal(*created.MenteeLoggedAt) {
		t.Fatal("re-approving must not move the original timestamp")
	}
}

func TestApproveSessionTrackerFailureFallsBack(t *testing.T) {
	fx := newSessionFixture(t)
	fx.tracker.fail = true
	ctx := context.Background()

	created, err := fx.svc.LogSession(ctx, fx.request.ID, fx.menteeID, LogSessionInput{
		Date: time.Date(2021, time.January, 11, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("LogSession: %v", err)
	}
	approved, err := fx.svc.ApproveSession(ctx, created.ID, fx.mentorID)
	if err != nil {
		t.Fatalf("ApproveSession must succeed despite tracker failure, got %v", err)
	}
	if !approved.Confirmed() {
		t.Fatal("session must stay confirmed when the tracker fails")
	}
	if len(fx.notifier.mails) != 1 || fx.notifier.mails[0].template != MailTimeTrackerFallback {
		t.Fatalf("expected one fallback mail, got %+v", fx.notifier.mails)
	}
}

func TestRejectSessionLeavesOtherRolePending(t *testing.T) {
	fx := newSessionFixture(t)
	ctx := context.Background()
	created, err := fx.svc.LogSession(ctx, fx.request.ID, fx.menteeID, LogSessionInput{
		Date: time.Date(2021, time.January, 11, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("LogSession: %v", err)
	}

	rejected, err := fx.svc.RejectSession(ctx, created.ID, fx.mentorID)
	if err != nil {
		t.Fatalf("RejectSession: %v", err)
	}
	if rejected.MentorApproval != types.ApprovalRejected {
		t.Fatalf("mentor approval = %q, want rejected", rejected.MentorApproval)
	}
	if rejected.MenteeApproval != types.ApprovalApproved {
		t.Fatalf("mentee approval = %q, want approved (untouched)", rejected.MenteeApproval)
	}
	if !rejected.Rejected() {
		t.Fatal("session should report rejected")
	}
}

func TestApproveSessionNotFound(t *testing.T) {
	fx := newSessionFixture(t)
	_, err := fx.svc.ApproveSession(context.Background(), uuid.New(), fx.mentorID)
	if !apperr.IsNotFound(err) {
		t.Fatalf("error = %v, want not found", err)
	}
}

func TestSessionDatesSurfacesOnlyNextUpcoming(t *testing.T) {
	fx := newSessionFixture(t)
	ctx := context.Background()
	now := time.Date(2021, time.January, 20, 0, 0, 0, 0, time.UTC)

	if _, err := fx.svc.LogSession(ctx, fx.request.ID, fx.menteeID, LogSessionInput{
		Date: time.Date(2021, time.January, 4, 0, 0, 0, 0, time.UTC),
	}); err != nil {
		t.Fatalf("LogSession: %v", err)
	}

	dates, err := fx.svc.SessionDates(ctx, fx.request.ID, now)
	if err != nil {
		t.Fatalf("SessionDates: %v", err)
	}
	// Mondays from Jan 4: 4th (logged once, missed), 11th and 18th missed,
	// 25th upcoming, then stop.
	if len(dates) != 4 {
		t.Fatalf("SessionDates returned %d entries, want 4: %+v", len(dates), dates)
	}
	if dates[len(dates)-1].Status != "upcoming" {
		t.Fatalf("last status = %q, want upcoming", dates[len(dates)-1].Status)
	}

	report, err := fx.svc.SessionReport(ctx, fx.request.ID, now)
	if err != nil {
		t.Fatalf("SessionReport: %v", err)
	}
	if len(report) <= len(dates) {
		t.Fatalf("report should include every expected date, got %d entries", len(report))
	}
}
