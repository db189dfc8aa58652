package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/lukyamuziB/lenken-backend/internal/clients/timetracker"
	"github.com/lukyamuziB/lenken-backend/internal/logger"
	"github.com/lukyamuziB/lenken-backend/internal/types"
)

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	return log
}

// testDB opens an in-memory sqlite database so service transactions have a
// real BEGIN/COMMIT to run inside. The fakes below ignore the tx handle, so
// no schema is migrated.
func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	return db
}

type fakeRequestRepo struct {
	mu        sync.Mutex
	requests  map[uuid.UUID]*types.MentorshipRequest
	saveCalls int
}

func newFakeRequestRepo() *fakeRequestRepo {
	return &fakeRequestRepo{requests: map[uuid.UUID]*types.MentorshipRequest{}}
}

func (f *fakeRequestRepo) Create(ctx context.Context, tx *gorm.DB, req *types.MentorshipRequest) (*types.MentorshipRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	copied := *req
	f.requests[req.ID] = &copied
	return req, nil
}

func (f *fakeRequestRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.MentorshipRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	req, ok := f.requests[id]
	if !ok {
		return nil, nil
	}
	copied := *req
	return &copied, nil
}

func (f *fakeRequestRepo) GetByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) ([]*types.MentorshipRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []*types.MentorshipRequest{}
	for _, id := range ids {
		if req, ok := f.requests[id]; ok {
			copied := *req
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (f *fakeRequestRepo) ListByStatus(ctx context.Context, tx *gorm.DB, status types.RequestStatus) ([]*types.MentorshipRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []*types.MentorshipRequest{}
	for _, req := range f.requests {
		if req.Status == status {
			copied := *req
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (f *fakeRequestRepo) ListByStatusForUser(ctx context.Context, tx *gorm.DB, status types.RequestStatus, userID uuid.UUID) ([]*types.MentorshipRequest, error) {
	all, _ := f.ListByStatus(ctx, tx, status)
	out := []*types.MentorshipRequest{}
	for _, req := range all {
		if req.CreatedByID == userID || req.IsParty(userID) {
			out = append(out, req)
		}
	}
	return out, nil
}

func (f *fakeRequestRepo) ListOpenCreatedBefore(ctx context.Context, tx *gorm.DB, cutoff time.Time) ([]*types.MentorshipRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []*types.MentorshipRequest{}
	for _, req := range f.requests {
		if req.Status == types.RequestStatusOpen && !req.CreatedAt.After(cutoff) {
			copied := *req
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (f *fakeRequestRepo) ListMatchedWithSessions(ctx context.Context, tx *gorm.DB) ([]*types.MentorshipRequest, error) {
	return f.ListByStatus(ctx, tx, types.RequestStatusMatched)
}

func (f *fakeRequestRepo) Save(ctx context.Context, tx *gorm.DB, req *types.MentorshipRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saveCalls++
	copied := *req
	f.requests[req.ID] = &copied
	return nil
}

func (f *fakeRequestRepo) UpdateStatus(ctx context.Context, tx *gorm.DB, id uuid.UUID, status types.RequestStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if req, ok := f.requests[id]; ok {
		req.Status = status
	}
	return nil
}

type fakeSessionRepo struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]*types.Session
}

func newFakeSessionRepo() *fakeSessionRepo {
	return &fakeSessionRepo{sessions: map[uuid.UUID]*types.Session{}}
}

func (f *fakeSessionRepo) Create(ctx context.Context, tx *gorm.DB, session *types.Session) (*types.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	copied := *session
	f.sessions[session.ID] = &copied
	return session, nil
}

func (f *fakeSessionRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sessions[id]
	if !ok {
		return nil, nil
	}
	copied := *s
	return &copied, nil
}

func (f *fakeSessionRepo) GetByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) ([]*types.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []*types.Session{}
	for _, id := range ids {
		if s, ok := f.sessions[id]; ok {
			copied := *s
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (f *fakeSessionRepo) GetByRequestAndDate(ctx context.Context, tx *gorm.DB, requestID uuid.UUID, date time.Time) (*types.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.sessions {
		if s.RequestID == requestID && s.Date.Equal(date) {
			copied := *s
			return &copied, nil
		}
	}
	return nil, nil
}

func (f *fakeSessionRepo) ListByRequest(ctx context.Context, tx *gorm.DB, requestID uuid.UUID) ([]types.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []types.Session{}
	for _, s := range f.sessions {
		if s.RequestID == requestID {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (f *fakeSessionRepo) Save(ctx context.Context, tx *gorm.DB, session *types.Session) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	copied := *session
	f.sessions[session.ID] = &copied
	return nil
}

type fakeUserRepo struct {
	mu    sync.Mutex
	users map[uuid.UUID]*types.User
}

func newFakeUserRepo(users ...*types.User) *fakeUserRepo {
	f := &fakeUserRepo{users: map[uuid.UUID]*types.User{}}
	for _, u := range users {
		f.users[u.ID] = u
	}
	return f
}

func (f *fakeUserRepo) Create(ctx context.Context, tx *gorm.DB, users []*types.User) ([]*types.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range users {
		f.users[u.ID] = u
	}
	return users, nil
}

func (f *fakeUserRepo) GetByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) ([]*types.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []*types.User{}
	for _, id := range ids {
		if u, ok := f.users[id]; ok {
			out = append(out, u)
		}
	}
	return out, nil
}

func (f *fakeUserRepo) GetByEmails(ctx context.Context, tx *gorm.DB, emails []string) ([]*types.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []*types.User{}
	for _, email := range emails {
		for _, u := range f.users {
			if u.Email == email {
				out = append(out, u)
			}
		}
	}
	return out, nil
}

func (f *fakeUserRepo) EmailExists(ctx context.Context, tx *gorm.DB, email string) (bool, error) {
	users, _ := f.GetByEmails(ctx, tx, []string{email})
	return len(users) > 0, nil
}

type fakeRatingRepo struct {
	mu      sync.Mutex
	ratings []types.Rating
}

func newFakeRatingRepo() *fakeRatingRepo {
	return &fakeRatingRepo{}
}

func (f *fakeRatingRepo) Create(ctx context.Context, tx *gorm.DB, rating *types.Rating) (*types.Rating, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ratings = append(f.ratings, *rating)
	return rating, nil
}

func (f *fakeRatingRepo) GetBySessionAndUser(ctx context.Context, tx *gorm.DB, sessionID, userID uuid.UUID) (*types.Rating, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.ratings {
		if f.ratings[i].SessionID == sessionID && f.ratings[i].UserID == userID {
			copied := f.ratings[i]
			return &copied, nil
		}
	}
	return nil, nil
}

func (f *fakeRatingRepo) ListByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]types.Rating, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []types.Rating{}
	for _, r := range f.ratings {
		if r.UserID == userID {
			out = append(out, r)
		}
	}
	return out, nil
}

type sentMail struct {
	template   string
	recipients []string
	payload    map[string]interface{}
}

type fakeNotifier struct {
	mu     sync.Mutex
	mails  []sentMail
	slacks []string
}

func (f *fakeNotifier) SendEmail(ctx context.Context, template string, recipients []string, payload map[string]interface{}) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.mails = append(f.mails, sentMail{template: template, recipients: recipients, payload: payload})
}

func (f *fakeNotifier) SendSlackMessage(ctx context.Context, recipient, text string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.slacks = append(f.slacks, recipient)
}

type fakeTracker struct {
	mu      sync.Mutex
	entries []timetracker.Entry
	fail    bool
}

func (f *fakeTracker) GetUserByEmail(ctx context.Context, email string) (*timetracker.Account, error) {
	return &timetracker.Account{ID: 7, Email: email}, nil
}

func (f *fakeTracker) PostEntry(ctx context.Context, entry timetracker.Entry) (*timetracker.Entry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return nil, context.DeadlineExceeded
	}
	f.entries = append(f.entries, entry)
	return &entry, nil
}
