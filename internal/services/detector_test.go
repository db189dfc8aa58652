package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/lukyamuziB/lenken-backend/internal/clients/directory"
	"github.com/lukyamuziB/lenken-backend/internal/types"
)

type fakeDirectory struct {
	mu      sync.Mutex
	users   map[string]directory.User
	lookups int
}

func (f *fakeDirectory) GetUserByID(ctx context.Context, id string) (*directory.User, error) {
	return nil, nil
}

func (f *fakeDirectory) GetUsersByEmail(ctx context.Context, emails []string) ([]directory.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lookups++
	out := []directory.User{}
	for _, email := range emails {
		if u, ok := f.users[email]; ok {
			out = append(out, u)
		}
	}
	return out, nil
}

type detectorFixture struct {
	svc       DetectorService
	requests  *fakeRequestRepo
	users     *fakeUserRepo
	directory *fakeDirectory
	notifier  *fakeNotifier
}

func newDetectorFixture(t *testing.T) *detectorFixture {
	t.Helper()
	fx := &detectorFixture{
		requests:  newFakeRequestRepo(),
		users:     newFakeUserRepo(),
		directory: &fakeDirectory{users: map[string]directory.User{}},
		notifier:  &fakeNotifier{},
	}
	fx.svc = NewDetectorService(testDB(t), testLogger(t), fx.requests, fx.users, fx.directory, nil, fx.notifier, "admin@example.com")
	return fx
}

func mondaysRequest(timezone string, matchDate time.Time, sessions ...types.Session) *types.MentorshipRequest {
	return &types.MentorshipRequest{
		ID:          uuid.New(),
		Title:       "Learn Go",
		Status:      types.RequestStatusMatched,
		CreatedByID: uuid.New(),
		MatchDate:   &matchDate,
		Pairing: datatypes.NewJSONType(types.Pairing{
			StartTime: "18:00",
			EndTime:   "19:00",
			Days:      []string{"monday"},
			Timezone:  timezone,
		}),
		Sessions: sessions,
	}
}

func TestFindInactive(t *testing.T) {
	ctx := context.Background()
	matchDate := time.Date(2021, time.January, 4, 0, 0, 0, 0, time.UTC)
	now := time.Date(2021, time.February, 1, 9, 0, 0, 0, time.UTC)

	cases := []struct {
		name     string
		request  *types.MentorshipRequest
		inactive bool
	}{
		{
			name:     "no_sessions_logged",
			request:  mondaysRequest("UTC", matchDate),
			inactive: true,
		},
		{
			// Threshold for mondays at 2021-02-01 is 2021-01-11; a session on
			// the 25th is recent activity.
			name: "recent_session",
			request: mondaysRequest("UTC", matchDate,
				types.Session{ID: uuid.New(), Date: time.Date(2021, time.January, 25, 0, 0, 0, 0, time.UTC)}),
			inactive: false,
		},
		{
			name: "only_stale_sessions",
			request: mondaysRequest("UTC", matchDate,
				types.Session{ID: uuid.New(), Date: time.Date(2021, time.January, 4, 0, 0, 0, 0, time.UTC)}),
			inactive: true,
		},
		{
			// Matched less than three pairing days ago; too young to flag.
			name:     "freshly_matched",
			request:  mondaysRequest("UTC", time.Date(2021, time.January, 25, 0, 0, 0, 0, time.UTC)),
			inactive: false,
		},
		{
			// The threshold is midnight in the pairing timezone, the session
			// UTC midnight of the same calendar day. East of UTC the session
			// instant lands after the threshold instant, but the calendar day
			// is the threshold day itself and must not count as activity.
			name: "threshold_day_session_east_of_utc",
			request: mondaysRequest("Asia/Kolkata", matchDate,
				types.Session{ID: uuid.New(), Date: time.Date(2021, time.January, 11, 0, 0, 0, 0, time.UTC)}),
			inactive: true,
		},
		{
			name: "recent_session_east_of_utc",
			request: mondaysRequest("Asia/Kolkata", matchDate,
				types.Session{ID: uuid.New(), Date: time.Date(2021, time.January, 25, 0, 0, 0, 0, time.UTC)}),
			inactive: false,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			fx := newDetectorFixture(t)
			if err := fx.requests.Save(ctx, nil, tc.request); err != nil {
				t.Fatalf("seed request: %v", err)
			}

			inactive, err := fx.svc.FindInactive(ctx, now)
			if err != nil {
				t.Fatalf("FindInactive: %v", err)
			}
			if got := len(inactive) == 1; got != tc.inactive {
				t.Fatalf("flagged = %v, want %v", got, tc.inactive)
			}
		})
	}
}

func TestNotifyInactiveEmailsBothParties(t *testing.T) {
	fx := newDetectorFixture(t)
	ctx := context.Background()

	mentor := &types.User{ID: uuid.New(), Email: "mentor@example.com"}
	mentee := &types.User{ID: uuid.New(), Email: "mentee@example.com"}
	if _, err := fx.users.Create(ctx, nil, []*types.User{mentor, mentee}); err != nil {
		t.Fatalf("seed users: %v", err)
	}

	req := mondaysRequest("UTC", time.Date(2021, time.January, 4, 0, 0, 0, 0, time.UTC))
	req.MentorID = &mentor.ID
	req.MenteeID = &mentee.ID
	_ = fx.requests.Save(ctx, nil, req)

	count, err := fx.svc.NotifyInactive(ctx, time.Date(2021, time.February, 1, 9, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("NotifyInactive: %v", err)
	}
	if count != 1 {
		t.Fatalf("count = %d, want 1", count)
	}
	if len(fx.notifier.mails) != 1 {
		t.Fatalf("mails sent = %d, want 1", len(fx.notifier.mails))
	}
	mail := fx.notifier.mails[0]
	if mail.template != MailSessionInactivity {
		t.Fatalf("template = %q, want %q", mail.template, MailSessionInactivity)
	}
	if len(mail.recipients) != 2 {
		t.Fatalf("recipients = %v, want mentor and mentee", mail.recipients)
	}
}

func TestFindUnmatchedAgeFilter(t *testing.T) {
	fx := newDetectorFixture(t)
	ctx := context.Background()
	now := time.Date(2021, time.March, 10, 12, 0, 0, 0, time.UTC)

	stale := &types.MentorshipRequest{ID: uuid.New(), Status: types.RequestStatusOpen, CreatedByID: uuid.New(), CreatedAt: now.Add(-30 * time.Hour)}
	fresh := &types.MentorshipRequest{ID: uuid.New(), Status: types.RequestStatusOpen, CreatedByID: uuid.New(), CreatedAt: now.Add(-10 * time.Hour)}
	matched := &types.MentorshipRequest{ID: uuid.New(), Status: types.RequestStatusMatched, CreatedByID: uuid.New(), CreatedAt: now.Add(-72 * time.Hour)}
	for _, req := range []*types.MentorshipRequest{stale, fresh, matched} {
		_ = fx.requests.Save(ctx, nil, req)
	}

	found, err := fx.svc.FindUnmatched(ctx, 24, now)
	if err != nil {
		t.Fatalf("FindUnmatched: %v", err)
	}
	if len(found) != 1 || found[0].ID != stale.ID {
		t.Fatalf("found %d requests, want only the 30h-old open one", len(found))
	}
}

func TestNotifyUnmatchedSplitsByPlacement(t *testing.T) {
	fx := newDetectorFixture(t)
	ctx := context.Background()
	now := time.Date(2021, time.March, 10, 12, 0, 0, 0, time.UTC)

	placedUser := &types.User{ID: uuid.New(), Email: "placed@example.com"}
	benchUser := &types.User{ID: uuid.New(), Email: "bench@example.com"}
	_, _ = fx.users.Create(ctx, nil, []*types.User{placedUser, benchUser})
	fx.directory.users["placed@example.com"] = directory.User{
		Email:     "placed@example.com",
		Placement: directory.Placement{Status: "placed", Client: "Acme"},
	}

	reqs := []*types.MentorshipRequest{
		{ID: uuid.New(), Status: types.RequestStatusOpen, CreatedByID: placedUser.ID, CreatedAt: now.Add(-48 * time.Hour)},
		{ID: uuid.New(), Status: types.RequestStatusOpen, CreatedByID: placedUser.ID, CreatedAt: now.Add(-40 * time.Hour)},
		{ID: uuid.New(), Status: types.RequestStatusOpen, CreatedByID: benchUser.ID, CreatedAt: now.Add(-30 * time.Hour)},
	}
	for _, req := range reqs {
		_ = fx.requests.Save(ctx, nil, req)
	}

	results, err := fx.svc.NotifyUnmatched(ctx, 24, now)
	if err != nil {
		t.Fatalf("NotifyUnmatched: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("results = %d, want 3", len(results))
	}

	placedCount := 0
	for _, r := range results {
		if r.Placed {
			placedCount++
			if r.Client != "Acme" {
				t.Fatalf("client = %q, want Acme", r.Client)
			}
		}
	}
	if placedCount != 2 {
		t.Fatalf("placed results = %d, want 2 (both requests by the placed creator)", placedCount)
	}

	// Duplicate creator emails collapse to one directory lookup each.
	if fx.directory.lookups != 2 {
		t.Fatalf("directory lookups = %d, want 2", fx.directory.lookups)
	}

	if len(fx.notifier.mails) != 1 {
		t.Fatalf("mails sent = %d, want one admin summary", len(fx.notifier.mails))
	}
	mail := fx.notifier.mails[0]
	if mail.template != MailUnmatchedRequests {
		t.Fatalf("template = %q, want %q", mail.template, MailUnmatchedRequests)
	}
	if len(mail.recipients) != 1 || mail.recipients[0] != "admin@example.com" {
		t.Fatalf("recipients = %v, want the admin address", mail.recipients)
	}
}

func TestNotifyUnmatchedNoStaleRequests(t *testing.T) {
	fx := newDetectorFixture(t)
	results, err := fx.svc.NotifyUnmatched(context.Background(), 24, time.Now())
	if err != nil {
		t.Fatalf("NotifyUnmatched: %v", err)
	}
	if len(results) != 0 {
		t.Fatalf("results = %d, want 0", len(results))
	}
	if len(fx.notifier.mails) != 0 {
		t.Fatal("no summary mail expected when nothing is stale")
	}
}
