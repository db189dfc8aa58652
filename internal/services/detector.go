package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/lukyamuziB/lenken-backend/internal/cache"
	"github.com/lukyamuziB/lenken-backend/internal/clients/directory"
	"github.com/lukyamuziB/lenken-backend/internal/logger"
	"github.com/lukyamuziB/lenken-backend/internal/repos"
	"github.com/lukyamuziB/lenken-backend/internal/schedule"
	"github.com/lukyamuziB/lenken-backend/internal/types"
)

// UnmatchedRequest pairs a stale open request with the creator's external
// placement status, when the directory knows it.
type UnmatchedRequest struct {
	Request *types.MentorshipRequest `json:"request"`
	Email   string                   `json:"email"`
	Placed  bool                     `json:"placed"`
	Client  string                   `json:"client"`
}

// DetectorService runs the read-only batch scans. Both detectors are
// idempotent and safe to re-run at any cadence; their only side effects are
// the notifications they trigger.
type DetectorService interface {
	FindInactive(ctx context.Context, now time.Time) ([]*types.MentorshipRequest, error)
	NotifyInactive(ctx context.Context, now time.Time) (int, error)
	FindUnmatched(ctx context.Context, ageThresholdHours int, now time.Time) ([]*types.MentorshipRequest, error)
	NotifyUnmatched(ctx context.Context, ageThresholdHours int, now time.Time) ([]UnmatchedRequest, error)
}

type detectorService struct {
	db          *gorm.DB
	log         *logger.Logger
	requestRepo repos.RequestRepo
	userRepo    repos.UserRepo
	directory   directory.Client
	cache       cache.Cache
	notifier    NotificationService
	adminEmail  string
}

func NewDetectorService(
	db *gorm.DB,
	log *logger.Logger,
	requestRepo repos.RequestRepo,
	userRepo repos.UserRepo,
	directoryClient directory.Client,
	cacheClient cache.Cache,
	notifier NotificationService,
	adminEmail string,
) DetectorService {
	return &detectorService{
		db:          db,
		log:         log.With("service", "DetectorService"),
		requestRepo: requestRepo,
		userRepo:    userRepo,
		directory:   directoryClient,
		cache:       cacheClient,
		notifier:    notifier,
		adminEmail:  adminEmail,
	}
}

// FindInactive flags matched engagements with no session logged inside the
// trailing three-pairing-day window. A request only qualifies once it is old
// enough to have had three scheduled sessions; a session dated after the
// threshold counts as recent activity and keeps the request out of the
// result.
func (ds *detectorService) FindInactive(ctx context.Context, now time.Time) ([]*types.MentorshipRequest, error) {
	matched, err := ds.requestRepo.ListMatchedWithSessions(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list matched requests: %w", err)
	}

	inactive := []*types.MentorshipRequest{}
	for _, req := range matched {
		if req.MatchDate == nil {
			continue
		}
		pairing := req.Pairing.Data()
		loc, lErr := time.LoadLocation(pairing.Timezone)
		if lErr != nil {
			loc = time.UTC
		}

		threshold, ok := schedule.InactivityThreshold(pairing.Days, now.In(loc))
		if !ok {
			continue
		}
		if !threshold.After(req.MatchDate.In(loc)) {
			// Not yet three scheduled sessions into the engagement.
			continue
		}

		// Compare calendar dates, not instants: the threshold is midnight in
		// the pairing timezone while sessions store UTC midnight, and instant
		// order flips with the timezone's sign for the same calendar facts.
		thresholdKey := schedule.DateKey(threshold)
		recent := false
		for _, s := range req.Sessions {
			if schedule.DateKey(s.Date) > thresholdKey {
				recent = true
				break
			}
		}
		if !recent {
			inactive = append(inactive, req)
		}
	}
	return inactive, nil
}

func (ds *detectorService) NotifyInactive(ctx context.Context, now time.Time) (int, error) {
	inactive, err := ds.FindInactive(ctx, now)
	if err != nil {
		return 0, err
	}

	for _, req := range inactive {
		ids := []uuid.UUID{}
		if req.MentorID != nil {
			ids = append(ids, *req.MentorID)
		}
		if req.MenteeID != nil {
			ids = append(ids, *req.MenteeID)
		}
		users, err := ds.userRepo.GetByIDs(ctx, nil, ids)
		if err != nil {
			ds.log.Error("Could not resolve users for inactivity notification", "request_id", req.ID, "error", err)
			continue
		}
		emails := make([]string, 0, len(users))
		for _, u := range users {
			emails = append(emails, u.Email)
			if u.SlackHandle != "" {
				ds.notifier.SendSlackMessage(ctx, u.SlackHandle,
					fmt.Sprintf("No sessions have been logged recently for your mentorship engagement %q", req.Title))
			}
		}
		ds.notifier.SendEmail(ctx, MailSessionInactivity, emails, map[string]interface{}{
			"request_id":    req.ID.String(),
			"request_title": req.Title,
		})
	}
	return len(inactive), nil
}

// FindUnmatched is a pure age filter over open requests.
func (ds *detectorService) FindUnmatched(ctx context.Context, ageThresholdHours int, now time.Time) ([]*types.MentorshipRequest, error) {
	cutoff := now.Add(-time.Duration(ageThresholdHours) * time.Hour)
	return ds.requestRepo.ListOpenCreatedBefore(ctx, nil, cutoff)
}

// NotifyUnmatched cross-references each stale request's creator against the
// directory's placement data and routes one summary email to the admin
// address, split into placed and unplaced groups. Creator emails are
// deduplicated before any external lookup.
func (ds *detectorService) NotifyUnmatched(ctx context.Context, ageThresholdHours int, now time.Time) ([]UnmatchedRequest, error) {
	requests, err := ds.FindUnmatched(ctx, ageThresholdHours, now)
	if err != nil {
		return nil, err
	}
	if len(requests) == 0 {
		return []UnmatchedRequest{}, nil
	}

	creatorIDs := make([]uuid.UUID, 0, len(requests))
	for _, req := range requests {
		creatorIDs = append(creatorIDs, req.CreatedByID)
	}
	creators, err := ds.userRepo.GetByIDs(ctx, nil, creatorIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve request creators: %w", err)
	}
	emailByID := make(map[uuid.UUID]string, len(creators))
	for _, u := range creators {
		emailByID[u.ID] = u.Email
	}

	placements := ds.lookupPlacements(ctx, uniqueEmails(requests, emailByID))

	results := make([]UnmatchedRequest, 0, len(requests))
	placed := []map[string]interface{}{}
	unplaced := []map[string]interface{}{}
	for _, req := range requests {
		email := emailByID[req.CreatedByID]
		entry := UnmatchedRequest{Request: req, Email: email}
		if p, ok := placements[email]; ok && p.Status == "placed" {
			entry.Placed = true
			entry.Client = p.Client
		}
		results = append(results, entry)

		row := map[string]interface{}{
			"request_id":    req.ID.String(),
			"request_title": req.Title,
			"email":         email,
			"created_at":    req.CreatedAt,
		}
		if entry.Placed {
			row["client"] = entry.Client
			placed = append(placed, row)
		} else {
			unplaced = append(unplaced, row)
		}
	}

	ds.notifier.SendEmail(ctx, MailUnmatchedRequests, []string{ds.adminEmail}, map[string]interface{}{
		"threshold_hours": ageThresholdHours,
		"placed":          placed,
		"unplaced":        unplaced,
	})
	return results, nil
}

func uniqueEmails(requests []*types.MentorshipRequest, emailByID map[uuid.UUID]string) []string {
	seen := make(map[string]bool, len(requests))
	out := make([]string, 0, len(requests))
	for _, req := range requests {
		email := emailByID[req.CreatedByID]
		if email == "" || seen[email] {
			continue
		}
		seen[email] = true
		out = append(out, email)
	}
	return out
}

// lookupPlacements resolves placement status per email, cached in redis and
// fanned out with a bounded errgroup. Lookup failures degrade to "unknown";
// the scan itself never fails because the directory is down.
func (ds *detectorService) lookupPlacements(ctx context.Context, emails []string) map[string]directory.Placement {
	results := make(map[string]directory.Placement, len(emails))
	if ds.directory == nil || len(emails) == 0 {
		return results
	}

	type lookup struct {
		email     string
		placement directory.Placement
		ok        bool
	}
	rows := make([]lookup, len(emails))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(5)
	for i, email := range emails {
		g.Go(func() error {
			var placement directory.Placement
			load := func() (interface{}, error) {
				users, err := ds.directory.GetUsersByEmail(gCtx, []string{email})
				if err != nil {
					return nil, err
				}
				if len(users) == 0 {
					return directory.Placement{}, nil
				}
				return users[0].Placement, nil
			}

			var err error
			if ds.cache != nil {
				err = ds.cache.Remember(gCtx, "placement:"+email, 24*time.Hour, &placement, load)
			} else {
				var raw interface{}
				raw, err = load()
				if err == nil {
					placement, _ = raw.(directory.Placement)
				}
			}
			if err != nil {
				ds.log.Warn("Placement lookup failed", "email", email, "error", err)
				return nil
			}
			rows[i] = lookup{email: email, placement: placement, ok: true}
			return nil
		})
	}
	_ = g.Wait()

	for _, row := range rows {
		if row.ok {
			results[row.email] = row.placement
		}
	}
	return results
}
