package schedule

import (
	"time"

	"github.com/lukyamuziB/lenken-backend/internal/types"
)

type SessionStatus string

const (
	StatusCompleted SessionStatus = "completed"
	StatusMissed    SessionStatus = "missed"
	StatusUpcoming  SessionStatus = "upcoming"
)

// SessionDate is one expected pairing date annotated with what actually
// happened on it.
type SessionDate struct {
	Date         time.Time     `json:"date"`
	Status       SessionStatus `json:"status"`
	MenteeLogged bool          `json:"mentee_logged"`
	MentorLogged bool          `json:"mentor_logged"`
}

const dateKeyLayout = "2006-01-02"

// DateKey is the calendar-date identity of a moment in its own location.
// Matching on keys keeps date comparisons timezone-sign agnostic: a session
// stored at UTC midnight and a threshold at pairing-timezone midnight compare
// by the day they name, not by instant order.
func DateKey(t time.Time) string {
	return t.Format(dateKeyLayout)
}

// Reconcile classifies each expected date against the logged sessions.
// Iteration stops after the first upcoming date: callers rendering a request's
// schedule only surface the next upcoming session, not the whole future.
func Reconcile(expected []time.Time, sessions []types.Session, now time.Time) []SessionDate {
	return reconcile(expected, sessions, now, true)
}

// ReconcileAll is the report variant: every expected date is classified, with
// no early stop on the first upcoming one.
func ReconcileAll(expected []time.Time, sessions []types.Session, now time.Time) []SessionDate {
	return reconcile(expected, sessions, now, false)
}

func reconcile(expected []time.Time, sessions []types.Session, now time.Time, stopAtUpcoming bool) []SessionDate {
	byDate := make(map[string]*types.Session, len(sessions))
	for i := range sessions {
		byDate[sessions[i].Date.Format(dateKeyLayout)] = &sessions[i]
	}

	out := []SessionDate{}
	for _, d := range expected {
		if s, ok := byDate[d.Format(dateKeyLayout)]; ok {
			status := StatusMissed
			if s.Confirmed() {
				status = StatusCompleted
			}
			out = append(out, SessionDate{
				Date:         d,
				Status:       status,
				MenteeLogged: s.MenteeApproval == types.ApprovalApproved,
				MentorLogged: s.MentorApproval == types.ApprovalApproved,
			})
			continue
		}
		if !d.After(now) {
			out = append(out, SessionDate{Date: d, Status: StatusMissed})
			continue
		}
		out = append(out, SessionDate{Date: d, Status: StatusUpcoming})
		if stopAtUpcoming {
			break
		}
	}
	return out
}
