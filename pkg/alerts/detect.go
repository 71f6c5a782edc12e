package alerts

import (
	"fmt"
	"sort"
	"time"

	"github.com/musyoka101/sliver-tui/pkg/classify"
	"github.com/musyoka101/sliver-tui/pkg/models"
)

func privileged(a *models.AgentRecord) bool {
	return classify.IsPrivileged(a.Username, a.UID, a.OS)
}

func hostLabel(a *models.AgentRecord) string {
	if a.Hostname == "" {
		return "Unknown"
	}

	return a.Hostname
}

func newAlert(t Type, c Category, msg string, a *models.AgentRecord, details string, now time.Time) Alert {
	return Alert{
		Type:      t,
		Category:  c,
		Message:   msg,
		AgentID:   a.ID,
		Hostname:  hostLabel(a),
		Details:   details,
		Timestamp: now,
	}
}

// Detect compares two consecutive identifier maps and returns the alerts the
// transition raises, ordered by agent ID then category. On the first tick
// prev is empty and every agent is reported as acquired.
func Detect(prev, cur map[string]models.AgentRecord, now time.Time) []Alert {
	var out []Alert

	for id := range cur {
		a := cur[id]

		old, existed := prev[id]
		if !existed {
			out = append(out, acquired(&a, len(cur), now))
		} else {
			out = append(out, transitions(&old, &a, now)...)
		}

		if !a.IsSession() && a.IsDead {
			out = append(out, newAlert(TypeWarning, CategoryBeaconMissed, "Beacon missed check-in", &a, "", now))
		}
	}

	for id := range prev {
		if _, still := cur[id]; still {
			continue
		}

		old := prev[id]
		if old.IsSession() {
			out = append(out, newAlert(TypeCritical, CategorySessionLost, "Session lost", &old, "", now))
		} else {
			out = append(out, newAlert(TypeCritical, CategoryBeaconLost, "Beacon lost", &old, "", now))
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].AgentID != out[j].AgentID {
			return out[i].AgentID < out[j].AgentID
		}

		return out[i].Category < out[j].Category
	})

	return out
}

func acquired(a *models.AgentRecord, active int, now time.Time) Alert {
	details := fmt.Sprintf("(%d active)", active)

	switch {
	case a.IsSession() && privileged(a):
		return newAlert(TypeSuccess, CategoryPrivilegedSessionAcquired, "Privileged session connected", a, details, now)
	case a.IsSession():
		return newAlert(TypeSuccess, CategorySessionAcquired, "Session connected", a, details, now)
	case privileged(a):
		return newAlert(TypeSuccess, CategoryPrivilegedBeaconAcquired, "Privileged beacon connected", a, details, now)
	default:
		return newAlert(TypeSuccess, CategoryBeaconAcquired, "Beacon connected", a, details, now)
	}
}

func transitions(old, cur *models.AgentRecord, now time.Time) []Alert {
	var out []Alert

	if privileged(cur) && !privileged(old) {
		out = append(out, newAlert(TypeSuccess, CategoryPrivilegeEscalated, "Privilege escalated", cur,
			fmt.Sprintf("(%s)", cur.Kind), now))
	}

	switch {
	case cur.IsSession() && !old.IsSession() && privileged(cur):
		out = append(out, newAlert(TypeInfo, CategoryPrivilegedSessionOpened,
			"Beacon upgraded to privileged session", cur, "(beacon→session)", now))
	case cur.IsSession() && !old.IsSession():
		out = append(out, newAlert(TypeInfo, CategorySessionOpened, "Beacon upgraded to session", cur, "(beacon→session)", now))
	case !cur.IsSession() && old.IsSession():
		out = append(out, newAlert(TypeInfo, CategorySessionClosed, "Session closed", cur, "(session→beacon)", now))
	}

	// Sessions carry no task queue.
	if cur.IsSession() {
		return out
	}

	if cur.TasksCount > old.TasksCount {
		out = append(out, newAlert(TypeInfo, CategoryTaskQueued, "Task queued", cur,
			fmt.Sprintf("(%d→%d pending)", old.TasksCount-old.TasksCompleted, cur.TasksCount-cur.TasksCompleted), now))
	}

	if cur.TasksCompleted > old.TasksCompleted {
		out = append(out, newAlert(TypeSuccess, CategoryTaskCompleted, "Task completed", cur,
			fmt.Sprintf("(%d/%d done)", cur.TasksCompleted, cur.TasksCount), now))
	}

	return out
}
