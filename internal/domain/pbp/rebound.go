package pbp

// DefaultReboundWindowSeconds is the maximum gap between a save and a
// follow-up shot for the follow-up to count as a rebound.
const DefaultReboundWindowSeconds = 3

type shotOutcome int

const (
	outcomeSaved shotOutcome = iota
	outcomeGoal
	outcomeMissed
	outcomeBlocked
)

type lastShot struct {
	clock   int
	outcome shotOutcome
}

// reboundTracker remembers, per acting side, the most recent shot-family
// event. Only a saved shot is reboundable-from; misses and blocks overwrite
// the memory so a later shot is not credited off a stale save.
type reboundTracker struct {
	window int
	last   map[Side]lastShot
	// lastSaveGoalie is the goalie who made the save that the memory points
	// at, used to charge rebounds_allowed.
	lastSaveGoalie map[Side]int64
}

func newReboundTracker(window int) *reboundTracker {
	if window <= 0 {
		window = DefaultReboundWindowSeconds
	}
	return &reboundTracker{
		window:         window,
		last:           make(map[Side]lastShot),
		lastSaveGoalie: make(map[Side]int64),
	}
}

// observe processes one shot-family event and reports whether it is a
// rebound and, if so, which goalie allowed it (0 when the save's goalie was
// unresolved).
func (t *reboundTracker) observe(ev Event) (rebound bool, allowedBy int64) {
	if onNet(ev.Type) {
		prev, seen := t.last[ev.ActingSide]
		if seen && prev.outcome == outcomeSaved && ev.ClockSeconds-prev.clock <= t.window {
			rebound = true
			allowedBy = t.lastSaveGoalie[ev.ActingSide]
		}
	}

	switch ev.Type {
	case EventShot:
		t.last[ev.ActingSide] = lastShot{clock: ev.ClockSeconds, outcome: outcomeSaved}
		t.lastSaveGoalie[ev.ActingSide] = ev.GoalieID
	case EventGoal:
		t.last[ev.ActingSide] = lastShot{clock: ev.ClockSeconds, outcome: outcomeGoal}
		delete(t.lastSaveGoalie, ev.ActingSide)
	case EventMissedShot:
		t.last[ev.ActingSide] = lastShot{clock: ev.ClockSeconds, outcome: outcomeMissed}
		delete(t.lastSaveGoalie, ev.ActingSide)
	case EventBlockedShot:
		t.last[ev.ActingSide] = lastShot{clock: ev.ClockSeconds, outcome: outcomeBlocked}
		delete(t.lastSaveGoalie, ev.ActingSide)
	}
	return rebound, allowedBy
}
