// Package pbp holds the canonical play-by-play event model and the pure
// aggregation logic that derives per-player strength splits from it.
package pbp

type EventType string

const (
	EventShot        EventType = "SHOT"
	EventGoal        EventType = "GOAL"
	EventMissedShot  EventType = "MISSED_SHOT"
	EventBlockedShot EventType = "BLOCKED_SHOT"
	EventHit         EventType = "HIT"
	EventTakeaway    EventType = "TAKEAWAY"
	EventGiveaway    EventType = "GIVEAWAY"
	EventPenalty     EventType = "PENALTY"
	EventOther       EventType = "OTHER"
)

type Side string

const (
	SideHome Side = "HOME"
	SideAway Side = "AWAY"
)

// Opposite returns the defending side for an acting side.
func (s Side) Opposite() Side {
	if s == SideHome {
		return SideAway
	}
	return SideHome
}

// Event is a single normalized play. Fields that could not be resolved from
// the raw feed are zero; an event whose type or acting side is unresolvable
// never becomes an Event at all.
type Event struct {
	Type          EventType
	ActingSide    Side
	ClockSeconds  int
	SituationCode string

	// Actor identity by event family. All optional.
	ShooterID   int64
	GoalieID    int64
	HitterID    int64
	TakerID     int64
	GiverID     int64
	PenalizedID int64
	DrewByID    int64

	ShotType string
	IsGoal   bool
}

// Roster is the per-game context resolved from the boxscore: which team is
// which side and which goalies dressed for each side.
type Roster struct {
	HomeTeamID  int64
	AwayTeamID  int64
	HomeAbbrev  string
	AwayAbbrev  string
	HomeGoalies []int64
	AwayGoalies []int64
}

// GoaliesFor returns the dressed goalies defending against the given acting
// side.
func (r Roster) GoaliesFor(acting Side) []int64 {
	if acting == SideHome {
		return r.AwayGoalies
	}
	return r.HomeGoalies
}

// Game is one fully fetched and normalized game: the roster context plus the
// chronologically ordered event stream.
type Game struct {
	GameID int64
	Roster Roster
	Events []Event
}

func isShotFamily(t EventType) bool {
	switch t {
	case EventShot, EventGoal, EventMissedShot, EventBlockedShot:
		return true
	}
	return false
}

// onNet reports whether the event reached the goalie.
func onNet(t EventType) bool {
	return t == EventShot || t == EventGoal
}
