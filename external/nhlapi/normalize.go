package nhlapi

import (
	"strings"

	"github.com/manogolf/nhl-splits/internal/domain/pbp"
)

// periodClockSpan spaces period clocks far enough apart that a derived game
// clock is strictly increasing across periods for any regulation or overtime
// period length.
const periodClockSpan = 2000

// playsList extracts the play array from any known feed nesting: a bare
// list, "plays", "playByPlay.allPlays", "playByPlay.plays", or
// "liveData.plays.allPlays".
func playsList(doc map[string]any) []map[string]any {
	if doc == nil {
		return nil
	}

	candidates := [][]any{
		getList(doc, "plays"),
		getList(getMap(doc, "playByPlay"), "allPlays"),
		getList(getMap(doc, "playByPlay"), "plays"),
		getList(getMap(getMap(doc, "liveData"), "plays"), "allPlays"),
	}
	for _, list := range candidates {
		if len(list) == 0 {
			continue
		}
		out := make([]map[string]any, 0, len(list))
		for _, item := range list {
			if play, ok := item.(map[string]any); ok {
				out = append(out, play)
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return nil
}

func normalizePlays(plays []map[string]any, roster pbp.Roster) []pbp.Event {
	events := make([]pbp.Event, 0, len(plays))
	for _, play := range plays {
		if ev, ok := normalizePlay(play, roster); ok {
			events = append(events, ev)
		}
	}
	return events
}

// normalizePlay maps one raw play onto the canonical event model. Plays
// whose type or acting side cannot be resolved are dropped; every other
// attribute degrades to its zero value individually.
func normalizePlay(play map[string]any, roster pbp.Roster) (pbp.Event, bool) {
	eventType := playEventType(play)
	if eventType == "" {
		return pbp.Event{}, false
	}

	side, ok := playActingSide(play, roster)
	if !ok {
		return pbp.Event{}, false
	}

	details := getMap(play, "details")
	ev := pbp.Event{
		Type:          eventType,
		ActingSide:    side,
		ClockSeconds:  playClockSeconds(play),
		SituationCode: playSituationCode(play),
		ShotType:      playShotType(play),
	}
	ev.IsGoal = eventType == pbp.EventGoal || getString(details, "isGoal") == "true"

	switch eventType {
	case pbp.EventShot, pbp.EventGoal, pbp.EventMissedShot, pbp.EventBlockedShot:
		ev.ShooterID = playShooterID(play)
		ev.GoalieID = playGoalieID(play, roster, side)
	case pbp.EventHit:
		ev.HitterID = playRoleID(play, "hittingPlayerId", "hitter")
	case pbp.EventTakeaway:
		ev.TakerID = playRoleID(play, "takeawayPlayerId", "playerid", "player")
	case pbp.EventGiveaway:
		ev.GiverID = playRoleID(play, "giveawayPlayerId", "playerid", "player")
	case pbp.EventPenalty:
		ev.PenalizedID = playRoleID(play, "penalizedPlayerId", "penaltyon")
		if ev.PenalizedID == 0 {
			ev.PenalizedID = playRoleID(play, "committedByPlayerId")
		}
		ev.DrewByID = playRoleID(play, "drawnByPlayerId", "drewby")
	}

	return ev, true
}

var eventTypeByKey = map[string]pbp.EventType{
	"shot-on-goal": pbp.EventShot,
	"shot":         pbp.EventShot,
	"goal":         pbp.EventGoal,
	"missed-shot":  pbp.EventMissedShot,
	"missed_shot":  pbp.EventMissedShot,
	"blocked-shot": pbp.EventBlockedShot,
	"blocked_shot": pbp.EventBlockedShot,
	"hit":          pbp.EventHit,
	"takeaway":     pbp.EventTakeaway,
	"giveaway":     pbp.EventGiveaway,
	"penalty":      pbp.EventPenalty,
}

// playEventType resolves the event type across schema generations:
// typeDescKey, details.typeDescKey, then the legacy result.eventTypeId.
// Recognized but non-tracked types classify as OTHER; an absent type drops
// the play.
func playEventType(play map[string]any) pbp.EventType {
	key := firstNonEmpty(
		getString(play, "typeDescKey"),
		getString(getMap(play, "details"), "typeDescKey"),
		getString(getMap(play, "result"), "eventTypeId"),
		getString(getMap(play, "result"), "event"),
	)
	if key == "" {
		return ""
	}
	key = strings.ToLower(strings.TrimSpace(key))
	if mapped, ok := eventTypeByKey[key]; ok {
		return mapped
	}
	return pbp.EventOther
}

// playActingSide resolves which bench the play belongs to: the owning team
// id, then a team abbreviation, in both modern and legacy positions.
func playActingSide(play map[string]any, roster pbp.Roster) (pbp.Side, bool) {
	details := getMap(play, "details")

	teamID := firstPositive(
		getInt64(details, "eventOwnerTeamId"),
		getInt64(play, "eventOwnerTeamId"),
		getInt64(getMap(play, "team"), "id"),
	)
	if teamID > 0 {
		switch teamID {
		case roster.HomeTeamID:
			return pbp.SideHome, true
		case roster.AwayTeamID:
			return pbp.SideAway, true
		}
		return "", false
	}

	abbrev := strings.ToUpper(firstNonEmpty(
		getString(details, "teamAbbrev"),
		getString(play, "teamAbbrev"),
		getString(getMap(play, "team"), "triCode"),
		getString(getMap(play, "team"), "abbrev"),
	))
	if abbrev != "" {
		switch abbrev {
		case strings.ToUpper(roster.HomeAbbrev):
			return pbp.SideHome, true
		case strings.ToUpper(roster.AwayAbbrev):
			return pbp.SideAway, true
		}
	}
	return "", false
}

func playShooterID(play map[string]any) int64 {
	details := getMap(play, "details")
	if id := firstPositive(
		getInt64(details, "shootingPlayerId"),
		getInt64(details, "scoringPlayerId"),
		getInt64(details, "shooterPlayerId"),
		getInt64(details, "playerId"),
	); id > 0 {
		return id
	}
	return rolePlayerID(play, "shooter", "scorer")
}

// playGoalieID resolves the goalie in net, falling back to the defending
// side's dressed goalie when they dressed exactly one.
func playGoalieID(play map[string]any, roster pbp.Roster, acting pbp.Side) int64 {
	details := getMap(play, "details")
	if id := firstPositive(
		getInt64(details, "goalieInNetId"),
		getInt64(details, "goalieId"),
	); id > 0 {
		return id
	}
	if id := rolePlayerID(play, "goalie"); id > 0 {
		return id
	}
	if goalies := roster.GoaliesFor(acting); len(goalies) == 1 {
		return goalies[0]
	}
	return 0
}

// playRoleID checks details keys first and then legacy player role tags.
func playRoleID(play map[string]any, keys ...string) int64 {
	details := getMap(play, "details")
	roles := make([]string, 0, len(keys))
	for _, key := range keys {
		if strings.Contains(key, "Id") {
			if id := getInt64(details, key); id > 0 {
				return id
			}
			continue
		}
		roles = append(roles, key)
	}
	return rolePlayerID(play, roles...)
}

// rolePlayerID scans the legacy players[] array for the first entry whose
// playerType matches one of the given role names.
func rolePlayerID(play map[string]any, roles ...string) int64 {
	for _, item := range getList(play, "players") {
		entry, ok := item.(map[string]any)
		if !ok {
			continue
		}
		playerType := strings.ToLower(getString(entry, "playerType"))
		for _, role := range roles {
			if playerType != role {
				continue
			}
			if id := getInt64(getMap(entry, "player"), "id"); id > 0 {
				return id
			}
		}
	}
	return 0
}

func playSituationCode(play map[string]any) string {
	return firstNonEmpty(
		getString(play, "situationCode"),
		getString(getMap(play, "details"), "situationCode"),
		getString(getMap(play, "about"), "situationCode"),
	)
}

func playShotType(play map[string]any) string {
	return firstNonEmpty(
		getString(getMap(play, "details"), "shotType"),
		getString(getMap(play, "result"), "secondaryType"),
	)
}

// playClockSeconds derives an absolute game clock from the period number and
// the elapsed period time. Unknown clocks come back as 0, which keeps the
// event but disables rebound pairing against it.
func playClockSeconds(play map[string]any) int {
	period := getInt(play, "period")
	if period <= 0 {
		period = getInt(getMap(play, "periodDescriptor"), "number")
	}
	about := getMap(play, "about")
	if period <= 0 {
		period = getInt(about, "period")
	}
	if period <= 0 {
		return 0
	}

	clock := firstNonEmpty(
		getString(play, "timeInPeriod"),
		getString(getMap(play, "details"), "timeInPeriod"),
		getString(about, "periodTime"),
	)
	elapsed, ok := parseClockSeconds(clock)
	if !ok {
		return 0
	}
	return period*periodClockSpan + elapsed
}
