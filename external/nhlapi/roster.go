package nhlapi

import (
	"fmt"

	"github.com/manogolf/nhl-splits/internal/domain/pbp"
)

// rosterFromBoxscore resolves team identity and the dressed goalies for each
// side. Team ids are mandatory; everything else degrades gracefully.
func rosterFromBoxscore(box map[string]any) (pbp.Roster, error) {
	home := teamNode(box, "homeTeam")
	away := teamNode(box, "awayTeam")

	roster := pbp.Roster{
		HomeTeamID: getInt64(home, "id"),
		AwayTeamID: getInt64(away, "id"),
		HomeAbbrev: getString(home, "abbrev"),
		AwayAbbrev: getString(away, "abbrev"),
	}
	if roster.HomeAbbrev == "" {
		roster.HomeAbbrev = getString(getMap(home, "team"), "triCode")
	}
	if roster.AwayAbbrev == "" {
		roster.AwayAbbrev = getString(getMap(away, "team"), "triCode")
	}
	if roster.HomeTeamID <= 0 || roster.AwayTeamID <= 0 {
		return pbp.Roster{}, fmt.Errorf("boxscore is missing team ids")
	}

	stats := getMap(box, "playerByGameStats")
	roster.HomeGoalies = goalieIDs(getMap(stats, "homeTeam"), home)
	roster.AwayGoalies = goalieIDs(getMap(stats, "awayTeam"), away)
	return roster, nil
}

func teamNode(box map[string]any, key string) map[string]any {
	if node := getMap(box, key); node != nil {
		return node
	}
	// Legacy boxscores nest teams under gameData/liveData.
	if teams := getMap(getMap(box, "gameData"), "teams"); teams != nil {
		return getMap(teams, legacyTeamKey(key))
	}
	if teams := getMap(getMap(getMap(box, "liveData"), "boxscore"), "teams"); teams != nil {
		return getMap(teams, legacyTeamKey(key))
	}
	return nil
}

func legacyTeamKey(key string) string {
	if key == "homeTeam" {
		return "home"
	}
	return "away"
}

// goalieIDs collects goalie player ids from every position the boxscore has
// carried them in: the per-game stat block, the team-level goalie list, and
// the players map filtered by position code. Order is preserved, first
// occurrence wins.
func goalieIDs(statsTeam, team map[string]any) []int64 {
	out := make([]int64, 0, 3)
	seen := make(map[int64]struct{}, 3)
	add := func(id int64) {
		if id <= 0 {
			return
		}
		if _, ok := seen[id]; ok {
			return
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}

	for _, item := range getList(statsTeam, "goalies") {
		if entry, ok := item.(map[string]any); ok {
			add(getInt64(entry, "playerId"))
		}
	}
	for _, item := range getList(team, "goalies") {
		switch entry := item.(type) {
		case map[string]any:
			add(getInt64(entry, "playerId"))
		case float64:
			add(int64(entry))
		}
	}
	for _, raw := range getMap(team, "players") {
		entry, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		position := firstNonEmpty(
			getString(getMap(entry, "position"), "code"),
			getString(entry, "positionCode"),
		)
		if position == "G" {
			add(firstPositive(
				getInt64(getMap(entry, "person"), "id"),
				getInt64(entry, "playerId"),
			))
		}
	}
	return out
}
