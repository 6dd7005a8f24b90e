package nhlapi

import (
	"testing"

	"github.com/manogolf/nhl-splits/internal/domain/pbp"
)

var testRoster = pbp.Roster{
	HomeTeamID:  10,
	AwayTeamID:  20,
	HomeAbbrev:  "TOR",
	AwayAbbrev:  "MTL",
	HomeGoalies: []int64{901},
	AwayGoalies: []int64{902},
}

func TestPlaysList_AcceptsAllKnownNestings(t *testing.T) {
	t.Parallel()

	play := map[string]any{"typeDescKey": "hit"}
	docs := []map[string]any{
		{"plays": []any{play}},
		{"playByPlay": map[string]any{"allPlays": []any{play}}},
		{"playByPlay": map[string]any{"plays": []any{play}}},
		{"liveData": map[string]any{"plays": map[string]any{"allPlays": []any{play}}}},
	}
	for i, doc := range docs {
		if got := playsList(doc); len(got) != 1 {
			t.Fatalf("doc %d: expected one play, got=%d", i, len(got))
		}
	}
	if got := playsList(map[string]any{"plays": []any{}}); got != nil {
		t.Fatalf("expected nil for empty play list, got=%v", got)
	}
}

func TestNormalizePlay_ModernShot(t *testing.T) {
	t.Parallel()

	play := map[string]any{
		"typeDescKey":      "shot-on-goal",
		"situationCode":    "1551",
		"timeInPeriod":     "05:30",
		"periodDescriptor": map[string]any{"number": float64(2)},
		"details": map[string]any{
			"eventOwnerTeamId": float64(10),
			"shootingPlayerId": float64(101),
			"goalieInNetId":    float64(902),
			"shotType":         "wrist",
		},
	}

	ev, ok := normalizePlay(play, testRoster)
	if !ok {
		t.Fatal("expected play to normalize")
	}
	if ev.Type != pbp.EventShot {
		t.Fatalf("expected SHOT, got=%s", ev.Type)
	}
	if ev.ActingSide != pbp.SideHome {
		t.Fatalf("expected HOME, got=%s", ev.ActingSide)
	}
	if ev.ShooterID != 101 || ev.GoalieID != 902 {
		t.Fatalf("expected shooter=101 goalie=902, got=%d/%d", ev.ShooterID, ev.GoalieID)
	}
	if ev.SituationCode != "1551" || ev.ShotType != "wrist" {
		t.Fatalf("unexpected attributes: %+v", ev)
	}
	if want := 2*periodClockSpan + 330; ev.ClockSeconds != want {
		t.Fatalf("expected clock=%d, got=%d", want, ev.ClockSeconds)
	}
	if ev.IsGoal {
		t.Fatal("shot must not be flagged as goal")
	}
}

func TestNormalizePlay_ModernGoalUsesScoringPlayerID(t *testing.T) {
	t.Parallel()

	play := map[string]any{
		"typeDescKey":   "goal",
		"situationCode": "1451",
		"details": map[string]any{
			"eventOwnerTeamId": float64(20),
			"scoringPlayerId":  float64(201),
			"goalieInNetId":    float64(901),
		},
	}

	ev, ok := normalizePlay(play, testRoster)
	if !ok {
		t.Fatal("expected play to normalize")
	}
	if ev.Type != pbp.EventGoal || !ev.IsGoal {
		t.Fatalf("expected GOAL, got=%+v", ev)
	}
	if ev.ActingSide != pbp.SideAway {
		t.Fatalf("expected AWAY, got=%s", ev.ActingSide)
	}
	if ev.ShooterID != 201 || ev.GoalieID != 901 {
		t.Fatalf("expected shooter=201 goalie=901, got=%d/%d", ev.ShooterID, ev.GoalieID)
	}
}

func TestNormalizePlay_LegacyShape(t *testing.T) {
	t.Parallel()

	play := map[string]any{
		"result": map[string]any{
			"eventTypeId":   "SHOT",
			"secondaryType": "Tip-In",
		},
		"team": map[string]any{"triCode": "MTL"},
		"about": map[string]any{
			"period":     float64(1),
			"periodTime": "10:00",
		},
		"players": []any{
			map[string]any{
				"playerType": "Shooter",
				"player":     map[string]any{"id": float64(202)},
			},
			map[string]any{
				"playerType": "Goalie",
				"player":     map[string]any{"id": float64(901)},
			},
		},
	}

	ev, ok := normalizePlay(play, testRoster)
	if !ok {
		t.Fatal("expected play to normalize")
	}
	if ev.Type != pbp.EventShot || ev.ActingSide != pbp.SideAway {
		t.Fatalf("unexpected event: %+v", ev)
	}
	if ev.ShooterID != 202 || ev.GoalieID != 901 {
		t.Fatalf("expected shooter=202 goalie=901, got=%d/%d", ev.ShooterID, ev.GoalieID)
	}
	if ev.ShotType != "Tip-In" {
		t.Fatalf("expected secondaryType fallback, got=%q", ev.ShotType)
	}
	if want := periodClockSpan + 600; ev.ClockSeconds != want {
		t.Fatalf("expected clock=%d, got=%d", want, ev.ClockSeconds)
	}
}

func TestNormalizePlay_SingleGoalieFallback(t *testing.T) {
	t.Parallel()

	play := map[string]any{
		"typeDescKey": "shot-on-goal",
		"details": map[string]any{
			"eventOwnerTeamId": float64(10),
			"shootingPlayerId": float64(101),
		},
	}

	ev, ok := normalizePlay(play, testRoster)
	if !ok {
		t.Fatal("expected play to normalize")
	}
	if ev.GoalieID != 902 {
		t.Fatalf("expected lone away goalie 902, got=%d", ev.GoalieID)
	}

	twoGoalies := testRoster
	twoGoalies.AwayGoalies = []int64{902, 903}
	ev, _ = normalizePlay(play, twoGoalies)
	if ev.GoalieID != 0 {
		t.Fatalf("expected unresolved goalie with two dressed, got=%d", ev.GoalieID)
	}
}

func TestNormalizePlay_DropsUnresolvable(t *testing.T) {
	t.Parallel()

	// No type at all.
	if _, ok := normalizePlay(map[string]any{"details": map[string]any{"eventOwnerTeamId": float64(10)}}, testRoster); ok {
		t.Fatal("expected play without type to be dropped")
	}
	// Type present, team unknown.
	play := map[string]any{
		"typeDescKey": "hit",
		"details":     map[string]any{"eventOwnerTeamId": float64(99)},
	}
	if _, ok := normalizePlay(play, testRoster); ok {
		t.Fatal("expected play with foreign team id to be dropped")
	}
}

func TestNormalizePlay_UnknownTypeBecomesOther(t *testing.T) {
	t.Parallel()

	play := map[string]any{
		"typeDescKey": "stoppage",
		"details":     map[string]any{"eventOwnerTeamId": float64(10)},
	}
	ev, ok := normalizePlay(play, testRoster)
	if !ok {
		t.Fatal("expected play to normalize")
	}
	if ev.Type != pbp.EventOther {
		t.Fatalf("expected OTHER, got=%s", ev.Type)
	}
}

func TestNormalizePlay_PenaltyRoles(t *testing.T) {
	t.Parallel()

	play := map[string]any{
		"typeDescKey": "penalty",
		"details": map[string]any{
			"eventOwnerTeamId":    float64(20),
			"committedByPlayerId": float64(203),
			"drawnByPlayerId":     float64(102),
		},
	}
	ev, ok := normalizePlay(play, testRoster)
	if !ok {
		t.Fatal("expected play to normalize")
	}
	if ev.PenalizedID != 203 || ev.DrewByID != 102 {
		t.Fatalf("expected penalized=203 drew_by=102, got=%d/%d", ev.PenalizedID, ev.DrewByID)
	}
}

func TestNormalizePlay_HitRoles(t *testing.T) {
	t.Parallel()

	legacy := map[string]any{
		"result": map[string]any{"eventTypeId": "HIT"},
		"team":   map[string]any{"triCode": "TOR"},
		"players": []any{
			map[string]any{
				"playerType": "Hitter",
				"player":     map[string]any{"id": float64(103)},
			},
			map[string]any{
				"playerType": "Hittee",
				"player":     map[string]any{"id": float64(204)},
			},
		},
	}
	ev, ok := normalizePlay(legacy, testRoster)
	if !ok {
		t.Fatal("expected play to normalize")
	}
	if ev.HitterID != 103 {
		t.Fatalf("expected hitter=103, got=%d", ev.HitterID)
	}
}

func TestParseClockSeconds(t *testing.T) {
	t.Parallel()

	cases := []struct {
		raw  string
		want int
		ok   bool
	}{
		{"00:00", 0, true},
		{"05:30", 330, true},
		{"19:59", 1199, true},
		{"", 0, false},
		{"5", 0, false},
		{"aa:bb", 0, false},
		{"05:71", 0, false},
	}
	for _, tc := range cases {
		got, ok := parseClockSeconds(tc.raw)
		if got != tc.want || ok != tc.ok {
			t.Fatalf("parseClockSeconds(%q) = %d,%v want %d,%v", tc.raw, got, ok, tc.want, tc.ok)
		}
	}
}
