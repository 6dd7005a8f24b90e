package pbp

import "strings"

// DefaultHighDangerKeywords are matched case-insensitively as substrings of
// the raw shot descriptor.
var DefaultHighDangerKeywords = []string{"tip", "deflect", "wrap", "backhand", "slot"}

// SkaterLine is one skater's derived counters for a single game. Strength
// bucket sums equal their totals by construction of the fold.
type SkaterLine struct {
	ShotAttempts      int
	FenwickFor        int
	MissedShots       int
	BlockedShotsTaken int
	ReboundsFor       int
	Hits              int
	Takeaways         int
	Giveaways         int
	PenaltiesTaken    int
	PenaltiesDrawn    int

	EVShotAttempts int
	PPShotAttempts int
	SHShotAttempts int

	EVSOG int
	PPSOG int
	SHSOG int
}

// SOG is the shots-on-goal total implied by the strength buckets.
func (l SkaterLine) SOG() int {
	return l.EVSOG + l.PPSOG + l.SHSOG
}

// GoalieLine is one goalie's derived counters for a single game. Buckets are
// labeled from the goalie's perspective, i.e. the inverse of the shooter's.
type GoalieLine struct {
	EVShotsFaced         int
	PPShotsFaced         int
	SHShotsFaced         int
	HighDangerShotsFaced int
	ReboundsAllowed      int
}

// ShotsFaced is the total implied by the strength buckets.
func (l GoalieLine) ShotsFaced() int {
	return l.EVShotsFaced + l.PPShotsFaced + l.SHShotsFaced
}

// Totals is the result of one aggregation pass over a game's event stream.
type Totals struct {
	Skaters map[int64]*SkaterLine
	Goalies map[int64]*GoalieLine
}

type Options struct {
	ReboundWindowSeconds int
	HighDangerKeywords   []string
}

// Aggregate folds a chronologically ordered event stream into per-player
// lines. Events with unresolved actors contribute nothing for that actor but
// still update the rebound memory; the pass never fails on bad data.
func Aggregate(events []Event, opts Options) Totals {
	keywords := opts.HighDangerKeywords
	if len(keywords) == 0 {
		keywords = DefaultHighDangerKeywords
	}

	totals := Totals{
		Skaters: make(map[int64]*SkaterLine),
		Goalies: make(map[int64]*GoalieLine),
	}
	rebounds := newReboundTracker(opts.ReboundWindowSeconds)

	for _, ev := range events {
		switch ev.Type {
		case EventHit:
			if ev.HitterID != 0 {
				totals.skater(ev.HitterID).Hits++
			}
			continue
		case EventTakeaway:
			if ev.TakerID != 0 {
				totals.skater(ev.TakerID).Takeaways++
			}
			continue
		case EventGiveaway:
			if ev.GiverID != 0 {
				totals.skater(ev.GiverID).Giveaways++
			}
			continue
		case EventPenalty:
			if ev.PenalizedID != 0 {
				totals.skater(ev.PenalizedID).PenaltiesTaken++
			}
			if ev.DrewByID != 0 {
				totals.skater(ev.DrewByID).PenaltiesDrawn++
			}
			continue
		}

		if !isShotFamily(ev.Type) {
			continue
		}

		strength := StrengthFor(ev.SituationCode, ev.ActingSide)
		rebound, allowedBy := rebounds.observe(ev)

		if ev.ShooterID != 0 {
			line := totals.skater(ev.ShooterID)
			line.ShotAttempts++
			switch strength {
			case StrengthPowerPlay:
				line.PPShotAttempts++
			case StrengthShortHanded:
				line.SHShotAttempts++
			default:
				line.EVShotAttempts++
			}

			switch ev.Type {
			case EventShot, EventGoal:
				line.FenwickFor++
				switch strength {
				case StrengthPowerPlay:
					line.PPSOG++
				case StrengthShortHanded:
					line.SHSOG++
				default:
					line.EVSOG++
				}
				if rebound {
					line.ReboundsFor++
				}
			case EventMissedShot:
				line.MissedShots++
				line.FenwickFor++
			case EventBlockedShot:
				line.BlockedShotsTaken++
			}
		}

		if onNet(ev.Type) && ev.GoalieID != 0 {
			line := totals.goalie(ev.GoalieID)
			switch strength.Invert() {
			case StrengthPowerPlay:
				line.PPShotsFaced++
			case StrengthShortHanded:
				line.SHShotsFaced++
			default:
				line.EVShotsFaced++
			}
			if isHighDanger(ev.ShotType, keywords) {
				line.HighDangerShotsFaced++
			}
		}
		if rebound && allowedBy != 0 && ev.Type == EventShot {
			totals.goalie(allowedBy).ReboundsAllowed++
		}
	}

	return totals
}

func (t Totals) skater(playerID int64) *SkaterLine {
	line, ok := t.Skaters[playerID]
	if !ok {
		line = &SkaterLine{}
		t.Skaters[playerID] = line
	}
	return line
}

func (t Totals) goalie(playerID int64) *GoalieLine {
	line, ok := t.Goalies[playerID]
	if !ok {
		line = &GoalieLine{}
		t.Goalies[playerID] = line
	}
	return line
}

func isHighDanger(shotType string, keywords []string) bool {
	if shotType == "" {
		return false
	}
	lowered := strings.ToLower(shotType)
	for _, kw := range keywords {
		if strings.Contains(lowered, kw) {
			return true
		}
	}
	return false
}
