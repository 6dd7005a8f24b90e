package pbp

import "strings"

type Strength string

const (
	StrengthEven        Strength = "EV"
	StrengthPowerPlay   Strength = "PP"
	StrengthShortHanded Strength = "SH"
)

// Invert maps the shooter's strength label to the defending goalie's. The
// goalie label is always derived this way, never by decoding the situation
// code a second time.
func (s Strength) Invert() Strength {
	switch s {
	case StrengthPowerPlay:
		return StrengthShortHanded
	case StrengthShortHanded:
		return StrengthPowerPlay
	}
	return StrengthEven
}

// StrengthFor classifies an event from the acting team's perspective.
//
// The situation code is four digits: home goalie flag, home skater count,
// away skater count, away goalie flag ("1551" is 5v5 with both goalies in).
// A "5v5"-style form is accepted as well. Anything unparsable classifies as
// even strength; bad data must not abort an aggregation pass.
func StrengthFor(situationCode string, actingSide Side) Strength {
	home, away, ok := situationCounts(situationCode)
	if !ok || home == away {
		return StrengthEven
	}

	acting, opposing := home, away
	if actingSide == SideAway {
		acting, opposing = away, home
	}
	if acting > opposing {
		return StrengthPowerPlay
	}
	return StrengthShortHanded
}

func situationCounts(code string) (home, away int, ok bool) {
	code = strings.TrimSpace(code)
	if code == "" {
		return 0, 0, false
	}

	for _, sep := range []string{"v", "V", "x", "X"} {
		if parts := strings.Split(code, sep); len(parts) == 2 {
			h, hok := digitValue(parts[0])
			a, aok := digitValue(parts[1])
			if hok && aok {
				return h, a, true
			}
		}
	}

	if len(code) == 4 {
		h, hok := digitValue(code[1:2])
		a, aok := digitValue(code[2:3])
		if hok && aok {
			return h, a, true
		}
	}
	return 0, 0, false
}

func digitValue(s string) (int, bool) {
	s = strings.TrimSpace(s)
	if len(s) != 1 || s[0] < '0' || s[0] > '9' {
		return 0, false
	}
	return int(s[0] - '0'), true
}
