package mapping

import "github.com/palimpsest-sports/scrapecore/internal/domain"

func str(s string) *string { return &s }

// defaultMappings are the compiled-in MarketMapping defaults loaded
// before any DB overrides are applied. DB rows override these by
// canonical ID at reload time.
var defaultMappings = []domain.MarketMapping{
	{
		CanonicalID: "1X2_FT",
		Name:        "Match Result",
		BetpawaID:   str("1"),
		SportyBetID: str("1"),
		Bet9jaKey:   str("1X2"),
		Source:      domain.MappingSourceCode,
		Active:      true,
		OutcomeMappings: []domain.OutcomeMapping{
			{CanonicalOutcomeID: "HOME", BetpawaName: str("1"), SportyBetDesc: str("Home"), Bet9jaSuffix: str("1"), Position: 0},
			{CanonicalOutcomeID: "DRAW", BetpawaName: str("X"), SportyBetDesc: str("Draw"), Bet9jaSuffix: str("X"), Position: 1},
			{CanonicalOutcomeID: "AWAY", BetpawaName: str("2"), SportyBetDesc: str("Away"), Bet9jaSuffix: str("2"), Position: 2},
		},
	},
	{
		CanonicalID: "DOUBLE_CHANCE_FT",
		Name:        "Double Chance",
		BetpawaID:   str("10"),
		SportyBetID: str("10"),
		Bet9jaKey:   str("DC"),
		Source:      domain.MappingSourceCode,
		Active:      true,
		OutcomeMappings: []domain.OutcomeMapping{
			{CanonicalOutcomeID: "HOME_OR_DRAW", BetpawaName: str("1X"), SportyBetDesc: str("1X"), Bet9jaSuffix: str("1X"), Position: 0},
			{CanonicalOutcomeID: "HOME_OR_AWAY", BetpawaName: str("12"), SportyBetDesc: str("12"), Bet9jaSuffix: str("12"), Position: 1},
			{CanonicalOutcomeID: "DRAW_OR_AWAY", BetpawaName: str("X2"), SportyBetDesc: str("X2"), Bet9jaSuffix: str("X2"), Position: 2},
		},
	},
	{
		CanonicalID: "OU_FT",
		Name:        "Total Goals Over/Under",
		BetpawaID:   str("18"),
		SportyBetID: str("18"),
		Bet9jaKey:   str("OU"),
		Source:      domain.MappingSourceCode,
		Active:      true,
		OutcomeMappings: []domain.OutcomeMapping{
			{CanonicalOutcomeID: "OVER", BetpawaName: str("Over"), SportyBetDesc: str("Over"), Bet9jaSuffix: str("O"), Position: 0},
			{CanonicalOutcomeID: "UNDER", BetpawaName: str("Under"), SportyBetDesc: str("Under"), Bet9jaSuffix: str("U"), Position: 1},
		},
	},
	{
		CanonicalID: "OU_1T",
		Name:        "First Half Total Goals Over/Under",
		BetpawaID:   str("19"),
		SportyBetID: str("19"),
		Bet9jaKey:   str("OU1T"),
		Source:      domain.MappingSourceCode,
		Active:      true,
		OutcomeMappings: []domain.OutcomeMapping{
			{CanonicalOutcomeID: "OVER", BetpawaName: str("Over"), SportyBetDesc: str("Over"), Bet9jaSuffix: str("O"), Position: 0},
			{CanonicalOutcomeID: "UNDER", BetpawaName: str("Under"), SportyBetDesc: str("Under"), Bet9jaSuffix: str("U"), Position: 1},
		},
	},
	{
		CanonicalID: "OU_2T",
		Name:        "Second Half Total Goals Over/Under",
		BetpawaID:   str("20"),
		SportyBetID: str("20"),
		Bet9jaKey:   str("OU2T"),
		Source:      domain.MappingSourceCode,
		Active:      true,
		OutcomeMappings: []domain.OutcomeMapping{
			{CanonicalOutcomeID: "OVER", BetpawaName: str("Over"), SportyBetDesc: str("Over"), Bet9jaSuffix: str("O"), Position: 0},
			{CanonicalOutcomeID: "UNDER", BetpawaName: str("Under"), SportyBetDesc: str("Under"), Bet9jaSuffix: str("U"), Position: 1},
		},
	},
	{
		CanonicalID: "AH_FT",
		Name:        "Asian Handicap",
		BetpawaID:   str("54"),
		SportyBetID: str("54"),
		Bet9jaKey:   str("AH"),
		Source:      domain.MappingSourceCode,
		Active:      true,
		OutcomeMappings: []domain.OutcomeMapping{
			{CanonicalOutcomeID: "HOME", BetpawaName: str("1"), SportyBetDesc: str("Home"), Bet9jaSuffix: str("1"), Position: 0},
			{CanonicalOutcomeID: "AWAY", BetpawaName: str("2"), SportyBetDesc: str("Away"), Bet9jaSuffix: str("2"), Position: 1},
		},
	},
	{
		CanonicalID: "EU_HND_FT",
		Name:        "3-Way Handicap",
		BetpawaID:   str("60"),
		SportyBetID: str("60"),
		Bet9jaKey:   str("1X2HND"),
		Source:      domain.MappingSourceCode,
		Active:      true,
		OutcomeMappings: []domain.OutcomeMapping{
			{CanonicalOutcomeID: "HOME", BetpawaName: str("1"), SportyBetDesc: str("Home"), Bet9jaSuffix: str("1H"), Position: 0},
			{CanonicalOutcomeID: "DRAW", BetpawaName: str("X"), SportyBetDesc: str("Draw"), Bet9jaSuffix: str("XH"), Position: 1},
			{CanonicalOutcomeID: "AWAY", BetpawaName: str("2"), SportyBetDesc: str("Away"), Bet9jaSuffix: str("2H"), Position: 2},
		},
	},
	{
		CanonicalID: "CORNERS_OU_FT",
		Name:        "Total Corners Over/Under",
		BetpawaID:   str("140"),
		SportyBetID: str("140"),
		Bet9jaKey:   str("OUCORNERS"),
		Source:      domain.MappingSourceCode,
		Active:      true,
		OutcomeMappings: []domain.OutcomeMapping{
			{CanonicalOutcomeID: "OVER", BetpawaName: str("Over"), SportyBetDesc: str("Over"), Bet9jaSuffix: str("O"), Position: 0},
			{CanonicalOutcomeID: "UNDER", BetpawaName: str("Under"), SportyBetDesc: str("Under"), Bet9jaSuffix: str("U"), Position: 1},
		},
	},
	{
		CanonicalID: "BOOKINGS_OU_FT",
		Name:        "Total Bookings Over/Under",
		BetpawaID:   str("160"),
		SportyBetID: str("160"),
		Bet9jaKey:   str("OUBOOK"),
		Source:      domain.MappingSourceCode,
		Active:      true,
		OutcomeMappings: []domain.OutcomeMapping{
			{CanonicalOutcomeID: "OVER", BetpawaName: str("Over"), SportyBetDesc: str("Over"), Bet9jaSuffix: str("O"), Position: 0},
			{CanonicalOutcomeID: "UNDER", BetpawaName: str("Under"), SportyBetDesc: str("Under"), Bet9jaSuffix: str("U"), Position: 1},
		},
	},
	{
		CanonicalID: "HTFT",
		Name:        "Half Time / Full Time",
		BetpawaID:   str("8"),
		SportyBetID: str("8"),
		Bet9jaKey:   nil,
		Source:      domain.MappingSourceCode,
		Active:      true,
		OutcomeMappings: []domain.OutcomeMapping{
			{CanonicalOutcomeID: "HOME_HOME", BetpawaName: str("1/1"), SportyBetDesc: str("1/1"), Position: 0},
			{CanonicalOutcomeID: "HOME_DRAW", BetpawaName: str("1/X"), SportyBetDesc: str("1/X"), Position: 1},
			{CanonicalOutcomeID: "HOME_AWAY", BetpawaName: str("1/2"), SportyBetDesc: str("1/2"), Position: 2},
			{CanonicalOutcomeID: "DRAW_HOME", BetpawaName: str("X/1"), SportyBetDesc: str("X/1"), Position: 3},
			{CanonicalOutcomeID: "DRAW_DRAW", BetpawaName: str("X/X"), SportyBetDesc: str("X/X"), Position: 4},
			{CanonicalOutcomeID: "DRAW_AWAY", BetpawaName: str("X/2"), SportyBetDesc: str("X/2"), Position: 5},
			{CanonicalOutcomeID: "AWAY_HOME", BetpawaName: str("2/1"), SportyBetDesc: str("2/1"), Position: 6},
			{CanonicalOutcomeID: "AWAY_DRAW", BetpawaName: str("2/X"), SportyBetDesc: str("2/X"), Position: 7},
			{CanonicalOutcomeID: "AWAY_AWAY", BetpawaName: str("2/2"), SportyBetDesc: str("2/2"), Position: 8},
		},
	},
	// Split targets of Bet9ja's combined Home/Away Over/Under markets.
	// These have no bet9ja_key of their own: bet9ja.go special-cases the
	// combined keys before reaching the normal cache lookup.
	{
		CanonicalID: "HOME_OU_FT",
		Name:        "Home Team Total Over/Under",
		BetpawaID:   str("5006"),
		Source:      domain.MappingSourceCode,
		Active:      true,
	},
	{
		CanonicalID: "AWAY_OU_FT",
		Name:        "Away Team Total Over/Under",
		BetpawaID:   str("5003"),
		Source:      domain.MappingSourceCode,
		Active:      true,
	},
	{
		CanonicalID: "HOME_OU_1T",
		Name:        "Home Team Total Over/Under - First Half",
		BetpawaID:   str("5024"),
		Source:      domain.MappingSourceCode,
		Active:      true,
	},
	{
		CanonicalID: "AWAY_OU_1T",
		Name:        "Away Team Total Over/Under - First Half",
		BetpawaID:   str("5021"),
		Source:      domain.MappingSourceCode,
		Active:      true,
	},
	{
		CanonicalID: "HOME_OU_2T",
		Name:        "Home Team Total Over/Under - Second Half",
		BetpawaID:   str("5027"),
		Source:      domain.MappingSourceCode,
		Active:      true,
	},
	{
		CanonicalID: "AWAY_OU_2T",
		Name:        "Away Team Total Over/Under - Second Half",
		BetpawaID:   str("5030"),
		Source:      domain.MappingSourceCode,
		Active:      true,
	},
}
