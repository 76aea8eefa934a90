package mapping

import "strings"

// parsedBet9jaKey is a Bet9ja flat odds key split into its three parts.
// Keys look like "S_1X2_1" (simple) or "S_OU@2.5_O" (parameterized).
type parsedBet9jaKey struct {
	Market string // e.g. "1X2", "OU"
	Param  string // e.g. "2.5"; empty when absent
	Outcome string // e.g. "1", "X", "O"
}

// parseBet9jaKey splits a raw Bet9ja odds key. Returns false if key does
// not match the "S_<MARKET>[@<PARAM>]_<OUTCOME>" shape.
func parseBet9jaKey(key string) (parsedBet9jaKey, bool) {
	const prefix = "S_"
	if !strings.HasPrefix(key, prefix) {
		return parsedBet9jaKey{}, false
	}
	rest := key[len(prefix):]

	lastUnderscore := strings.LastIndex(rest, "_")
	if lastUnderscore < 0 {
		return parsedBet9jaKey{}, false
	}
	head := rest[:lastUnderscore]
	outcome := rest[lastUnderscore+1:]
	if head == "" || outcome == "" {
		return parsedBet9jaKey{}, false
	}

	market := head
	param := ""
	if at := strings.Index(head, "@"); at >= 0 {
		market = head[:at]
		param = head[at+1:]
	}
	if market == "" {
		return parsedBet9jaKey{}, false
	}

	return parsedBet9jaKey{Market: market, Param: param, Outcome: outcome}, true
}

// groupedBet9jaMarket collects every outcome seen for one (market, param)
// pair across a full raw odds dict, mirroring _group_by_market.
type groupedBet9jaMarket struct {
	MarketKey string
	Param     string // empty means "no param"
	HasParam  bool
	Outcomes  map[string]string // outcome suffix -> raw odds string
}

// groupBet9jaOdds parses and groups a flat Bet9ja odds map by market key.
func groupBet9jaOdds(odds map[string]string) []groupedBet9jaMarket {
	type groupKey struct {
		market string
		param  string
	}
	groups := make(map[groupKey]*groupedBet9jaMarket)
	var order []groupKey

	for key, val := range odds {
		parsed, ok := parseBet9jaKey(key)
		if !ok {
			continue
		}
		gk := groupKey{market: parsed.Market, param: parsed.Param}
		g, exists := groups[gk]
		if !exists {
			g = &groupedBet9jaMarket{
				MarketKey: parsed.Market,
				Param:     parsed.Param,
				HasParam:  parsed.Param != "",
				Outcomes:  make(map[string]string),
			}
			groups[gk] = g
			order = append(order, gk)
		}
		g.Outcomes[parsed.Outcome] = val
	}

	result := make([]groupedBet9jaMarket, 0, len(order))
	for _, gk := range order {
		result = append(result, *groups[gk])
	}
	return result
}
