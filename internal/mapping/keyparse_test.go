package mapping

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseBet9jaKeySimple(t *testing.T) {
	p, ok := parseBet9jaKey("S_1X2_1")
	require.True(t, ok)
	assert.Equal(t, "1X2", p.Market)
	assert.Equal(t, "", p.Param)
	assert.Equal(t, "1", p.Outcome)
}

func TestParseBet9jaKeyWithParam(t *testing.T) {
	p, ok := parseBet9jaKey("S_OU@2.5_O")
	require.True(t, ok)
	assert.Equal(t, "OU", p.Market)
	assert.Equal(t, "2.5", p.Param)
	assert.Equal(t, "O", p.Outcome)
}

func TestParseBet9jaKeyRejectsMissingPrefix(t *testing.T) {
	_, ok := parseBet9jaKey("1X2_1")
	assert.False(t, ok)
}

func TestParseBet9jaKeyRejectsNoOutcome(t *testing.T) {
	_, ok := parseBet9jaKey("S_1X2")
	assert.False(t, ok)
}

func TestGroupBet9jaOddsGroupsByMarketAndParam(t *testing.T) {
	odds := map[string]string{
		"S_1X2_1":     "2.10",
		"S_1X2_X":     "3.20",
		"S_1X2_2":     "3.50",
		"S_OU@2.5_O":  "1.90",
		"S_OU@2.5_U":  "1.95",
		"S_OU@3.5_O":  "2.80",
		"invalidjunk": "9.9",
	}

	groups := groupBet9jaOdds(odds)
	require.Len(t, groups, 3)

	byKey := make(map[string]groupedBet9jaMarket)
	for _, g := range groups {
		byKey[g.MarketKey+"@"+g.Param] = g
	}

	x12 := byKey["1X2@"]
	assert.False(t, x12.HasParam)
	assert.Len(t, x12.Outcomes, 3)
	assert.Equal(t, "2.10", x12.Outcomes["1"])

	ou25 := byKey["OU@2.5"]
	assert.True(t, ou25.HasParam)
	assert.Len(t, ou25.Outcomes, 2)

	ou35 := byKey["OU@3.5"]
	assert.True(t, ou35.HasParam)
	assert.Len(t, ou35.Outcomes, 1)
}
