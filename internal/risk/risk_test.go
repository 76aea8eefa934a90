package risk

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/palimpsest-sports/scrapecore/internal/domain"
)

var thresholds = domain.DefaultAlertThresholds

func TestChangePercent(t *testing.T) {
	assert.Equal(t, 10.0, ChangePercent(2.0, 2.2), "decimal arithmetic keeps a 10% move exactly 10, not 10.000000000000009")
	assert.Equal(t, -10.0, ChangePercent(2.0, 1.8))
	assert.Equal(t, 0.0, ChangePercent(0, 5))
}

func TestClassifySeverity(t *testing.T) {
	cases := []struct {
		name    string
		pct     float64
		wantSev domain.AlertSeverity
		wantOK  bool
	}{
		{"below warning", 5.0, "", false},
		{"at warning boundary", 7.0, domain.SeverityWarning, true},
		{"between warning and elevated", 8.5, domain.SeverityWarning, true},
		{"at elevated boundary", 10.0, domain.SeverityElevated, true},
		{"at critical boundary", 15.0, domain.SeverityCritical, true},
		{"negative critical", -20.0, domain.SeverityCritical, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			sev, ok := ClassifySeverity(tc.pct, thresholds)
			assert.Equal(t, tc.wantOK, ok)
			assert.Equal(t, tc.wantSev, sev)
		})
	}
}

func TestDirection(t *testing.T) {
	assert.Equal(t, "up", direction(2.0, 2.2))
	assert.Equal(t, "down", direction(2.2, 2.0))
	assert.Equal(t, "", direction(2.0, 2.005))
	assert.Equal(t, "", direction(0, 2.0))
}

var key1X2 = domain.MarketKey{CanonicalID: "1X2_FT"}

func TestDetect_PriceChangeOnReferenceMatchedMarket(t *testing.T) {
	input := EventInput{
		EventID:      1,
		EventKickoff: time.Now().Add(2 * time.Hour),
		Reference: BookmakerMarkets{
			MarketName: map[domain.MarketKey]string{key1X2: "1X2"},
			Old: map[domain.MarketKey]MarketState{
				key1X2: {Outcomes: map[string]float64{"HOME": 2.0}},
			},
			New: map[domain.MarketKey]MarketState{
				key1X2: {Outcomes: map[string]float64{"HOME": 2.4}},
			},
		},
		Competitors: map[domain.BookmakerSlug]BookmakerMarkets{
			domain.SlugSportyBet: {
				New: map[domain.MarketKey]MarketState{
					key1X2: {Outcomes: map[string]float64{"HOME": 2.35}},
				},
			},
		},
	}

	alerts := Detect(input, thresholds, time.Now())

	var priceChanges []domain.RiskAlert
	for _, a := range alerts {
		if a.Kind == domain.AlertPriceChange {
			priceChanges = append(priceChanges, a)
		}
	}
	require.Len(t, priceChanges, 1)
	assert.Equal(t, domain.SlugBetpawa, priceChanges[0].BookmakerSlug)
	assert.InDelta(t, 20.0, priceChanges[0].ChangePercent, 0.0001)
	assert.Equal(t, domain.SeverityCritical, priceChanges[0].Severity)
}

func TestDetect_PriceChangeSkippedWhenNotMatchedAcrossCompetitors(t *testing.T) {
	input := EventInput{
		EventID:      1,
		EventKickoff: time.Now().Add(2 * time.Hour),
		Reference: BookmakerMarkets{
			Old: map[domain.MarketKey]MarketState{key1X2: {Outcomes: map[string]float64{"HOME": 2.0}}},
			New: map[domain.MarketKey]MarketState{key1X2: {Outcomes: map[string]float64{"HOME": 2.4}}},
		},
		Competitors: map[domain.BookmakerSlug]BookmakerMarkets{},
	}

	alerts := Detect(input, thresholds, time.Now())
	for _, a := range alerts {
		assert.NotEqual(t, domain.AlertPriceChange, a.Kind, "unmatched reference market should not alert")
	}
}

func TestDetect_DirectionDisagreement(t *testing.T) {
	input := EventInput{
		EventID:      1,
		EventKickoff: time.Now().Add(2 * time.Hour),
		Reference: BookmakerMarkets{
			MarketName: map[domain.MarketKey]string{key1X2: "1X2"},
			Old:        map[domain.MarketKey]MarketState{key1X2: {Outcomes: map[string]float64{"HOME": 2.0}}},
			New:        map[domain.MarketKey]MarketState{key1X2: {Outcomes: map[string]float64{"HOME": 2.2}}},
		},
		Competitors: map[domain.BookmakerSlug]BookmakerMarkets{
			domain.SlugBet9ja: {
				Old: map[domain.MarketKey]MarketState{key1X2: {Outcomes: map[string]float64{"HOME": 2.0}}},
				New: map[domain.MarketKey]MarketState{key1X2: {Outcomes: map[string]float64{"HOME": 1.8}}},
			},
		},
	}

	alerts := Detect(input, thresholds, time.Now())

	var disagreements []domain.RiskAlert
	for _, a := range alerts {
		if a.Kind == domain.AlertDirectionDisagreement {
			disagreements = append(disagreements, a)
		}
	}
	require.Len(t, disagreements, 1)
	assert.Equal(t, domain.SeverityElevated, disagreements[0].Severity)
	assert.Equal(t, "s2:down", *disagreements[0].CompetitorDirection)
}

func TestDetect_NoAlertWhenOutcomesEqual(t *testing.T) {
	input := EventInput{
		EventID:      1,
		EventKickoff: time.Now().Add(2 * time.Hour),
		Reference: BookmakerMarkets{
			Old: map[domain.MarketKey]MarketState{key1X2: {Outcomes: map[string]float64{"HOME": 2.0}}},
			New: map[domain.MarketKey]MarketState{key1X2: {Outcomes: map[string]float64{"HOME": 2.0}}},
		},
		Competitors: map[domain.BookmakerSlug]BookmakerMarkets{
			domain.SlugSportyBet: {
				Old: map[domain.MarketKey]MarketState{key1X2: {Outcomes: map[string]float64{"HOME": 2.0}}},
				New: map[domain.MarketKey]MarketState{key1X2: {Outcomes: map[string]float64{"HOME": 2.0}}},
			},
		},
	}

	alerts := Detect(input, thresholds, time.Now())
	assert.Empty(t, alerts)
}

func TestDetect_AvailabilitySuspendedAndReturned(t *testing.T) {
	// a competitor still carries the market, so the reference's
	// disappearance is a matched-market availability event
	competitorHas1X2 := map[domain.BookmakerSlug]BookmakerMarkets{
		domain.SlugSportyBet: {
			New: map[domain.MarketKey]MarketState{key1X2: {Outcomes: map[string]float64{"HOME": 2.0}}},
		},
	}

	suspendedInput := EventInput{
		EventID:      1,
		EventKickoff: time.Now().Add(2 * time.Hour),
		Reference: BookmakerMarkets{
			MarketName: map[domain.MarketKey]string{key1X2: "1X2"},
			Old:        map[domain.MarketKey]MarketState{key1X2: {Outcomes: map[string]float64{"HOME": 2.0}}},
			New:        map[domain.MarketKey]MarketState{},
		},
		Competitors: competitorHas1X2,
	}
	alerts := Detect(suspendedInput, thresholds, time.Now())
	require.Len(t, alerts, 1)
	assert.Equal(t, domain.AlertAvailability, alerts[0].Kind)
	assert.Equal(t, domain.SlugBetpawa, alerts[0].BookmakerSlug)
	assert.Equal(t, "suspended", *alerts[0].CompetitorDirection)

	past := time.Now().Add(-time.Minute)
	returnedInput := EventInput{
		EventID:      1,
		EventKickoff: time.Now().Add(2 * time.Hour),
		Reference: BookmakerMarkets{
			MarketName: map[domain.MarketKey]string{key1X2: "1X2"},
			Old: map[domain.MarketKey]MarketState{
				key1X2: {Outcomes: map[string]float64{"HOME": 2.0}, UnavailableAt: &past},
			},
			New: map[domain.MarketKey]MarketState{
				key1X2: {Outcomes: map[string]float64{"HOME": 2.0}},
			},
		},
		Competitors: competitorHas1X2,
	}
	alerts = Detect(returnedInput, thresholds, time.Now())
	require.Len(t, alerts, 1)
	assert.Equal(t, domain.AlertAvailability, alerts[0].Kind)
	assert.Equal(t, "returned", *alerts[0].CompetitorDirection)
}

func TestDetect_SuspendedAlertNotRepeatedWhileMarketStaysGone(t *testing.T) {
	past := time.Now().Add(-5 * time.Minute)
	input := EventInput{
		EventID:      1,
		EventKickoff: time.Now().Add(2 * time.Hour),
		Reference: BookmakerMarkets{
			MarketName: map[domain.MarketKey]string{key1X2: "1X2"},
			Old: map[domain.MarketKey]MarketState{
				key1X2: {Outcomes: map[string]float64{"HOME": 2.0}, UnavailableAt: &past},
			},
			New: map[domain.MarketKey]MarketState{},
		},
		Competitors: map[domain.BookmakerSlug]BookmakerMarkets{
			domain.SlugSportyBet: {
				New: map[domain.MarketKey]MarketState{key1X2: {Outcomes: map[string]float64{"HOME": 2.0}}},
			},
		},
	}

	alerts := Detect(input, thresholds, time.Now())
	assert.Empty(t, alerts, "a market already stamped unavailable must not re-alert every cycle")
}

func TestDetect_UnmatchedReferenceAvailabilityFiltered(t *testing.T) {
	input := EventInput{
		EventID:      1,
		EventKickoff: time.Now().Add(2 * time.Hour),
		Reference: BookmakerMarkets{
			MarketName: map[domain.MarketKey]string{key1X2: "1X2"},
			Old:        map[domain.MarketKey]MarketState{key1X2: {Outcomes: map[string]float64{"HOME": 2.0}}},
			New:        map[domain.MarketKey]MarketState{},
		},
		Competitors: map[domain.BookmakerSlug]BookmakerMarkets{},
	}

	alerts := Detect(input, thresholds, time.Now())
	assert.Empty(t, alerts, "no comparable competitor counterpart, no reference availability alert")
}
