// Package risk detects odds movements worth an operator's attention:
// outcome price changes past configurable thresholds, reference vs
// competitor direction disagreement, and market availability flips.
package risk

import (
	"math"
	"time"

	"github.com/shopspring/decimal"

	"github.com/palimpsest-sports/scrapecore/internal/domain"
)

const directionEpsilon = 0.01

var hundred = decimal.NewFromInt(100)

// ChangePercent computes the signed percentage change between two odds
// values: ((new - old) / old) * 100. The arithmetic runs through
// decimal so a move like 2.0 -> 2.2 yields exactly 10, not the
// 10.000000000000009 binary floats produce — the stored change_percent
// is operator-facing and threshold-compared.
func ChangePercent(oldOdds, newOdds float64) float64 {
	if oldOdds == 0 {
		return 0
	}
	o := decimal.NewFromFloat(oldOdds)
	n := decimal.NewFromFloat(newOdds)
	pct, _ := n.Sub(o).Div(o).Mul(hundred).Float64()
	return pct
}

// ClassifySeverity maps a (possibly negative) change percent to a
// severity band, or ("", false) if it doesn't clear the warning
// threshold.
func ClassifySeverity(changePercent float64, thresholds domain.AlertThresholds) (domain.AlertSeverity, bool) {
	abs := math.Abs(changePercent)
	switch {
	case abs >= thresholds.Critical:
		return domain.SeverityCritical, true
	case abs >= thresholds.Elevated:
		return domain.SeverityElevated, true
	case abs >= thresholds.Warning:
		return domain.SeverityWarning, true
	default:
		return "", false
	}
}

// direction is "up", "down", or "" (unchanged within epsilon).
func direction(oldOdds, newOdds float64) string {
	if oldOdds == 0 || newOdds == 0 {
		return ""
	}
	diff := newOdds - oldOdds
	if math.Abs(diff) < directionEpsilon {
		return ""
	}
	if diff > 0 {
		return "up"
	}
	return "down"
}

// MarketState is one bookmaker's view of one market at one point in
// time: outcome name -> odds, plus an optional suspension stamp.
type MarketState struct {
	Outcomes      map[string]float64
	UnavailableAt *time.Time
}

// BookmakerMarkets is the old (cached) and new (this cycle) market
// state for one bookmaker/source, keyed by MarketKey. A market key
// absent from New but present in Old signals it went unavailable.
type BookmakerMarkets struct {
	MarketName map[domain.MarketKey]string
	MarketLine map[domain.MarketKey]*float64
	Old        map[domain.MarketKey]MarketState
	New        map[domain.MarketKey]MarketState
}

// EventInput bundles one event's reference and competitor market
// states for one cycle's risk detection pass.
type EventInput struct {
	EventID      int64
	EventKickoff time.Time
	Reference    BookmakerMarkets
	Competitors  map[domain.BookmakerSlug]BookmakerMarkets
}

// Detect runs all three detection algorithms for one event and returns
// its flat alert list.
func Detect(input EventInput, thresholds domain.AlertThresholds, now time.Time) []domain.RiskAlert {
	var alerts []domain.RiskAlert
	matched := matchedMarketKeys(input)

	alerts = append(alerts, detectPriceChange(domain.SlugBetpawa, input.Reference, matched, input.EventID, input.EventKickoff, thresholds, now)...)
	for slug, comp := range input.Competitors {
		alerts = append(alerts, detectPriceChange(slug, comp, nil, input.EventID, input.EventKickoff, thresholds, now)...)
	}

	alerts = append(alerts, detectDirectionDisagreement(input, thresholds, now)...)

	alerts = append(alerts, detectAvailability(domain.SlugBetpawa, input.Reference, matched, input.EventID, input.EventKickoff, now)...)
	for slug, comp := range input.Competitors {
		alerts = append(alerts, detectAvailability(slug, comp, nil, input.EventID, input.EventKickoff, now)...)
	}

	return alerts
}

// matchedMarketKeys returns every market key present in at least one
// competitor's market set this cycle — reference-bookmaker alerts are
// only emitted for markets with a comparable competitor counterpart in
// this batch. Old state counts too, so a reference market that
// just went suspended still has its comparable counterpart recognized.
func matchedMarketKeys(input EventInput) map[domain.MarketKey]bool {
	matched := make(map[domain.MarketKey]bool)
	for _, comp := range input.Competitors {
		for key := range comp.New {
			matched[key] = true
		}
		for key := range comp.Old {
			matched[key] = true
		}
	}
	return matched
}

// detectPriceChange finds outcome-level price moves exceeding
// thresholds. If filter is non-nil, only keys present in filter are
// considered (used to restrict the reference bookmaker to matched
// markets).
func detectPriceChange(slug domain.BookmakerSlug, bm BookmakerMarkets, filter map[domain.MarketKey]bool, eventID int64, kickoff time.Time, thresholds domain.AlertThresholds, now time.Time) []domain.RiskAlert {
	var alerts []domain.RiskAlert
	for key, newState := range bm.New {
		if filter != nil && !filter[key] {
			continue
		}
		oldState, ok := bm.Old[key]
		if !ok {
			continue
		}
		for name, newOdds := range newState.Outcomes {
			oldOdds, ok := oldState.Outcomes[name]
			if !ok {
				continue
			}
			changePct := ChangePercent(oldOdds, newOdds)
			severity, ok := ClassifySeverity(changePct, thresholds)
			if !ok {
				continue
			}
			outcomeName := name
			line := bm.MarketLine[key]
			alerts = append(alerts, domain.RiskAlert{
				EventID:       eventID,
				BookmakerSlug: slug,
				MarketID:      key.CanonicalID,
				MarketName:    bm.MarketName[key],
				Line:          line,
				OutcomeName:   &outcomeName,
				Kind:          domain.AlertPriceChange,
				Severity:      severity,
				ChangePercent: changePct,
				OldValue:      floatPtr(oldOdds),
				NewValue:      floatPtr(newOdds),
				DetectedAt:    now,
				Status:        domain.AlertStatusNew,
				EventKickoff:  kickoff,
			})
		}
	}
	return alerts
}

// detectDirectionDisagreement finds outcomes where the reference
// bookmaker and a competitor moved in opposite directions this cycle.
func detectDirectionDisagreement(input EventInput, thresholds domain.AlertThresholds, now time.Time) []domain.RiskAlert {
	var alerts []domain.RiskAlert

	for key, refNew := range input.Reference.New {
		refOld, ok := input.Reference.Old[key]
		if !ok {
			continue
		}
		for name, refNewOdds := range refNew.Outcomes {
			refOldOdds, ok := refOld.Outcomes[name]
			if !ok {
				continue
			}
			refDir := direction(refOldOdds, refNewOdds)
			if refDir == "" {
				continue
			}

			for slug, comp := range input.Competitors {
				compNew, ok := comp.New[key]
				if !ok {
					continue
				}
				compOld, ok := comp.Old[key]
				if !ok {
					continue
				}
				compNewOdds, ok := compNew.Outcomes[name]
				if !ok {
					continue
				}
				compOldOdds, ok := compOld.Outcomes[name]
				if !ok {
					continue
				}
				compDir := direction(compOldOdds, compNewOdds)
				if compDir == "" || compDir == refDir {
					continue
				}

				deltaPct := 0.0
				if refNewOdds != 0 {
					r := decimal.NewFromFloat(refNewOdds)
					deltaPct, _ = r.Sub(decimal.NewFromFloat(compNewOdds)).Abs().Div(r).Mul(hundred).Float64()
				}
				outcomeName := name
				annotation := string(slug) + ":" + compDir
				line := input.Reference.MarketLine[key]
				alerts = append(alerts, domain.RiskAlert{
					EventID:             input.EventID,
					BookmakerSlug:       domain.SlugBetpawa,
					MarketID:            key.CanonicalID,
					MarketName:          input.Reference.MarketName[key],
					Line:                line,
					OutcomeName:         &outcomeName,
					Kind:                domain.AlertDirectionDisagreement,
					Severity:            domain.SeverityElevated,
					ChangePercent:       deltaPct,
					OldValue:            floatPtr(refNewOdds),
					NewValue:            floatPtr(compNewOdds),
					CompetitorDirection: &annotation,
					DetectedAt:          now,
					Status:              domain.AlertStatusNew,
					EventKickoff:        input.EventKickoff,
				})
			}
		}
	}
	return alerts
}

// detectAvailability finds markets that disappeared or reappeared this
// cycle.
func detectAvailability(slug domain.BookmakerSlug, bm BookmakerMarkets, filter map[domain.MarketKey]bool, eventID int64, kickoff time.Time, now time.Time) []domain.RiskAlert {
	var alerts []domain.RiskAlert

	for key, oldState := range bm.Old {
		if filter != nil && !filter[key] {
			continue
		}
		if _, stillPresent := bm.New[key]; stillPresent {
			continue
		}
		if oldState.UnavailableAt != nil {
			// already stamped suspended in an earlier cycle; one alert
			// per disappearance, not one per cycle it stays gone
			continue
		}
		suspended := "suspended"
		alerts = append(alerts, domain.RiskAlert{
			EventID:             eventID,
			BookmakerSlug:       slug,
			MarketID:            key.CanonicalID,
			MarketName:          bm.MarketName[key],
			Line:                bm.MarketLine[key],
			Kind:                domain.AlertAvailability,
			Severity:            domain.SeverityWarning,
			CompetitorDirection: &suspended,
			DetectedAt:          now,
			Status:              domain.AlertStatusNew,
			EventKickoff:        kickoff,
		})
	}

	for key, newState := range bm.New {
		if filter != nil && !filter[key] {
			continue
		}
		oldState, ok := bm.Old[key]
		if !ok || oldState.UnavailableAt == nil {
			continue
		}
		if newState.UnavailableAt != nil {
			continue
		}
		returned := "returned"
		alerts = append(alerts, domain.RiskAlert{
			EventID:             eventID,
			BookmakerSlug:       slug,
			MarketID:            key.CanonicalID,
			MarketName:          bm.MarketName[key],
			Line:                bm.MarketLine[key],
			Kind:                domain.AlertAvailability,
			Severity:            domain.SeverityWarning,
			CompetitorDirection: &returned,
			DetectedAt:          now,
			Status:              domain.AlertStatusNew,
			EventKickoff:        kickoff,
		})
	}

	return alerts
}

func floatPtr(f float64) *float64 { return &f }
