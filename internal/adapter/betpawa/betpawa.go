// Package betpawa implements the reference-bookmaker adapter: a
// category -> competition -> event discovery tree and a per-event odds
// fetch.
package betpawa

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/palimpsest-sports/scrapecore/internal/adapter"
	"github.com/palimpsest-sports/scrapecore/internal/adapter/retry"
	"github.com/palimpsest-sports/scrapecore/internal/domain"
)

const (
	baseURL       = "https://www.betpawa.ng"
	footballCatID = "2"
)

// Adapter fetches events and odds from BetPawa, the system's reference
// bookmaker: its market vocabulary is treated as canonical.
type Adapter struct {
	httpClient *http.Client
	retry      retry.Policy
	baseURL    string
}

func New(httpClient *http.Client) *Adapter {
	return &Adapter{httpClient: httpClient, retry: retry.New(), baseURL: baseURL}
}

func (a *Adapter) Slug() domain.BookmakerSlug { return domain.SlugBetpawa }

type categoriesResponse struct {
	Regions []struct {
		Competitions []struct {
			ID string `json:"id"`
		} `json:"competitions"`
	} `json:"regions"`
}

type eventsListResponse struct {
	Responses []struct {
		Events []struct {
			ID      string `json:"id"`
			StartAt string `json:"startTime"`
			Widgets []struct {
				Type  string `json:"type"`
				Value string `json:"value"`
			} `json:"widgets"`
		} `json:"events"`
	} `json:"responses"`
}

// DiscoverEvents walks the category -> competition -> event tree and
// returns every upcoming football event. The canonical ID is read off
// the SPORTRADAR widget entry inlined in each event listing.
func (a *Adapter) DiscoverEvents(ctx context.Context) ([]domain.DiscoveredEvent, error) {
	var categories categoriesResponse
	if err := a.getJSON(ctx, fmt.Sprintf("%s/api/sportsbook/v3/categories/list/%s", a.baseURL, footballCatID), &categories); err != nil {
		return nil, err
	}

	var discovered []domain.DiscoveredEvent
	now := time.Now().UTC()

	for _, region := range categories.Regions {
		for _, comp := range region.Competitions {
			query := map[string]any{
				"queries": []map[string]any{{
					"query": map[string]any{
						"eventType":  "UPCOMING",
						"categories": []string{footballCatID},
						"zones":      map[string]any{"competitions": []string{comp.ID}},
						"hasOdds":    true,
					},
					"view": map[string]any{},
					"skip": 0,
					"take": 100,
				}},
			}
			raw, err := json.Marshal(query)
			if err != nil {
				return nil, &adapter.ApiError{Message: "encode discovery query: " + err.Error()}
			}

			var list eventsListResponse
			endpoint := fmt.Sprintf("%s/api/sportsbook/v3/events/lists/by-queries?q=%s", a.baseURL, url.QueryEscape(string(raw)))
			if err := a.getJSON(ctx, endpoint, &list); err != nil {
				return nil, err
			}

			for _, resp := range list.Responses {
				for _, ev := range resp.Events {
					kickoff, err := parseKickoff(ev.StartAt)
					if err != nil || kickoff.Before(now) {
						continue
					}
					canonicalID := canonicalIDFromWidgets(ev.Widgets)
					if canonicalID == "" {
						continue
					}
					discovered = append(discovered, domain.DiscoveredEvent{
						CanonicalID:   canonicalID,
						Kickoff:       kickoff,
						NativeEventID: ev.ID,
					})
				}
			}
		}
	}
	return discovered, nil
}

func canonicalIDFromWidgets(widgets []struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}) string {
	for _, w := range widgets {
		if w.Type == "SPORTRADAR" {
			return w.Value
		}
	}
	return ""
}

func parseKickoff(raw string) (time.Time, error) {
	if ms, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return time.UnixMilli(ms).UTC(), nil
	}
	return time.Parse(time.RFC3339, raw)
}

type eventResponse struct {
	ID      string `json:"id"`
	Markets []struct {
		ID   string `json:"id"`
		Name string `json:"name"`
		Row  struct {
			Prices []struct {
				Name     string `json:"name"`
				Price    string `json:"price"`
				Suspended bool  `json:"suspended"`
			} `json:"prices"`
		} `json:"row"`
		Line     *float64 `json:"line"`
		Handicap *float64 `json:"handicap"`
	} `json:"markets"`
}

// FetchEvent fetches one event's full odds payload.
func (a *Adapter) FetchEvent(ctx context.Context, nativeEventID string) (domain.RawEventPayload, error) {
	var ev eventResponse
	endpoint := fmt.Sprintf("%s/api/sportsbook/v3/events/%s", a.baseURL, url.PathEscape(nativeEventID))
	if err := a.getJSON(ctx, endpoint, &ev); err != nil {
		return domain.RawEventPayload{}, err
	}
	if ev.ID == "" {
		return domain.RawEventPayload{}, &adapter.ApiError{Message: "response missing 'id' key"}
	}

	payload := domain.RawEventPayload{NativeEventID: ev.ID}
	for _, m := range ev.Markets {
		outcomes := make([]domain.RawOutcome, 0, len(m.Row.Prices))
		for _, p := range m.Row.Prices {
			odds, err := strconv.ParseFloat(p.Price, 64)
			if err != nil {
				continue
			}
			outcomes = append(outcomes, domain.RawOutcome{Name: p.Name, Odds: odds, IsActive: !p.Suspended})
		}
		payload.Markets = append(payload.Markets, domain.RawMarket{
			NativeMarketID:   m.ID,
			NativeMarketName: m.Name,
			Line:             m.Line,
			HandicapValue:    m.Handicap,
			Outcomes:         outcomes,
		})
	}
	return payload, nil
}

// CheckHealth probes the categories endpoint with a short timeout.
func (a *Adapter) CheckHealth(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/api/sportsbook/v3/categories/list/%s", a.baseURL, footballCatID), nil)
	if err != nil {
		return false
	}
	applyHeaders(req)
	resp, err := a.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

func applyHeaders(req *http.Request) {
	req.Header.Set("accept", "*/*")
	req.Header.Set("accept-language", "en-GB,en-US;q=0.9,en;q=0.8")
	req.Header.Set("devicetype", "web")
	req.Header.Set("x-pawa-brand", "betpawa-nigeria")
	req.Header.Set("user-agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36")
}

func (a *Adapter) getJSON(ctx context.Context, endpoint string, out any) error {
	return a.retry.Execute(ctx, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return &adapter.ApiError{Message: err.Error()}
		}
		applyHeaders(req)

		resp, err := a.httpClient.Do(req)
		if err != nil {
			return &adapter.NetworkError{Cause: err}
		}
		defer resp.Body.Close()

		if resp.StatusCode == http.StatusNotFound {
			return &adapter.InvalidEventIDError{}
		}
		if resp.StatusCode == http.StatusTooManyRequests {
			return &adapter.RateLimitedError{RetryAfter: resp.Header.Get("Retry-After")}
		}
		if resp.StatusCode != http.StatusOK {
			return &adapter.ApiError{StatusCode: resp.StatusCode, Message: "unexpected status"}
		}

		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return &adapter.ApiError{Message: "decode response: " + err.Error()}
		}
		return nil
	})
}
