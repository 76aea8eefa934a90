// Package sportybet implements competitor A's adapter: tournament
// enumeration whose native event IDs already carry the canonical
// SportRadar ID.
package sportybet

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/palimpsest-sports/scrapecore/internal/adapter"
	"github.com/palimpsest-sports/scrapecore/internal/adapter/retry"
	"github.com/palimpsest-sports/scrapecore/internal/domain"
)

const baseURL = "https://www.sportybet.com"

// Adapter fetches events and odds from SportyBet.
type Adapter struct {
	httpClient *http.Client
	retry      retry.Policy
	baseURL    string
}

func New(httpClient *http.Client) *Adapter {
	return &Adapter{httpClient: httpClient, retry: retry.New(), baseURL: baseURL}
}

func (a *Adapter) Slug() domain.BookmakerSlug { return domain.SlugSportyBet }

type tournamentListResponse struct {
	Data struct {
		Tournaments []struct {
			Events []struct {
				EventID   string `json:"eventId"`
				EstimateStartTime int64 `json:"estimateStartTime"`
			} `json:"events"`
		} `json:"tournaments"`
	} `json:"data"`
	BizCode int `json:"bizCode"`
}

// DiscoverEvents enumerates tournaments under football and returns
// their upcoming events. The native event ID (a SportRadar "sr:match:"
// ID) doubles as the canonical ID.
func (a *Adapter) DiscoverEvents(ctx context.Context) ([]domain.DiscoveredEvent, error) {
	var list tournamentListResponse
	endpoint := fmt.Sprintf("%s/api/ng/factsCenter/pcUpcomingEvents?sportId=sr:sport:1&productId=3", a.baseURL)
	if err := a.getJSON(ctx, endpoint, &list); err != nil {
		return nil, err
	}
	if list.BizCode != 10000 {
		return nil, &adapter.ApiError{Message: fmt.Sprintf("bizCode=%d", list.BizCode)}
	}

	now := time.Now().UTC()
	var discovered []domain.DiscoveredEvent
	for _, t := range list.Data.Tournaments {
		for _, ev := range t.Events {
			kickoff := time.UnixMilli(ev.EstimateStartTime).UTC()
			if kickoff.Before(now) {
				continue
			}
			discovered = append(discovered, domain.DiscoveredEvent{
				CanonicalID:   ev.EventID,
				Kickoff:       kickoff,
				NativeEventID: ev.EventID,
			})
		}
	}
	return discovered, nil
}

type eventResponse struct {
	BizCode int    `json:"bizCode"`
	Message string `json:"message"`
	Data    struct {
		Markets []struct {
			ID        string `json:"id"`
			Name      string `json:"name"`
			Specifier string `json:"specifier"`
			Outcomes  []struct {
				Desc     string `json:"desc"`
				Odds     string `json:"odds"`
				IsActive int    `json:"isActive"`
			} `json:"outcomes"`
		} `json:"markets"`
	} `json:"data"`
}

// FetchEvent fetches one event's full odds payload.
func (a *Adapter) FetchEvent(ctx context.Context, nativeEventID string) (domain.RawEventPayload, error) {
	var ev eventResponse
	endpoint := fmt.Sprintf("%s/api/ng/factsCenter/event?eventId=%s&productId=3", a.baseURL, nativeEventID)
	if err := a.getJSON(ctx, endpoint, &ev); err != nil {
		return domain.RawEventPayload{}, err
	}
	if ev.BizCode != 10000 {
		return domain.RawEventPayload{}, &adapter.InvalidEventIDError{NativeEventID: nativeEventID}
	}

	payload := domain.RawEventPayload{NativeEventID: nativeEventID}
	for _, m := range ev.Data.Markets {
		outcomes := make([]domain.RawOutcome, 0, len(m.Outcomes))
		for _, o := range m.Outcomes {
			odds, err := strconv.ParseFloat(o.Odds, 64)
			if err != nil {
				continue
			}
			outcomes = append(outcomes, domain.RawOutcome{Name: o.Desc, Odds: odds, IsActive: o.IsActive == 1})
		}
		line, handicap := parseSpecifier(m.Specifier)
		payload.Markets = append(payload.Markets, domain.RawMarket{
			NativeMarketID:   m.ID,
			NativeMarketName: m.Name,
			Line:             line,
			HandicapValue:    handicap,
			Outcomes:         outcomes,
		})
	}
	return payload, nil
}

// parseSpecifier extracts a line or handicap value from SportyBet's
// "key=value|key=value" specifier string, e.g. "total=2.5" or "hcp=-1.5".
func parseSpecifier(specifier string) (line *float64, handicap *float64) {
	if specifier == "" {
		return nil, nil
	}
	for _, part := range splitSpecifier(specifier) {
		k, v, ok := splitKV(part)
		if !ok {
			continue
		}
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			continue
		}
		switch k {
		case "total":
			line = &f
		case "hcp":
			handicap = &f
		}
	}
	return line, handicap
}

func splitSpecifier(s string) []string {
	var parts []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '|' {
			parts = append(parts, s[start:i])
			start = i + 1
		}
	}
	parts = append(parts, s[start:])
	return parts
}

func splitKV(s string) (string, string, bool) {
	for i := 0; i < len(s); i++ {
		if s[i] == '=' {
			return s[:i], s[i+1:], true
		}
	}
	return "", "", false
}

// CheckHealth probes the event endpoint; any response (even 400/404)
// indicates the API is reachable.
func (a *Adapter) CheckHealth(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/api/ng/factsCenter/event?eventId=sr:match:1&productId=3", a.baseURL), nil)
	if err != nil {
		return false
	}
	applyHeaders(req)
	resp, err := a.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	switch resp.StatusCode {
	case http.StatusOK, http.StatusBadRequest, http.StatusNotFound:
		return true
	default:
		return false
	}
}

func applyHeaders(req *http.Request) {
	req.Header.Set("accept", "*/*")
	req.Header.Set("accept-language", "en")
	req.Header.Set("clientid", "web")
	req.Header.Set("operid", "2")
	req.Header.Set("platform", "web")
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
