// Package bet9ja implements competitor B's adapter: a nested
// sport-group -> group event hierarchy and a flattened key/value odds
// payload ("S_1X2_1": "1.50", ...).
package bet9ja

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/palimpsest-sports/scrapecore/internal/adapter"
	"github.com/palimpsest-sports/scrapecore/internal/adapter/retry"
	"github.com/palimpsest-sports/scrapecore/internal/domain"
)

const baseURL = "https://sports.bet9ja.com"

// Adapter fetches events and odds from Bet9ja. Bet9ja is more
// rate-sensitive than the other two bookmakers: the coordinator applies
// PacingDelay after every request against this adapter and caps its
// concurrency lower than the others.
type Adapter struct {
	httpClient  *http.Client
	retry       retry.Policy
	baseURL     string
	PacingDelay time.Duration
}

func New(httpClient *http.Client, pacingDelay time.Duration) *Adapter {
	return &Adapter{httpClient: httpClient, retry: retry.New(), baseURL: baseURL, PacingDelay: pacingDelay}
}

func (a *Adapter) Slug() domain.BookmakerSlug { return domain.SlugBet9ja }

type sportGroupResponse struct {
	R string `json:"R"`
	D struct {
		Groups []struct {
			Events []struct {
				EventID string `json:"EventID"`
				ExtID   string `json:"EXTID"`
				Date    string `json:"Date"`
			} `json:"Events"`
		} `json:"Groups"`
	} `json:"D"`
}

// DiscoverEvents enumerates the sport-group -> group hierarchy for
// football and returns every upcoming event, keyed by the dedicated
// cross-platform ID carried in the EXTID field.
func (a *Adapter) DiscoverEvents(ctx context.Context) ([]domain.DiscoveredEvent, error) {
	var resp sportGroupResponse
	endpoint := fmt.Sprintf("%s/desktop/feapi/PalimpsestAjax/GetSportGroups?SportID=1", a.baseURL)
	if err := a.getJSON(ctx, endpoint, &resp); err != nil {
		return nil, err
	}
	if resp.R != "OK" && resp.R != "D" {
		return nil, &adapter.ApiError{Message: fmt.Sprintf("R=%q", resp.R)}
	}

	now := time.Now().UTC()
	var discovered []domain.DiscoveredEvent
	for _, g := range resp.D.Groups {
		for _, ev := range g.Events {
			kickoff, err := time.Parse("2006-01-02T15:04:05", ev.Date)
			if err != nil || kickoff.Before(now) {
				continue
			}
			if ev.ExtID == "" {
				continue
			}
			discovered = append(discovered, domain.DiscoveredEvent{
				CanonicalID:   ev.ExtID,
				Kickoff:       kickoff,
				NativeEventID: ev.EventID,
			})
		}
	}
	return discovered, nil
}

type eventResponse struct {
	R string `json:"R"`
	D struct {
		O map[string]string `json:"O"`
	} `json:"D"`
}

// FetchEvent fetches one event and checks its R status only: the
// payload it returns carries the native event ID and no markets. The
// flattened odds dict is read through FetchOdds, which
// internal/mapping.Bet9jaMapper groups and splits as a whole.
func (a *Adapter) FetchEvent(ctx context.Context, nativeEventID string) (domain.RawEventPayload, error) {
	var ev eventResponse
	endpoint := fmt.Sprintf("%s/desktop/feapi/PalimpsestAjax/GetEvent?EVENTID=%s&v_cache_version=1.301.2.225", a.baseURL, nativeEventID)
	if err := a.getJSON(ctx, endpoint, &ev); err != nil {
		return domain.RawEventPayload{}, err
	}
	switch ev.R {
	case "D", "OK":
	case "E":
		return domain.RawEventPayload{}, &adapter.InvalidEventIDError{NativeEventID: nativeEventID}
	default:
		return domain.RawEventPayload{}, &adapter.ApiError{Message: fmt.Sprintf("R=%q", ev.R)}
	}

	return domain.RawEventPayload{NativeEventID: nativeEventID, Markets: nil}, nil
}

// FetchOdds returns the raw flattened odds dict for one event, the
// shape internal/mapping.Bet9jaMapper.MapOdds consumes directly.
func (a *Adapter) FetchOdds(ctx context.Context, nativeEventID string) (map[string]string, error) {
	var ev eventResponse
	endpoint := fmt.Sprintf("%s/desktop/feapi/PalimpsestAjax/GetEvent?EVENTID=%s&v_cache_version=1.301.2.225", a.baseURL, nativeEventID)
	if err := a.getJSON(ctx, endpoint, &ev); err != nil {
		return nil, err
	}
	switch ev.R {
	case "D", "OK":
		return ev.D.O, nil
	case "E":
		return nil, &adapter.InvalidEventIDError{NativeEventID: nativeEventID}
	default:
		return nil, &adapter.ApiError{Message: fmt.Sprintf("R=%q", ev.R)}
	}
}

// CheckHealth probes the sport-groups endpoint.
func (a *Adapter) CheckHealth(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/desktop/feapi/PalimpsestAjax/GetSportGroups?SportID=1", a.baseURL), nil)
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
