// Package nhlapi fetches NHL boxscore and play-by-play documents and
// normalizes them into the canonical event model. Both the modern api-web
// feed and the legacy statsapi feed are understood; the raw documents are
// traversed as generic trees because the provider has shipped several
// incompatible schema generations for the same games.
package nhlapi

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	sonic "github.com/bytedance/sonic"
	crerr "github.com/cockroachdb/errors"
	"github.com/manogolf/nhl-splits/internal/domain/pbp"
	"github.com/manogolf/nhl-splits/internal/platform/logging"
	"github.com/manogolf/nhl-splits/internal/platform/resilience"
	"github.com/manogolf/nhl-splits/internal/usecase"
)

const (
	defaultAPIWebBaseURL   = "https://api-web.nhle.com"
	defaultStatsAPIBaseURL = "https://statsapi.web.nhl.com"
)

var errNHLTransient = crerr.New("nhl feed transient failure")

// ErrFeedUnavailable marks a game whose documents could not be fetched or
// yielded no usable plays. The backfill driver skips such games and moves on.
var ErrFeedUnavailable = stderrors.New("nhl feed unavailable")

type ClientConfig struct {
	HTTPClient      *http.Client
	APIWebBaseURL   string
	StatsAPIBaseURL string
	Timeout         time.Duration
	MaxRetries      int
	Logger          *logging.Logger
	CircuitBreaker  resilience.CircuitBreakerConfig
}

type Client struct {
	httpClient      *http.Client
	apiWebBaseURL   string
	statsAPIBaseURL string
	maxRetries      int
	logger          *logging.Logger
	breaker         *resilience.CircuitBreaker
	circuitEnabled  bool
	flight          resilience.SingleFlight
}

func NewClient(cfg ClientConfig) *Client {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	if httpClient.Timeout <= 0 {
		httpClient.Timeout = 20 * time.Second
	}

	apiWeb := strings.TrimRight(strings.TrimSpace(cfg.APIWebBaseURL), "/")
	if apiWeb == "" {
		apiWeb = defaultAPIWebBaseURL
	}
	statsAPI := strings.TrimRight(strings.TrimSpace(cfg.StatsAPIBaseURL), "/")
	if statsAPI == "" {
		statsAPI = defaultStatsAPIBaseURL
	}
	breakerCfg := resilience.NormalizeCircuitBreakerConfig(cfg.CircuitBreaker)

	return &Client{
		httpClient:      httpClient,
		apiWebBaseURL:   apiWeb,
		statsAPIBaseURL: statsAPI,
		maxRetries:      maxInt(cfg.MaxRetries, 0),
		logger:          logger,
		breaker:         resilience.NewCircuitBreaker(breakerCfg.FailureThreshold, breakerCfg.OpenTimeout, breakerCfg.HalfOpenMaxReq),
		circuitEnabled:  breakerCfg.Enabled,
	}
}

// FetchGame returns the roster context plus the normalized, chronologically
// ordered event stream for one game. The play-by-play document is taken from
// api-web first and from the legacy statsapi live feed when api-web yields
// nothing usable.
func (c *Client) FetchGame(ctx context.Context, gameID int64) (pbp.Game, error) {
	if gameID <= 0 {
		return pbp.Game{}, fmt.Errorf("%w: game id must be greater than zero", usecase.ErrInvalidInput)
	}

	boxPath := fmt.Sprintf("%s/v1/gamecenter/%d/boxscore", c.apiWebBaseURL, gameID)
	box, err := c.fetchDocument(ctx, boxPath)
	if err != nil {
		return pbp.Game{}, fmt.Errorf("%w: fetch boxscore game_id=%d: %v", ErrFeedUnavailable, gameID, err)
	}

	roster, err := rosterFromBoxscore(box)
	if err != nil {
		return pbp.Game{}, fmt.Errorf("%w: resolve roster game_id=%d: %v", ErrFeedUnavailable, gameID, err)
	}

	pbpPath := fmt.Sprintf("%s/v1/gamecenter/%d/play-by-play", c.apiWebBaseURL, gameID)
	doc, err := c.fetchDocument(ctx, pbpPath)
	plays := playsList(doc)
	if err != nil || len(plays) == 0 {
		legacyPath := fmt.Sprintf("%s/api/v1/game/%d/feed/live", c.statsAPIBaseURL, gameID)
		legacyDoc, legacyErr := c.fetchDocument(ctx, legacyPath)
		if legacyErr == nil {
			plays = playsList(legacyDoc)
		}
		if len(plays) == 0 {
			if ctx.Err() != nil {
				return pbp.Game{}, ctx.Err()
			}
			c.logger.WarnContext(ctx, "no usable play-by-play document",
				"game_id", gameID,
				"api_web_error", err,
				"statsapi_error", legacyErr,
			)
			return pbp.Game{}, fmt.Errorf("%w: no plays for game_id=%d", ErrFeedUnavailable, gameID)
		}
	}

	events := normalizePlays(plays, roster)
	return pbp.Game{GameID: gameID, Roster: roster, Events: events}, nil
}

func (c *Client) fetchDocument(ctx context.Context, fullURL string) (map[string]any, error) {
	if c.circuitEnabled {
		if err := c.breaker.Allow(); err != nil {
			c.logger.WarnContext(ctx, "nhl feed circuit breaker rejected request", "state", c.breaker.State())
			return nil, fmt.Errorf("%w: stats feed is temporarily unavailable", usecase.ErrDependencyUnavailable)
		}
	}

	out, err, _ := c.flight.Do(fullURL, func() (any, error) {
		raw, reqErr := c.executeRequest(ctx, fullURL)
		if c.circuitEnabled {
			if reqErr != nil && stderrors.Is(reqErr, errNHLTransient) {
				c.breaker.RecordFailure()
			} else {
				c.breaker.RecordSuccess()
			}
		}
		return raw, reqErr
	})
	if err != nil {
		return nil, err
	}

	raw, ok := out.([]byte)
	if !ok {
		return nil, fmt.Errorf("unexpected response payload type %T", out)
	}

	var doc map[string]any
	if err := sonic.Unmarshal(raw, &doc); err != nil {
		// A handful of early-season documents are bare play arrays.
		var list []any
		if listErr := sonic.Unmarshal(raw, &list); listErr == nil {
			return map[string]any{"plays": list}, nil
		}
		return nil, fmt.Errorf("decode feed payload: %w", err)
	}
	return doc, nil
}

func (c *Client) executeRequest(ctx context.Context, fullURL string) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
		if err != nil {
			return nil, fmt.Errorf("build request: %w", err)
		}
		req.Header.Set("accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("%w: send request: %v", errNHLTransient, err)
		} else {
			raw, readErr := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
			_ = resp.Body.Close()
			if readErr != nil {
				lastErr = fmt.Errorf("%w: read response body: %v", errNHLTransient, readErr)
			} else if resp.StatusCode >= 200 && resp.StatusCode < 300 {
				return raw, nil
			} else {
				if isRetryableStatus(resp.StatusCode) {
					lastErr = fmt.Errorf("%w: feed status=%d", errNHLTransient, resp.StatusCode)
				} else {
					return nil, fmt.Errorf("feed status=%d url=%s", resp.StatusCode, fullURL)
				}
			}
		}

		if attempt == c.maxRetries {
			break
		}
		backoff := time.Duration(attempt+1) * time.Second
		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	if lastErr == nil {
		lastErr = fmt.Errorf("feed request failed")
	}
	c.logger.WarnContext(ctx, "nhl feed request failed", "url", fullURL, "error", lastErr)
	return nil, lastErr
}

func isRetryableStatus(status int) bool {
	if status == http.StatusTooManyRequests {
		return true
	}
	return status >= 500
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
