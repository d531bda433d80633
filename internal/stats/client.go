// Package stats is the client for the remote CS:GO stats API.
package stats

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/jaxron/axonet/pkg/client"
	"go.uber.org/zap"
)

var (
	// ErrResolution is returned when the API cannot map an id or reports failure.
	ErrResolution = errors.New("profile could not be resolved")
	// ErrRemoteUnavailable is returned on transport errors and timeouts.
	ErrRemoteUnavailable = errors.New("stats API unavailable")
)

// Client fetches profile information from the stats API.
type Client struct {
	live    *client.Client
	resolve *client.Client
	baseURL string
	logger  *zap.Logger
}

// New creates a new stats client. The resolve client may cache responses;
// the live client must not.
func New(live, resolve *client.Client, baseURL string, logger *zap.Logger) *Client {
	return &Client{
		live:    live,
		resolve: resolve,
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  logger.Named("stats"),
	}
}

// Resolve maps arbitrary user input to a canonical Steam ID.
func (c *Client) Resolve(ctx context.Context, rawID string) (*Profile, error) {
	rawID = strings.Join(strings.Fields(rawID), "")
	if rawID == "" {
		return nil, fmt.Errorf("%w: empty id", ErrResolution)
	}

	var res envelope[resolveData]
	if err := c.get(ctx, c.resolve, "/resolve", &res, "id", rawID); err != nil {
		return nil, fmt.Errorf("%w (rawID=%s)", err, rawID)
	}

	if !res.Success || res.Data.ID == 0 {
		return nil, fmt.Errorf("%w: %v (rawID=%s)", ErrResolution, res.Error, rawID)
	}

	return &Profile{
		SteamID:  uint64(res.Data.ID),
		Nickname: res.Data.Nickname,
		Avatar:   res.Data.Avatar,
	}, nil
}

// Levels fetches the current level and XP of a profile.
func (c *Client) Levels(ctx context.Context, steamID uint64) (*Levels, error) {
	var res envelope[levelsData]
	if err := c.get(ctx, c.live, "/levels", &res, "id", strconv.FormatUint(steamID, 10)); err != nil {
		return nil, fmt.Errorf("%w (steamID=%d)", err, steamID)
	}

	if !res.Success {
		return nil, fmt.Errorf("%w: %v (steamID=%d)", ErrResolution, res.Error, steamID)
	}

	d := res.Data.Data

	return &Levels{
		Level:       d.CurrentLevel,
		XP:          d.CurrentXP,
		Percentage:  float64(d.LevelPercentage),
		RemainingXP: d.RemainingXP,
	}, nil
}

// Medals fetches the detailed profile report for a check.
func (c *Client) Medals(ctx context.Context, steamID uint64, correlationID string) (*Player, *MedalData, error) {
	var res envelope[medalsData]

	err := c.get(ctx, c.live, "/medals", &res,
		"id", strconv.FormatUint(steamID, 10),
		"queueid", correlationID,
	)
	if err != nil {
		return nil, nil, fmt.Errorf("%w (steamID=%d)", err, steamID)
	}

	if !res.Success {
		return nil, nil, fmt.Errorf("%w: %v (steamID=%d)", ErrResolution, res.Error, steamID)
	}

	return &res.Data.PlayerData, &res.Data.MedalData, nil
}

// get performs a GET request and decodes the JSON body into v.
func (c *Client) get(ctx context.Context, httpClient *client.Client, path string, v any, query ...string) error {
	req := httpClient.NewRequest().
		Method(http.MethodGet).
		URL(c.baseURL + path)
	for i := 0; i+1 < len(query); i += 2 {
		req = req.Query(query[i], query[i+1])
	}

	resp, err := req.Do(ctx)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrRemoteUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: read body: %w", ErrRemoteUnavailable, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: HTTP %d", ErrResolution, resp.StatusCode)
	}

	if err := sonic.Unmarshal(body, v); err != nil {
		c.logger.Debug("Failed to decode response",
			zap.String("path", path),
			zap.Error(err))

		return fmt.Errorf("%w: decode: %w", ErrResolution, err)
	}

	return nil
}
