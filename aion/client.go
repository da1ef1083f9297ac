// Package aion is a client for the AION2 (TW) character API.
package aion

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const DefaultBaseURL = "https://tw.ncsoft.com/aion2/api"

var (
	// ErrNotFound is returned when the API answers 404.
	ErrNotFound = errors.New("aion: not found")
	// ErrMalformed is returned when a response body cannot be decoded.
	ErrMalformed = errors.New("aion: malformed response")
)

// StatusError is a non-2xx upstream response.
type StatusError struct {
	Code int
	URL  string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("aion: status %d for %s", e.Code, e.URL)
}

// Config holds client settings.
type Config struct {
	BaseURL        string
	Lang           string
	Timeout        time.Duration
	RateLimitRPS   float64
	RateLimitBurst int
	DaevanionPath  string
	HTTPClient     *http.Client
}

// Client talks to the upstream game API. It is safe for concurrent use.
type Client struct {
	base          string
	lang          string
	timeout       time.Duration
	daevanionPath string
	http          *http.Client
	limiter       *rate.Limiter
	logger        *zap.Logger
}

// NewClient creates a Client. Zero config values fall back to defaults.
func NewClient(cfg Config, logger *zap.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Lang == "" {
		cfg.Lang = "zh"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.DaevanionPath == "" {
		cfg.DaevanionPath = "/character/daevanion/detail"
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{}
	}
	limit := rate.Inf
	if cfg.RateLimitRPS > 0 {
		limit = rate.Limit(cfg.RateLimitRPS)
	}
	burst := cfg.RateLimitBurst
	if burst <= 0 {
		burst = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		base:          cfg.BaseURL,
		lang:          cfg.Lang,
		timeout:       cfg.Timeout,
		daevanionPath: cfg.DaevanionPath,
		http:          cfg.HTTPClient,
		limiter:       rate.NewLimiter(limit, burst),
		logger:        logger,
	}
}

// CharacterInfo fetches the profile and stat list of a character.
func (c *Client) CharacterInfo(ctx context.Context, characterID string, serverID int) (*CharacterInfo, error) {
	var out CharacterInfo
	q := c.charQuery(characterID, serverID)
	if err := c.getJSON(ctx, "/character/info", q, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CharacterEquipment fetches the equipment, skill and pet/wing lists.
func (c *Client) CharacterEquipment(ctx context.Context, characterID string, serverID int) (*CharacterEquipment, error) {
	var out CharacterEquipment
	q := c.charQuery(characterID, serverID)
	if err := c.getJSON(ctx, "/character/equipment", q, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// EquipmentDetail fetches the stat lines of one equipped item. The slot of
// item is copied onto the result.
func (c *Client) EquipmentDetail(ctx context.Context, characterID string, serverID int, item EquipmentItem) (*EquipmentDetail, error) {
	q := c.charQuery(characterID, serverID)
	q.Set("id", strconv.Itoa(item.ID))
	q.Set("enchantLevel", strconv.Itoa(item.TotalEnchantLevel()))
	q.Set("slotPos", strconv.Itoa(item.SlotPos))
	var out EquipmentDetail
	if err := c.getJSON(ctx, "/character/equipment/item", q, &out); err != nil {
		return nil, err
	}
	out.SlotPos = item.SlotPos
	out.SlotPosName = item.SlotPosName
	if out.Name == "" {
		out.Name = item.Name
	}
	return &out, nil
}

// DaevanionBoard fetches one Daevanion board of a character.
func (c *Client) DaevanionBoard(ctx context.Context, characterID string, serverID, boardID int) (*DaevanionBoard, error) {
	q := c.charQuery(characterID, serverID)
	q.Set("boardId", strconv.Itoa(boardID))
	var out *DaevanionBoard
	if err := c.getJSON(ctx, c.daevanionPath, q, &out); err != nil {
		return nil, err
	}
	if out == nil {
		return nil, fmt.Errorf("board %d: %w", boardID, ErrMalformed)
	}
	if out.BoardID == 0 {
		out.BoardID = boardID
	}
	return out, nil
}

func (c *Client) charQuery(characterID string, serverID int) url.Values {
	q := url.Values{}
	q.Set("lang", c.lang)
	q.Set("characterId", characterID)
	q.Set("serverId", strconv.Itoa(serverID))
	return q
}

func (c *Client) getJSON(ctx context.Context, path string, q url.Values, out interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	u := c.base + path + "?" + q.Encode()

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("aion: GET %s: %w", path, err)
	}
	defer resp.Body.Close()
	c.logger.Debug("upstream request",
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Int64("duration_ms", time.Since(start).Milliseconds()),
	)

	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &StatusError{Code: resp.StatusCode, URL: path}
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("aion: read %s: %w", path, err)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrMalformed, path, err)
	}
	return nil
}
