package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"
)

// openF1BaseURL serves live and historical race control data.
const openF1BaseURL = "https://api.openf1.org/v1"

// PenaltyEvent is a penalty or investigation announced by race control.
type PenaltyEvent struct {
	Message  string
	Driver   string
	Time     time.Time
	Category string
	Session  string
	RaceName string
	Season   int
	Details  string
}

// Message categories. General messages (flags, weather, DRS status) are
// filtered out before indexing.
const (
	CategoryInvestigation  = "Investigation"
	CategoryPenalty        = "Penalty"
	CategoryTrackLimits    = "Track Limits"
	CategoryBlackWhiteFlag = "Black/White Flag"
	CategoryUnsafeRelease  = "Unsafe Release"
	CategoryCollision      = "Collision"
	categoryGeneral        = "General"
)

var carNumberRegexp = regexp.MustCompile(`(?i)CAR\s*(\d+)`)

// RaceControlClient fetches race control messages from the OpenF1 API.
type RaceControlClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewRaceControlClient creates a client with a default HTTP timeout.
func NewRaceControlClient() *RaceControlClient {
	return &RaceControlClient{
		baseURL:    openF1BaseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

type openF1Session struct {
	SessionKey  int    `json:"session_key"`
	SessionName string `json:"session_name"`
	CountryName string `json:"country_name"`
	CircuitName string `json:"circuit_short_name"`
	Year        int    `json:"year"`
}

type openF1Message struct {
	Date         string `json:"date"`
	DriverNumber int    `json:"driver_number"`
	Message      string `json:"message"`
	Category     string `json:"category"`
}

func (c *RaceControlClient) get(ctx context.Context, endpoint string, params url.Values, out any) error {
	reqURL := fmt.Sprintf("%s/%s?%s", c.baseURL, endpoint, params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("get %s: %w", reqURL, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("get %s: unexpected status %d", reqURL, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s: %w", reqURL, err)
	}
	return nil
}

// findSession locates the session for a race weekend. Race names are
// matched loosely against country and circuit, so "Silverstone" and
// "Great Britain" both work.
func (c *RaceControlClient) findSession(ctx context.Context, season int, raceName, sessionType string) (*openF1Session, error) {
	params := url.Values{}
	params.Set("year", fmt.Sprintf("%d", season))
	params.Set("session_name", sessionType)

	var sessions []openF1Session
	if err := c.get(ctx, "sessions", params, &sessions); err != nil {
		return nil, err
	}

	for i, s := range sessions {
		if looseMatch(raceName, s.CountryName) || looseMatch(raceName, s.CircuitName) {
			return &sessions[i], nil
		}
	}
	return nil, fmt.Errorf("no %s session found for %q in %d", sessionType, raceName, season)
}

// PenaltyEvents fetches race control messages for a session and keeps
// only the penalty-related ones.
func (c *RaceControlClient) PenaltyEvents(ctx context.Context, season int, raceName, sessionType string) ([]PenaltyEvent, error) {
	session, err := c.findSession(ctx, season, raceName, sessionType)
	if err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("session_key", fmt.Sprintf("%d", session.SessionKey))

	var messages []openF1Message
	if err := c.get(ctx, "race_control", params, &messages); err != nil {
		return nil, err
	}

	var events []PenaltyEvent
	for _, msg := range messages {
		category := categorize(msg.Message)
		if category == categoryGeneral {
			continue
		}

		driver := ""
		if m := carNumberRegexp.FindStringSubmatch(msg.Message); m != nil {
			driver = "Car " + m[1]
		} else if msg.DriverNumber != 0 {
			driver = fmt.Sprintf("Car %d", msg.DriverNumber)
		}

		timestamp, _ := time.Parse(time.RFC3339, msg.Date)
		events = append(events, PenaltyEvent{
			Message:  msg.Message,
			Driver:   driver,
			Time:     timestamp,
			Category: category,
			Session:  sessionType,
			RaceName: raceName,
			Season:   season,
		})
	}
	return events, nil
}

// categorize buckets a race control message. Check order matters:
// "10 SECOND PENALTY FOR CAR 1 - CAUSING A COLLISION" must land in
// Penalty, with the collision wording only deciding otherwise-untyped
// messages.
func categorize(message string) string {
	lower := strings.ToLower(message)
	switch {
	case strings.Contains(lower, "investigation"):
		return CategoryInvestigation
	case strings.Contains(lower, "penalty"):
		return CategoryPenalty
	case strings.Contains(lower, "track limits"), strings.Contains(lower, "lap time deleted"):
		return CategoryTrackLimits
	case strings.Contains(lower, "black and white"):
		return CategoryBlackWhiteFlag
	case strings.Contains(lower, "unsafe release"):
		return CategoryUnsafeRelease
	case strings.Contains(lower, "causing a collision"):
		return CategoryCollision
	default:
		return categoryGeneral
	}
}
