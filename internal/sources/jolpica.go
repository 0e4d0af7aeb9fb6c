package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"
)

// jolpicaBaseURL is the Ergast-compatible Jolpica API.
const jolpicaBaseURL = "https://api.jolpi.ca/ergast/f1"

// Driver is an F1 driver entry for a season.
type Driver struct {
	DriverID    string
	Code        string
	Name        string
	Nationality string
	Number      int
}

// Race is one round of a season's calendar.
type Race struct {
	Round   int
	Name    string
	Circuit string
	Country string
	Date    string
	Season  int
}

// JolpicaClient queries the Jolpica API (Ergast successor) for season
// reference data.
type JolpicaClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewJolpicaClient creates a client with a default HTTP timeout.
func NewJolpicaClient() *JolpicaClient {
	return &JolpicaClient{
		baseURL:    jolpicaBaseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// Ergast wire format, trimmed to the fields used.
type ergastResponse struct {
	MRData struct {
		DriverTable struct {
			Drivers []struct {
				DriverID        string `json:"driverId"`
				PermanentNumber string `json:"permanentNumber"`
				Code            string `json:"code"`
				GivenName       string `json:"givenName"`
				FamilyName      string `json:"familyName"`
				Nationality     string `json:"nationality"`
			} `json:"Drivers"`
		} `json:"DriverTable"`
		RaceTable struct {
			Races []struct {
				Round    string `json:"round"`
				RaceName string `json:"raceName"`
				Date     string `json:"date"`
				Circuit  struct {
					CircuitName string `json:"circuitName"`
					Location    struct {
						Country string `json:"country"`
					} `json:"Location"`
				} `json:"Circuit"`
			} `json:"Races"`
		} `json:"RaceTable"`
	} `json:"MRData"`
}

func (c *JolpicaClient) get(ctx context.Context, endpoint string) (*ergastResponse, error) {
	url := fmt.Sprintf("%s/%s.json", c.baseURL, endpoint)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", "pitwall/1.0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("get %s: unexpected status %d", url, resp.StatusCode)
	}

	var parsed ergastResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode %s: %w", url, err)
	}
	return &parsed, nil
}

// Drivers returns all drivers entered in a season.
func (c *JolpicaClient) Drivers(ctx context.Context, season int) ([]Driver, error) {
	parsed, err := c.get(ctx, fmt.Sprintf("%d/drivers", season))
	if err != nil {
		return nil, err
	}

	drivers := make([]Driver, 0, len(parsed.MRData.DriverTable.Drivers))
	for _, d := range parsed.MRData.DriverTable.Drivers {
		number, _ := strconv.Atoi(d.PermanentNumber)
		drivers = append(drivers, Driver{
			DriverID:    d.DriverID,
			Code:        d.Code,
			Name:        d.GivenName + " " + d.FamilyName,
			Nationality: d.Nationality,
			Number:      number,
		})
	}
	return drivers, nil
}

// Races returns the season calendar.
func (c *JolpicaClient) Races(ctx context.Context, season int) ([]Race, error) {
	parsed, err := c.get(ctx, fmt.Sprintf("%d/races", season))
	if err != nil {
		return nil, err
	}

	races := make([]Race, 0, len(parsed.MRData.RaceTable.Races))
	for _, r := range parsed.MRData.RaceTable.Races {
		round, _ := strconv.Atoi(r.Round)
		races = append(races, Race{
			Round:   round,
			Name:    r.RaceName,
			Circuit: r.Circuit.CircuitName,
			Country: r.Circuit.Location.Country,
			Date:    r.Date,
			Season:  season,
		})
	}
	return races, nil
}
