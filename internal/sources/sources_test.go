package sources

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestExtractPDFLinks(t *testing.T) {
	page := `<html><body>
		<a href="/sites/default/files/2025_sporting_regulations.pdf">F1 Sporting Regulations 2025</a>
		<a href="/decision-document/doc44_offence_austria.PDF"></a>
		<a href="/some/page.html">Not a PDF</a>
	</body></html>`

	links := extractPDFLinks(page)
	if len(links) != 2 {
		t.Fatalf("len = %d, want 2", len(links))
	}
	if links[0].title != "F1 Sporting Regulations 2025" {
		t.Errorf("title = %q", links[0].title)
	}
	// Anchors without text fall back to the file name.
	if links[1].title != "doc44_offence_austria.PDF" {
		t.Errorf("fallback title = %q", links[1].title)
	}
}

func TestEventFromSlug(t *testing.T) {
	tests := []struct {
		href, title, want string
	}{
		{"/doc44_offence_austria.pdf", "", "Austria"},
		{"/doc12.pdf", "decision - abu dhabi grand prix", "Abu Dhabi"},
		{"/doc9_timing.pdf", "race timetable", ""},
	}
	for _, tt := range tests {
		if got := eventFromSlug(tt.href, tt.title); got != tt.want {
			t.Errorf("eventFromSlug(%q, %q) = %q, want %q", tt.href, tt.title, got, tt.want)
		}
	}
}

func TestLooseMatch(t *testing.T) {
	if !looseMatch("Australia", "Australian Grand Prix") {
		t.Error("substring in either direction should match")
	}
	if looseMatch("Monaco", "Italian Grand Prix") {
		t.Error("unrelated names must not match")
	}
}

func TestCategorize(t *testing.T) {
	tests := []struct {
		message string
		want    string
	}{
		{"FIA STEWARDS: 10 SECOND PENALTY FOR CAR 1 (VER) - CAUSING A COLLISION", CategoryPenalty},
		{"CAR 4 (NOR) UNDER INVESTIGATION - PIT LANE SPEEDING", CategoryInvestigation},
		{"CAR 81 (PIA) LAP TIME DELETED - TRACK LIMITS AT TURN 6", CategoryTrackLimits},
		{"BLACK AND WHITE FLAG FOR CAR 44 (HAM)", CategoryBlackWhiteFlag},
		{"UNSAFE RELEASE INVOLVING CAR 55 (SAI)", CategoryUnsafeRelease},
		{"GREEN LIGHT - PIT EXIT OPEN", categoryGeneral},
	}
	for _, tt := range tests {
		if got := categorize(tt.message); got != tt.want {
			t.Errorf("categorize(%q) = %q, want %q", tt.message, got, tt.want)
		}
	}
}

func TestJolpicaDrivers(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/2025/drivers.json" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Write([]byte(`{"MRData":{"DriverTable":{"Drivers":[
			{"driverId":"norris","permanentNumber":"4","code":"NOR",
			 "givenName":"Lando","familyName":"Norris","nationality":"British"}
		]}}}`))
	}))
	defer srv.Close()

	client := NewJolpicaClient()
	client.baseURL = srv.URL

	drivers, err := client.Drivers(context.Background(), 2025)
	if err != nil {
		t.Fatal(err)
	}
	if len(drivers) != 1 {
		t.Fatalf("len = %d, want 1", len(drivers))
	}
	want := Driver{DriverID: "norris", Code: "NOR", Name: "Lando Norris", Nationality: "British", Number: 4}
	if drivers[0] != want {
		t.Errorf("driver = %+v, want %+v", drivers[0], want)
	}
}

func TestPenaltyEvents(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/sessions":
			w.Write([]byte(`[{"session_key":9161,"session_name":"Race",
				"country_name":"Great Britain","circuit_short_name":"Silverstone","year":2024}]`))
		case "/race_control":
			if r.URL.Query().Get("session_key") != "9161" {
				t.Errorf("session_key = %s", r.URL.Query().Get("session_key"))
			}
			w.Write([]byte(`[
				{"date":"2024-07-07T15:03:00+00:00","driver_number":1,
				 "message":"CAR 1 (VER) LAP TIME DELETED - TRACK LIMITS AT TURN 9","category":"Other"},
				{"date":"2024-07-07T15:04:00+00:00","driver_number":0,
				 "message":"DRS ENABLED","category":"Drs"}
			]`))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	defer srv.Close()

	client := NewRaceControlClient()
	client.baseURL = srv.URL

	events, err := client.PenaltyEvents(context.Background(), 2024, "Silverstone", "Race")
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != 1 {
		t.Fatalf("len = %d, want only penalty-related messages", len(events))
	}
	ev := events[0]
	if ev.Category != CategoryTrackLimits || ev.Driver != "Car 1" {
		t.Errorf("event = %+v", ev)
	}
	if ev.RaceName != "Silverstone" || ev.Season != 2024 || ev.Session != "Race" {
		t.Errorf("session fields = %+v", ev)
	}
}
