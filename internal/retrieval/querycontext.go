package retrieval

import (
	"regexp"
	"strconv"
)

// QueryContext holds entity hints extracted from a question. Hints only
// ever narrow search filters; they are never persisted.
type QueryContext struct {
	// Driver is the canonical driver name, empty when not detected.
	Driver string

	// Race is the canonical race label, empty when not detected.
	Race string

	// Season is the detected year, zero when not detected.
	Season int
}

// driverPattern maps a recognition regex to a canonical driver name.
// Order matters: the first matching pattern wins, so full surnames come
// before three-letter codes.
type driverPattern struct {
	re     *regexp.Regexp
	driver string
}

var driverPatterns = []driverPattern{
	{regexp.MustCompile(`(?i)\bVerstappen\b`), "Max Verstappen"},
	{regexp.MustCompile(`(?i)\bHamilton\b`), "Lewis Hamilton"},
	{regexp.MustCompile(`(?i)\bNorris\b`), "Lando Norris"},
	{regexp.MustCompile(`(?i)\bLeclerc\b`), "Charles Leclerc"},
	{regexp.MustCompile(`(?i)\bSainz\b`), "Carlos Sainz"},
	{regexp.MustCompile(`(?i)\bRussell\b`), "George Russell"},
	{regexp.MustCompile(`(?i)\bPerez\b`), "Sergio Perez"},
	{regexp.MustCompile(`(?i)\bAlonso\b`), "Fernando Alonso"},
	{regexp.MustCompile(`(?i)\bPiastri\b`), "Oscar Piastri"},
	{regexp.MustCompile(`(?i)\bStroll\b`), "Lance Stroll"},
	{regexp.MustCompile(`(?i)\bVER\b`), "Max Verstappen"},
	{regexp.MustCompile(`(?i)\bHAM\b`), "Lewis Hamilton"},
	{regexp.MustCompile(`(?i)\bNOR\b`), "Lando Norris"},
}

// raceTokens lists recognized race and circuit labels. Grand Prix names
// first, then circuit shorthands fans actually use.
var raceTokens = []string{
	"Bahrain",
	"Saudi Arabian",
	"Australian",
	"Japanese",
	"Chinese",
	"Miami",
	"Monaco",
	"Spanish",
	"Canadian",
	"Austrian",
	"British",
	"Hungarian",
	"Belgian",
	"Dutch",
	"Italian",
	"Azerbaijan",
	"Singapore",
	"United States",
	"Mexican",
	"Brazilian",
	"Las Vegas",
	"Qatar",
	"Abu Dhabi",
	"Silverstone",
	"Monza",
	"Spa",
	"Imola",
}

var raceRegexps = compileRaceTokens()

func compileRaceTokens() []*regexp.Regexp {
	res := make([]*regexp.Regexp, len(raceTokens))
	for i, token := range raceTokens {
		res[i] = regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(token) + `\b`)
	}
	return res
}

var yearRegexp = regexp.MustCompile(`\b(20[0-9]{2})\b`)

// ExtractRaceContext pulls driver, race, and season hints out of a
// question. Matching follows the fixed table order, not position in the
// text; the first table entry that matches wins. A pure function of the
// input.
func ExtractRaceContext(query string) QueryContext {
	var qc QueryContext

	for _, p := range driverPatterns {
		if p.re.MatchString(query) {
			qc.Driver = p.driver
			break
		}
	}

	for i, re := range raceRegexps {
		if re.MatchString(query) {
			qc.Race = raceTokens[i]
			break
		}
	}

	if m := yearRegexp.FindStringSubmatch(query); m != nil {
		year, err := strconv.Atoi(m[1])
		if err == nil && year >= 2000 && year <= 2099 {
			qc.Season = year
		}
	}

	return qc
}
