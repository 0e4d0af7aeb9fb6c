package retrieval

import "strings"

// synonymEntry pairs a trigger term with its expansion synonyms. The
// table is a slice, not a map, so expansion order is stable and follows
// insertion order.
type synonymEntry struct {
	term     string
	synonyms []string
}

// f1Synonyms expands F1 jargon for broader lexical and semantic recall.
var f1Synonyms = []synonymEntry{
	{"penalty", []string{"sanction", "punishment", "time penalty", "grid penalty", "reprimand"}},
	{"5 second", []string{"five second", "5s", "five-second"}},
	{"10 second", []string{"ten second", "10s", "ten-second"}},
	{"track limits", []string{"track boundaries", "running wide", "exceeding track limits", "leaving the track"}},
	{"impeding", []string{"blocking", "held up", "obstructing", "getting in the way"}},
	{"unsafe release", []string{"dangerous release", "pit release", "pit lane incident"}},
	{"collision", []string{"crash", "contact", "incident", "accident", "hit"}},
	{"overtaking", []string{"passing", "overtake", "pass"}},
	{"qualifying", []string{"quali", "Q1", "Q2", "Q3"}},
	{"drs", []string{"drag reduction system", "rear wing"}},
	{"parc ferme", []string{"parc fermé", "post-race", "impound"}},
	{"grid", []string{"starting grid", "starting position", "grid position"}},
	{"stewards", []string{"race stewards", "FIA stewards", "officials"}},
	{"reprimand", []string{"warning", "formal warning"}},
	{"disqualification", []string{"DSQ", "disqualified", "excluded"}},
	{"black flag", []string{"disqualification flag", "black flag meatball"}},
	{"safety car", []string{"SC", "virtual safety car", "VSC"}},
	{"red flag", []string{"race stopped", "session stopped"}},
}

// maxSynonymsPerTerm limits how many synonyms each matched term
// contributes, to avoid diluting the query.
const maxSynonymsPerTerm = 2

// ExpandQuery appends domain synonyms for every table term that appears
// as a substring of the query. When nothing matches, the query is
// returned unchanged.
func ExpandQuery(query string) string {
	queryLower := strings.ToLower(query)

	var expansions []string
	for _, entry := range f1Synonyms {
		if strings.Contains(queryLower, entry.term) {
			n := min(maxSynonymsPerTerm, len(entry.synonyms))
			expansions = append(expansions, entry.synonyms[:n]...)
		}
	}

	if len(expansions) == 0 {
		return query
	}
	return query + " " + strings.Join(expansions, " ")
}
