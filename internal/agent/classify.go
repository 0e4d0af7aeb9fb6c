package agent

import (
	"regexp"
	"strings"
)

// QueryType is a coarse classification of a user question, used to pick
// the prompt template and to decide whether the stats database should
// be consulted.
type QueryType string

const (
	QueryTypePenaltyExplanation QueryType = "penalty_explanation"
	QueryTypeRuleLookup         QueryType = "rule_lookup"
	QueryTypeAnalytics          QueryType = "analytics"
	QueryTypeGeneral            QueryType = "general"
)

// Pattern order encodes precedence: penalty explanations beat rule
// lookups beat analytics. "What's the penalty for track limits" must
// classify as a rule lookup even though it mentions a penalty, which is
// why the explanation patterns are phrased around a specific incident.
var penaltyPatterns = compilePatterns([]string{
	`why did .+ get a penalty`,
	`why was .+ penalized`,
	`what penalty did .+ get`,
	`explain .+ penalty`,
	`what happened .+ penalty`,
	`penalty for .+ at`,
	`\bpenalized\b`,
	`\bpunished\b`,
	`\btime penalty\b`,
	`\bgrid penalty\b`,
	`5.second|10.second|drive.through`,
})

var rulePatterns = compilePatterns([]string{
	`what is the rule`,
	`what's the rule`,
	`what are the rules`,
	`explain the rule`,
	`what does article`,
	`according to .+ regulations`,
	`is it allowed`,
	`is it legal`,
	`what's the penalty for`,
	`how are .+ penalized`,
	`track limits`,
	`unsafe release`,
	`blue flags`,
	`safety car`,
	`pit lane`,
	`impeding`,
})

var analyticsPatterns = compilePatterns([]string{
	`how many .*penalt`,
	`count .*penalt`,
	`total .*penalt`,
	`list all .*penalt`,
	`most penalt`,
	`least penalt`,
	`statistics`,
	`stats for`,
})

func compilePatterns(patterns []string) []*regexp.Regexp {
	res := make([]*regexp.Regexp, len(patterns))
	for i, p := range patterns {
		res[i] = regexp.MustCompile(p)
	}
	return res
}

// ClassifyQuery assigns a query type by matching against ordered
// pattern groups. Matching is done on the lowercased query; the first
// group with any hit wins.
func ClassifyQuery(query string) QueryType {
	queryLower := strings.ToLower(query)

	for _, re := range penaltyPatterns {
		if re.MatchString(queryLower) {
			return QueryTypePenaltyExplanation
		}
	}
	for _, re := range rulePatterns {
		if re.MatchString(queryLower) {
			return QueryTypeRuleLookup
		}
	}
	for _, re := range analyticsPatterns {
		if re.MatchString(queryLower) {
			return QueryTypeAnalytics
		}
	}
	return QueryTypeGeneral
}
