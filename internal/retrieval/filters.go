package retrieval

import "regexp"

var (
	phasePattern   = regexp.MustCompile(`(?i)phase (\d+)`)
	malePattern    = regexp.MustCompile(`(?i)\b(male|men|man)\b`)
	femalePattern  = regexp.MustCompile(`(?i)\b(female|women|woman)\b`)
	healthyPattern = regexp.MustCompile(`(?i)\bhealthy volunteers?\b`)
)

// ExtractFilters derives metadata filters implied by the query text. A
// category that does not clearly apply is absent from the result, and a
// query naming both genders emits no gender filter at all.
func ExtractFilters(query string) map[string]string {
	filters := make(map[string]string)
	if m := phasePattern.FindStringSubmatch(query); m != nil {
		filters["phase"] = "Phase " + m[1]
	}
	male := malePattern.MatchString(query)
	female := femalePattern.MatchString(query)
	switch {
	case male && !female:
		filters["gender"] = "Male"
	case female && !male:
		filters["gender"] = "Female"
	}
	if healthyPattern.MatchString(query) {
		filters["healthy_volunteers"] = "yes"
	}
	return filters
}
