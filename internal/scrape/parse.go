package scrape

import (
	"html"
	"regexp"
	"strconv"
	"strings"

	"github.com/trialrag/trialrag/internal/model"
)

// Pre-compiled regular expressions for picking study cards apart.
var (
	studyStart     = regexp.MustCompile(`(?i)<div[^>]*class="(?:[^"]*\s)?study(?:\s[^"]*)?"[^>]*>`)
	paginationTag  = regexp.MustCompile(`(?is)<ul[^>]*class="[^"]*pagination[^"]*"[^>]*>(.*?)</ul>`)
	pageLink       = regexp.MustCompile(`(?is)<a[^>]*>\s*(\d+)\s*</a>`)
	titleTag       = regexp.MustCompile(`(?is)<h4[^>]*>(.*?)</h4>`)
	paragraphTag   = regexp.MustCompile(`(?is)<p[^>]*>(.*?)</p>`)
	labelTag       = regexp.MustCompile(`(?is)<label[^>]*>.*?</label>`)
	spanTag        = regexp.MustCompile(`(?is)<span[^>]*>(.*?)</span>`)
	descriptionDiv = regexp.MustCompile(`(?is)<div[^>]*data-attribute-name="simple_description"[^>]*>(.*?)</div>`)
	eligibilityDiv = regexp.MustCompile(`(?i)<div[^>]*class="[^"]*eligibility-criteria[^"]*"[^>]*>`)
	inclusionPart  = regexp.MustCompile(`(?is)>\s*Inclusion Criteria\s*</div>(.*?)(?:<hr[^>]*>|\z)`)
	exclusionPart  = regexp.MustCompile(`(?is)>\s*Exclusion Criteria\s*</div>(.*?)(?:<hr[^>]*>|\z)`)
	allTags        = regexp.MustCompile(`<[^>]+>`)
	whitespaceRun  = regexp.MustCompile(`\s+`)
)

// attrNames are the labelled attributes a study card carries, keyed by the
// data-attribute-name markers in the listing markup.
var attrNames = []string{
	"contacts", "principal_investigator", "gender", "age", "phase",
	"healthy_volunteers", "system_id", "irb_number", "interventions",
	"conditions", "keywords", "sites",
}

var attrPatterns = buildAttrPatterns()

func buildAttrPatterns() map[string]*regexp.Regexp {
	patterns := make(map[string]*regexp.Regexp, len(attrNames))
	for _, name := range attrNames {
		patterns[name] = regexp.MustCompile(`(?is)<div[^>]*data-attribute-name="` + name + `"[^>]*>(.*?)</div>`)
	}
	return patterns
}

// parsePageCount reads the highest page number out of the pagination links.
// A listing without pagination counts as a single page.
func parsePageCount(page string) int {
	m := paginationTag.FindStringSubmatch(page)
	if m == nil {
		return 1
	}
	max := 1
	for _, link := range pageLink.FindAllStringSubmatch(m[1], -1) {
		if n, err := strconv.Atoi(link[1]); err == nil && n > max {
			max = n
		}
	}
	return max
}

// parseStudies extracts one record per study card on a listing page. Cards
// are sliced from the start of one study div to the start of the next.
func parseStudies(page string) []model.TrialRecord {
	starts := studyStart.FindAllStringIndex(page, -1)
	records := make([]model.TrialRecord, 0, len(starts))
	for i, loc := range starts {
		end := len(page)
		if i+1 < len(starts) {
			end = starts[i+1][0]
		}
		if record := parseStudy(page[loc[1]:end]); len(record) > 0 {
			records = append(records, record)
		}
	}
	return records
}

// parseStudy pulls the title, description, labelled attributes and
// eligibility criteria out of one study card.
func parseStudy(block string) model.TrialRecord {
	record := model.TrialRecord{}

	if m := titleTag.FindStringSubmatch(block); m != nil {
		record["title"] = textOf(m[1])
	}
	if m := descriptionDiv.FindStringSubmatch(block); m != nil {
		if p := paragraphTag.FindStringSubmatch(m[1]); p != nil {
			record["description"] = textOf(p[1])
		}
	}

	for _, name := range attrNames {
		m := attrPatterns[name].FindStringSubmatch(block)
		if m == nil {
			continue
		}
		// Drop the label element so only the value text remains.
		inner := labelTag.ReplaceAllString(m[1], "")
		if span := spanTag.FindStringSubmatch(inner); span != nil {
			record[name] = textOf(span[1])
		} else {
			record[name] = textOf(inner)
		}
	}

	parseEligibility(block, record)
	return record
}

// parseEligibility splits the criteria section on its hr separators. Each
// criteria list runs from its header to the next separator.
func parseEligibility(block string, record model.TrialRecord) {
	loc := eligibilityDiv.FindStringIndex(block)
	if loc == nil {
		return
	}
	section := block[loc[1]:]
	if m := inclusionPart.FindStringSubmatch(section); m != nil {
		record["inclusion_criteria"] = textOf(m[1])
	}
	if m := exclusionPart.FindStringSubmatch(section); m != nil {
		record["exclusion_criteria"] = textOf(m[1])
	}
}

// textOf strips markup from an HTML fragment, decodes entities and collapses
// whitespace runs into single spaces.
func textOf(fragment string) string {
	text := allTags.ReplaceAllString(fragment, " ")
	text = html.UnescapeString(text)
	return strings.TrimSpace(whitespaceRun.ReplaceAllString(text, " "))
}
