package profile

import (
	"regexp"
	"strconv"
	"strings"
)

// keywordRule maps one literal keyword to the canonical value it implies.
type keywordRule struct {
	keyword string
	value   string
}

// Rule tables for the required fields. Matching is case-insensitive and
// bounded at word edges so "cs" does not fire inside "physics". When one
// utterance matches several values for the same field, the match found
// last in left-to-right order wins.
var (
	fieldOfStudyRules = []keywordRule{
		{"computer science", "Computer Science"},
		{"cs", "Computer Science"},
		{"engineering", "Engineering"},
		{"business", "Business"},
		{"medicine", "Medicine"},
		{"medical", "Medicine"},
	}

	educationLevelRules = []keywordRule{
		{"high school", "High School"},
		{"undergraduate", "Undergraduate"},
		{"undergrad", "Undergraduate"},
		{"bachelor", "Undergraduate"},
		{"graduate", "Graduate"},
		{"master", "Graduate"},
		{"phd", "PhD"},
		{"ph.d", "PhD"},
		{"doctorate", "PhD"},
		{"doctoral", "PhD"},
	}

	citizenshipRules = []keywordRule{
		{"american", "American"},
		{"canadian", "Canadian"},
		{"british", "British"},
		{"indian", "Indian"},
		{"nigerian", "Nigerian"},
		{"german", "German"},
		{"french", "French"},
		{"spanish", "Spanish"},
		{"australian", "Australian"},
		{"chinese", "Chinese"},
		{"brazilian", "Brazilian"},
		{"mexican", "Mexican"},
		{"kenyan", "Kenyan"},
		{"pakistani", "Pakistani"},
		{"filipino", "Filipino"},
		{"vietnamese", "Vietnamese"},
	}

	locationRules = []keywordRule{
		{"united states", "United States"},
		{"usa", "United States"},
		{"canada", "Canada"},
		{"united kingdom", "United Kingdom"},
		{"uk", "United Kingdom"},
		{"india", "India"},
		{"nigeria", "Nigeria"},
		{"germany", "Germany"},
		{"france", "France"},
		{"spain", "Spain"},
		{"australia", "Australia"},
		{"china", "China"},
		{"brazil", "Brazil"},
		{"mexico", "Mexico"},
		{"kenya", "Kenya"},
		{"pakistan", "Pakistan"},
		{"philippines", "Philippines"},
		{"vietnam", "Vietnam"},
	}

	financialNeedKeywords = []string{
		"financial need", "need-based", "financial aid", "low income",
		"can't afford", "cannot afford", "need funding",
	}

	researchInterestRules = []keywordRule{
		{"machine learning", "Machine Learning"},
		{"artificial intelligence", "Artificial Intelligence"},
		{"data science", "Data Science"},
		{"robotics", "Robotics"},
		{"biology", "Biology"},
		{"climate", "Climate"},
		{"renewable energy", "Renewable Energy"},
	}

	extracurricularRules = []keywordRule{
		{"volunteer", "Volunteering"},
		{"volunteering", "Volunteering"},
		{"debate", "Debate"},
		{"student government", "Student Government"},
		{"music", "Music"},
		{"sports", "Sports"},
	}

	gpaPattern = regexp.MustCompile(`\b([0-4](?:\.\d{1,2})?)\b`)
)

// Extract scans one free-text input and fills any still-empty profile
// fields it recognizes. Set fields are never overwritten. Input that
// matches nothing leaves the profile untouched; that is not an error.
func Extract(input string, p *Profile) {
	lowered := strings.ToLower(input)

	if p.FieldOfStudy == "" {
		if v, ok := lastMatch(lowered, fieldOfStudyRules); ok {
			p.FieldOfStudy = v
		}
	}
	if p.EducationLevel == "" {
		if v, ok := lastMatch(lowered, educationLevelRules); ok {
			p.EducationLevel = v
		}
	}
	if p.Citizenship == "" {
		if v, ok := lastMatch(lowered, citizenshipRules); ok {
			p.Citizenship = v
		}
	}
	if p.Location == "" {
		if v, ok := lastMatch(lowered, locationRules); ok {
			p.Location = v
		}
	}
	if p.GPA == 0 && strings.Contains(lowered, "gpa") {
		if m := gpaPattern.FindString(lowered); m != "" {
			if gpa, err := strconv.ParseFloat(m, 64); err == nil && gpa > 0 {
				p.GPA = gpa
			}
		}
	}
	if p.FinancialNeed == "" {
		for _, kw := range financialNeedKeywords {
			if strings.Contains(lowered, kw) {
				p.FinancialNeed = "yes"
				break
			}
		}
	}
	for _, r := range researchInterestRules {
		if indexWord(lowered, r.keyword) >= 0 {
			p.ResearchInterests = appendUnique(p.ResearchInterests, r.value)
		}
	}
	for _, r := range extracurricularRules {
		if indexWord(lowered, r.keyword) >= 0 {
			p.Extracurriculars = appendUnique(p.Extracurriculars, r.value)
		}
	}
}

// lastMatch returns the value whose keyword occurs last in the input.
func lastMatch(lowered string, rules []keywordRule) (string, bool) {
	best := -1
	value := ""
	for _, r := range rules {
		if idx := lastIndexWord(lowered, r.keyword); idx >= best && idx >= 0 {
			best = idx
			value = r.value
		}
	}
	return value, best >= 0
}

// indexWord finds the first word-bounded occurrence of kw in s, or -1.
func indexWord(s, kw string) int {
	for from := 0; ; {
		idx := strings.Index(s[from:], kw)
		if idx < 0 {
			return -1
		}
		idx += from
		if bounded(s, idx, len(kw)) {
			return idx
		}
		from = idx + 1
	}
}

// lastIndexWord finds the last word-bounded occurrence of kw in s, or -1.
func lastIndexWord(s, kw string) int {
	last := -1
	for from := 0; ; {
		idx := strings.Index(s[from:], kw)
		if idx < 0 {
			return last
		}
		idx += from
		if bounded(s, idx, len(kw)) {
			last = idx
		}
		from = idx + 1
	}
}

func bounded(s string, idx, length int) bool {
	if idx > 0 && isWordByte(s[idx-1]) {
		return false
	}
	end := idx + length
	if end < len(s) && isWordByte(s[end]) {
		return false
	}
	return true
}

func isWordByte(b byte) bool {
	return b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z' || b >= '0' && b <= '9'
}

func appendUnique(list []string, v string) []string {
	for _, existing := range list {
		if existing == v {
			return list
		}
	}
	return append(list, v)
}
