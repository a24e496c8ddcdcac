package inspection

import (
	"strings"

	"listinglens/logging"
	"listinglens/types"
)

// Rule maps a category of listing problems to the classification labels that
// indicate it. A rule fires at most once per label set.
type Rule struct {
	Category  string
	Keywords  []string
	Issue     string
	Deduction int
}

// DefaultRules returns the built-in cleanliness and privacy rule table
func DefaultRules() []Rule {
	return []Rule{
		{
			Category:  "cleanliness",
			Keywords:  []string{"mess", "dirty", "garbage", "trash", "stain", "clutter", "mold", "grime"},
			Issue:     "image shows signs of poor cleanliness",
			Deduction: 30,
		},
		{
			Category:  "privacy",
			Keywords:  []string{"camera", "surveillance", "cctv", "webcam", "security camera", "lens"},
			Issue:     "possible privacy-invasive device visible in image",
			Deduction: 50,
		},
	}
}

// Inspector evaluates a label set against a declarative rule table
type Inspector struct {
	rules    []Rule
	minScore float64
}

// NewInspector creates an inspector. Labels scoring below minScore are
// ignored when matching rules.
func NewInspector(rules []Rule, minScore float64) *Inspector {
	return &Inspector{rules: rules, minScore: minScore}
}

// Inspect applies every rule once over the label set and produces the report
func (ins *Inspector) Inspect(labelSet []types.Label) types.InspectionReport {
	score := 100
	issues := []string{}

	for _, rule := range ins.rules {
		if matched, label := ins.ruleMatches(rule, labelSet); matched {
			logging.DebugLog("rule %q fired on label %q", rule.Category, label)
			issues = append(issues, rule.Issue)
			score -= rule.Deduction
		}
	}

	if score < 0 {
		score = 0
	}

	return types.InspectionReport{
		Score:          score,
		Issues:         issues,
		Recommendation: recommendationFor(score),
	}
}

// ruleMatches reports whether any confident label contains one of the rule's
// keywords, returning the label that fired
func (ins *Inspector) ruleMatches(rule Rule, labelSet []types.Label) (bool, string) {
	for _, label := range labelSet {
		if label.Score < ins.minScore {
			continue
		}
		description := strings.ToLower(label.Description)
		for _, keyword := range rule.Keywords {
			if strings.Contains(description, keyword) {
				return true, label.Description
			}
		}
	}
	return false, ""
}

func recommendationFor(score int) string {
	switch {
	case score >= 90:
		return "No issues detected in listing photos."
	case score >= 50:
		return "Review flagged photos before publishing the listing."
	default:
		return "Multiple problems detected; a manual inspection is advised."
	}
}
