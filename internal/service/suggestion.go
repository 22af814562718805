package service

import (
	"strings"

	"github.com/amal-center/rehab-center-api/internal/models"
)

// suggestionRule pattern-matches beneficiary attributes to a goal candidate.
type suggestionRule struct {
	matches func(models.Beneficiary) bool
	goal    models.GoalSuggestion
}

// Rules fire independently and cumulatively, in declaration order. No rule
// suppresses another.
var suggestionRules = []suggestionRule{
	{
		matches: func(b models.Beneficiary) bool {
			return containsAny(b.MedicalDiagnosis, "cerebral palsy", "شلل")
		},
		goal: models.GoalSuggestion{
			Type:   models.GoalTypePhysiotherapy,
			Title:  "Improve range of motion (ROM)",
			Reason: "medical diagnosis indicates paralysis or motor disability",
		},
	},
	{
		matches: func(b models.Beneficiary) bool {
			return containsAny(b.MedicalDiagnosis, "speech", "نطق")
		},
		goal: models.GoalSuggestion{
			Type:   models.GoalTypeMedical,
			Title:  "Intensive speech therapy sessions",
			Reason: "medical diagnosis indicates speech difficulties",
		},
	},
	{
		matches: func(b models.Beneficiary) bool {
			return containsAny(b.SocialStatus, "low income") || containsAny(b.Notes, "دخل محدود", "low income")
		},
		goal: models.GoalSuggestion{
			Type:   models.GoalTypeSocial,
			Title:  "Assistive device request study",
			Reason: "limited income combined with probable equipment need",
		},
	},
	{
		matches: func(b models.Beneficiary) bool {
			return b.Age < 18
		},
		goal: models.GoalSuggestion{
			Type:   models.GoalTypeSocial,
			Title:  "Special education program integration",
			Reason: "age permits educational integration",
		},
	},
}

// SuggestGoals derives candidate goals from the beneficiary's attributes.
// Pure and advisory: accepting a suggestion is equivalent to manually adding
// a goal pre-filled with the suggested type and title.
func SuggestGoals(beneficiary models.Beneficiary) []models.GoalSuggestion {
	suggestions := make([]models.GoalSuggestion, 0, len(suggestionRules))
	for _, rule := range suggestionRules {
		if rule.matches(beneficiary) {
			suggestions = append(suggestions, rule.goal)
		}
	}
	return suggestions
}

func containsAny(text string, markers ...string) bool {
	lowered := strings.ToLower(text)
	for _, marker := range markers {
		if strings.Contains(lowered, strings.ToLower(marker)) {
			return true
		}
	}
	return false
}
