package policy

import (
	"fmt"
	"strings"

	"policypulse/backend/internal/profile"
)

const (
	matchWeight          = 20
	allCitizensWeight    = 10
	noMatchBase          = 10
	eligibilityStep      = 5
	eligibilityMaxBonus  = 10
	eligibilityMismatch  = -5
	RelevanceCutoff      = 30
	OverallScoreFloor    = 70
	OverallScoreCeiling  = 100
	maxTopCategories     = 5
	maxRecommendedAction = 5
	overallSampleSize    = 5
)

var impactBonus = map[ImpactLevel]int{
	ImpactHigh:   25,
	ImpactMedium: 15,
	ImpactLow:    5,
}

type RelevanceResult struct {
	SectionID           string   `json:"sectionId"`
	Category            string   `json:"category"`
	Title               string   `json:"title"`
	Score               int      `json:"score"`
	MatchedDemographics []string `json:"matchedDemographics"`
	Reasons             []string `json:"reasons"`
	ImpactAssessment    string   `json:"impactAssessment"`
}

// CalculateRelevance scores one section for one profile. The score is raw;
// it can exceed 100 and is only clamped during aggregation.
func CalculateRelevance(p profile.UserProfile, section Section) RelevanceResult {
	tags := profile.DemographicTags(p)
	tagSet := make(map[string]struct{}, len(tags))
	for _, tag := range tags {
		tagSet[tag] = struct{}{}
	}

	matched := make([]string, 0, len(section.TargetDemographics))
	reasons := make([]string, 0, len(section.TargetDemographics)+2)
	score := 0
	for _, target := range section.TargetDemographics {
		if _, ok := tagSet[target]; !ok {
			continue
		}
		matched = append(matched, target)
		if target == profile.TagAllCitizens {
			score += allCitizensWeight
			reasons = append(reasons, "Applies to all citizens")
			continue
		}
		score += matchWeight
		reasons = append(reasons, fmt.Sprintf("Targets %s, which matches your profile", describeTag(target)))
	}
	if len(matched) == 0 {
		score = noMatchBase
		reasons = append(reasons, "No direct demographic match; included for general awareness")
	}

	if bonus, ok := impactBonus[section.ImpactLevel]; ok {
		score += bonus
		if section.ImpactLevel == ImpactHigh {
			reasons = append(reasons, "High-impact policy measure")
		}
	}

	if len(section.EligibilityCriteria) > 0 {
		related := 0
		for _, criterion := range section.EligibilityCriteria {
			if criterionRelates(criterion, tags) {
				related++
			}
		}
		if related > 0 {
			adjust := related * eligibilityStep
			if adjust > eligibilityMaxBonus {
				adjust = eligibilityMaxBonus
			}
			score += adjust
			reasons = append(reasons, fmt.Sprintf("You likely meet %d of %d eligibility criteria", related, len(section.EligibilityCriteria)))
		} else {
			score += eligibilityMismatch
		}
	}
	if score < 1 {
		score = 1
	}

	return RelevanceResult{
		SectionID:           section.ID,
		Category:            section.Category,
		Title:               section.Title,
		Score:               score,
		MatchedDemographics: matched,
		Reasons:             reasons,
		ImpactAssessment:    assessImpact(section.ImpactLevel, matched),
	}
}

// criterionRelates reports whether a free-text criterion mentions one of the
// profile's tags, with hyphens read as spaces.
func criterionRelates(criterion string, tags []string) bool {
	text := strings.ToLower(criterion)
	for _, tag := range tags {
		if tag == profile.TagAllCitizens || strings.HasPrefix(tag, "district:") {
			continue
		}
		if strings.Contains(text, tag) || strings.Contains(text, strings.ReplaceAll(tag, "-", " ")) {
			return true
		}
	}
	return false
}

func describeTag(tag string) string {
	if district, ok := strings.CutPrefix(tag, "district:"); ok {
		return "residents of " + strings.ReplaceAll(district, "-", " ")
	}
	return strings.ReplaceAll(tag, "-", " ")
}

func assessImpact(level ImpactLevel, matched []string) string {
	direct := 0
	for _, m := range matched {
		if m != profile.TagAllCitizens {
			direct++
		}
	}
	switch {
	case direct == 0 && len(matched) == 0:
		return "Limited direct impact on your circumstances"
	case direct == 0:
		return fmt.Sprintf("General %s impact shared by all residents", level)
	case level == ImpactHigh:
		return fmt.Sprintf("Significant direct impact across %d of your demographic groups", direct)
	case level == ImpactMedium:
		return fmt.Sprintf("Moderate direct impact through %d matching groups", direct)
	default:
		return fmt.Sprintf("Minor direct impact through %d matching groups", direct)
	}
}
