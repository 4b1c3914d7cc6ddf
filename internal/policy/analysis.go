package policy

import (
	"fmt"
	"sort"
	"time"

	"policypulse/backend/internal/profile"
)

type CategoryScore struct {
	Category string `json:"category"`
	Score    int    `json:"score"`
}

type Analysis struct {
	UserProfileID      string            `json:"userProfileId"`
	OverallScore       int               `json:"overallScore"`
	RelevantSections   []RelevanceResult `json:"relevantSections"`
	TopCategories      []string          `json:"topCategories"`
	CategoryScores     []CategoryScore   `json:"categoryScores"`
	RecommendedActions []string          `json:"recommendedActions"`
	AnalysisDate       time.Time         `json:"analysisDate"`
}

// AnalyzeForUser scores every section of the corpus against the profile
// identified by profileID and aggregates the result. The overall score never
// drops below OverallScoreFloor, so every profile gets an actionable report.
func AnalyzeForUser(profileID string, p profile.UserProfile, corpus Corpus) Analysis {
	return analyze(profileID, p, corpus, time.Now().UTC())
}

func analyze(profileID string, p profile.UserProfile, corpus Corpus, now time.Time) Analysis {
	scored := make([]RelevanceResult, 0, len(corpus.Sections))
	for _, section := range corpus.Sections {
		result := CalculateRelevance(p, section)
		result.Score = clamp(result.Score, 0, 100)
		scored = append(scored, result)
	}

	relevant := make([]RelevanceResult, 0, len(scored))
	for _, r := range scored {
		if r.Score >= RelevanceCutoff {
			relevant = append(relevant, r)
		}
	}
	sort.SliceStable(relevant, func(i, j int) bool { return relevant[i].Score > relevant[j].Score })

	categories := rankCategories(relevant)
	top := make([]string, 0, len(categories))
	for _, c := range categories {
		top = append(top, c.Category)
	}

	return Analysis{
		UserProfileID:      profileID,
		OverallScore:       overallScore(scored),
		RelevantSections:   relevant,
		TopCategories:      top,
		CategoryScores:     categories,
		RecommendedActions: recommendActions(relevant, corpus),
		AnalysisDate:       now,
	}
}

// overallScore averages the best few section scores and clamps the result
// into [OverallScoreFloor, OverallScoreCeiling].
func overallScore(scored []RelevanceResult) int {
	if len(scored) == 0 {
		return OverallScoreFloor
	}
	scores := make([]int, len(scored))
	for i, r := range scored {
		scores[i] = r.Score
	}
	sort.Sort(sort.Reverse(sort.IntSlice(scores)))
	n := overallSampleSize
	if len(scores) < n {
		n = len(scores)
	}
	total := 0
	for _, s := range scores[:n] {
		total += s
	}
	avg := (total + n/2) / n
	return clamp(avg, OverallScoreFloor, OverallScoreCeiling)
}

func rankCategories(relevant []RelevanceResult) []CategoryScore {
	var ranked []CategoryScore
	index := make(map[string]int)
	for _, r := range relevant {
		i, ok := index[r.Category]
		if !ok {
			index[r.Category] = len(ranked)
			ranked = append(ranked, CategoryScore{Category: r.Category})
			i = len(ranked) - 1
		}
		ranked[i].Score += r.Score
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].Score > ranked[j].Score })
	if len(ranked) > maxTopCategories {
		ranked = ranked[:maxTopCategories]
	}
	return ranked
}

func recommendActions(relevant []RelevanceResult, corpus Corpus) []string {
	actions := make([]string, 0, maxRecommendedAction)
	seen := make(map[string]struct{})
	push := func(action string) {
		if len(actions) >= maxRecommendedAction {
			return
		}
		if _, dup := seen[action]; dup {
			return
		}
		seen[action] = struct{}{}
		actions = append(actions, action)
	}
	for _, r := range relevant {
		section, ok := corpus.Section(r.SectionID)
		if !ok {
			continue
		}
		if len(section.KeyBenefits) > 0 {
			push(fmt.Sprintf("Check your eligibility for %s (%s)", section.KeyBenefits[0], section.Category))
		} else {
			push(fmt.Sprintf("Review the %s measures in %s", section.Category, section.Title))
		}
	}
	if len(actions) == 0 {
		push("Review the measures that apply to all residents in this year's policy address")
	}
	return actions
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
