package policy

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"

	"gopkg.in/yaml.v3"
)

type ImpactLevel string

const (
	ImpactHigh   ImpactLevel = "high"
	ImpactMedium ImpactLevel = "medium"
	ImpactLow    ImpactLevel = "low"
)

func (l ImpactLevel) Valid() bool {
	switch l {
	case ImpactHigh, ImpactMedium, ImpactLow:
		return true
	}
	return false
}

type Section struct {
	ID                     string      `yaml:"id" json:"id"`
	Category               string      `yaml:"category" json:"category"`
	Title                  string      `yaml:"title" json:"title"`
	Content                string      `yaml:"content" json:"content"`
	Summary                string      `yaml:"summary" json:"summary"`
	TargetDemographics     []string    `yaml:"targetDemographics" json:"targetDemographics"`
	ImpactLevel            ImpactLevel `yaml:"impactLevel" json:"impactLevel"`
	ImplementationTimeline string      `yaml:"implementationTimeline" json:"implementationTimeline"`
	KeyBenefits            []string    `yaml:"keyBenefits" json:"keyBenefits"`
	EligibilityCriteria    []string    `yaml:"eligibilityCriteria,omitempty" json:"eligibilityCriteria,omitempty"`
	BudgetAllocation       *float64    `yaml:"budgetAllocation,omitempty" json:"budgetAllocation,omitempty"`
}

// Corpus is one year's policy document. It is reference data and is never
// modified after loading.
type Corpus struct {
	Year        int       `yaml:"year" json:"year"`
	Title       string    `yaml:"title" json:"title"`
	Sections    []Section `yaml:"sections" json:"sections"`
	LastUpdated string    `yaml:"lastUpdated" json:"lastUpdated"`
	TotalBudget float64   `yaml:"totalBudget" json:"totalBudget"`
}

// SectionsByCategory matches the category exactly; no case folding.
func (c Corpus) SectionsByCategory(category string) []Section {
	var out []Section
	for _, s := range c.Sections {
		if s.Category == category {
			out = append(out, s)
		}
	}
	return out
}

func (c Corpus) Section(id string) (Section, bool) {
	for _, s := range c.Sections {
		if s.ID == id {
			return s, true
		}
	}
	return Section{}, false
}

func (c Corpus) Categories() []string {
	seen := make(map[string]struct{})
	var out []string
	for _, s := range c.Sections {
		if _, ok := seen[s.Category]; ok {
			continue
		}
		seen[s.Category] = struct{}{}
		out = append(out, s.Category)
	}
	return out
}

var yearPattern = regexp.MustCompile(`\b(\d{4})\b`)

// Validate returns every problem found, joined.
func (c Corpus) Validate() error {
	var errs []error
	if c.Year <= 0 {
		errs = append(errs, errors.New("corpus year is required"))
	}
	if c.TotalBudget < 0 {
		errs = append(errs, errors.New("totalBudget must not be negative"))
	}
	seen := make(map[string]struct{}, len(c.Sections))
	for i, s := range c.Sections {
		label := s.ID
		if label == "" {
			label = "#" + strconv.Itoa(i)
			errs = append(errs, fmt.Errorf("section %s: id is required", label))
		} else if _, dup := seen[s.ID]; dup {
			errs = append(errs, fmt.Errorf("section %s: duplicate id", label))
		}
		seen[s.ID] = struct{}{}

		if s.Category == "" {
			errs = append(errs, fmt.Errorf("section %s: category is required", label))
		}
		if s.Title == "" {
			errs = append(errs, fmt.Errorf("section %s: title is required", label))
		}
		if !s.ImpactLevel.Valid() {
			errs = append(errs, fmt.Errorf("section %s: impactLevel %q is not high, medium or low", label, s.ImpactLevel))
		}
		if err := c.checkTimeline(s.ImplementationTimeline); err != nil {
			errs = append(errs, fmt.Errorf("section %s: %w", label, err))
		}
		if s.BudgetAllocation != nil {
			if *s.BudgetAllocation < 0 {
				errs = append(errs, fmt.Errorf("section %s: budgetAllocation must not be negative", label))
			} else if *s.BudgetAllocation > c.TotalBudget {
				errs = append(errs, fmt.Errorf("section %s: budgetAllocation %.2f exceeds totalBudget %.2f", label, *s.BudgetAllocation, c.TotalBudget))
			}
		}
	}
	return errors.Join(errs...)
}

// checkTimeline requires at least one 4-digit year, and every year found must
// fall between the year before the corpus year and ten years after it.
func (c Corpus) checkTimeline(timeline string) error {
	matches := yearPattern.FindAllStringSubmatch(timeline, -1)
	if len(matches) == 0 {
		return fmt.Errorf("implementationTimeline %q has no 4-digit year", timeline)
	}
	for _, m := range matches {
		year, _ := strconv.Atoi(m[1])
		if year < c.Year-1 || year > c.Year+10 {
			return fmt.Errorf("implementationTimeline year %d is outside %d-%d", year, c.Year-1, c.Year+10)
		}
	}
	return nil
}

// ParseYAML decodes and validates a corpus document.
func ParseYAML(data []byte) (Corpus, error) {
	var c Corpus
	if err := yaml.Unmarshal(data, &c); err != nil {
		return Corpus{}, fmt.Errorf("decode policy corpus: %w", err)
	}
	if err := c.Validate(); err != nil {
		return Corpus{}, fmt.Errorf("invalid policy corpus: %w", err)
	}
	return c, nil
}
