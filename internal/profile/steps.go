package profile

import (
	"math"
	"strings"

	"policypulse/backend/internal/sanitize"
)

// Field is one row of the conversion table: a payload key, whether the step
// requires it, and a parser that writes the typed value into the profile.
type Field struct {
	Name     string
	Required bool
	apply    func(p *UserProfile, raw any) error
}

type Step struct {
	ID     string
	Fields []Field
}

// Steps lists the form steps in submission order.
var Steps = []Step{
	{
		ID: "personal",
		Fields: []Field{
			intField("age", true, MinAge, MaxAge, func(p *UserProfile, v int) { p.Age = &v }),
			enumField("gender", true, Genders, func(p *UserProfile, v string) { p.Gender = v }),
			enumField("maritalStatus", false, MaritalStatuses, func(p *UserProfile, v string) { p.MaritalStatus = v }),
		},
	},
	{
		ID: "location",
		Fields: []Field{
			enumField("district", true, Districts, func(p *UserProfile, v string) { p.District = v }),
			enumField("housingType", true, HousingTypes, func(p *UserProfile, v string) { p.HousingType = v }),
		},
	},
	{
		ID: "economic",
		Fields: []Field{
			enumField("incomeRange", true, IncomeRanges, func(p *UserProfile, v string) { p.IncomeRange = v }),
			enumField("employmentStatus", true, EmploymentStatuses, func(p *UserProfile, v string) { p.EmploymentStatus = v }),
			enumField("educationLevel", false, EducationLevels, func(p *UserProfile, v string) { p.EducationLevel = v }),
		},
	},
	{
		ID: "family",
		Fields: []Field{
			boolField("hasChildren", true, func(p *UserProfile, v bool) { p.HasChildren = &v }),
			intListField("childrenAges", false, 0, MaxChildAge, func(p *UserProfile, v []int) { p.ChildrenAges = v }),
		},
	},
	{
		ID: "lifestyle",
		Fields: []Field{
			enumListField("transportationMode", false, TransportationModes, func(p *UserProfile, v []string) { p.TransportationMode = v }),
			enumListField("healthConditions", false, HealthConditions, func(p *UserProfile, v []string) { p.HealthConditions = v }),
		},
	},
}

func FindStep(id string) (Step, bool) {
	for _, s := range Steps {
		if s.ID == id {
			return s, true
		}
	}
	return Step{}, false
}

// NextStep returns the step after id, or "" when id is the last one.
func NextStep(id string) string {
	for i, s := range Steps {
		if s.ID == id && i+1 < len(Steps) {
			return Steps[i+1].ID
		}
	}
	return ""
}

func LastStep() string {
	return Steps[len(Steps)-1].ID
}

// ParseStep converts a raw step payload into a partial profile using the
// step's field table.
func ParseStep(stepID string, payload map[string]any) (UserProfile, error) {
	step, ok := FindStep(strings.TrimSpace(stepID))
	if !ok {
		return UserProfile{}, ErrUnknownStep
	}
	var out UserProfile
	for _, field := range step.Fields {
		raw, present := payload[field.Name]
		if !present || isBlank(raw) {
			if field.Required {
				return UserProfile{}, invalid(field.Name, "is required")
			}
			continue
		}
		if err := field.apply(&out, raw); err != nil {
			return UserProfile{}, err
		}
	}
	if out.HasChildren != nil && !*out.HasChildren {
		out.ChildrenAges = nil
	}
	if err := out.Validate(); err != nil {
		return UserProfile{}, err
	}
	return out, nil
}

func isBlank(raw any) bool {
	switch v := raw.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(v) == ""
	case []any:
		return len(v) == 0
	case []string:
		return len(v) == 0
	}
	return false
}

func intField(name string, required bool, lo, hi int, set func(*UserProfile, int)) Field {
	return Field{Name: name, Required: required, apply: func(p *UserProfile, raw any) error {
		v, err := parseInt(name, raw, lo, hi)
		if err != nil {
			return err
		}
		set(p, v)
		return nil
	}}
}

func boolField(name string, required bool, set func(*UserProfile, bool)) Field {
	return Field{Name: name, Required: required, apply: func(p *UserProfile, raw any) error {
		switch raw.(type) {
		case bool, string, float64, int:
		default:
			return invalid(name, "must be a boolean")
		}
		set(p, sanitize.Bool(raw))
		return nil
	}}
}

func enumField(name string, required bool, set ValueSet, assign func(*UserProfile, string)) Field {
	return Field{Name: name, Required: required, apply: func(p *UserProfile, raw any) error {
		s, ok := raw.(string)
		if !ok {
			return invalid(name, "must be a string")
		}
		v := sanitize.Input(s)
		if !set.Contains(v) {
			return invalid(name, "unsupported value")
		}
		assign(p, v)
		return nil
	}}
}

func intListField(name string, required bool, lo, hi int, set func(*UserProfile, []int)) Field {
	return Field{Name: name, Required: required, apply: func(p *UserProfile, raw any) error {
		items, err := listItems(name, raw)
		if err != nil {
			return err
		}
		out := make([]int, 0, len(items))
		for _, item := range items {
			v, err := parseInt(name, item, lo, hi)
			if err != nil {
				return err
			}
			out = append(out, v)
		}
		set(p, out)
		return nil
	}}
}

func enumListField(name string, required bool, allowed ValueSet, set func(*UserProfile, []string)) Field {
	return Field{Name: name, Required: required, apply: func(p *UserProfile, raw any) error {
		items, err := listItems(name, raw)
		if err != nil {
			return err
		}
		seen := make(map[string]struct{}, len(items))
		out := make([]string, 0, len(items))
		for _, item := range items {
			s, ok := item.(string)
			if !ok {
				return invalid(name, "must be a list of strings")
			}
			v := sanitize.Input(s)
			if !allowed.Contains(v) {
				return invalid(name, "unsupported value")
			}
			if _, dup := seen[v]; dup {
				continue
			}
			seen[v] = struct{}{}
			out = append(out, v)
		}
		set(p, out)
		return nil
	}}
}

// listItems accepts a JSON array or a comma separated string.
func listItems(name string, raw any) ([]any, error) {
	switch v := raw.(type) {
	case []any:
		return v, nil
	case []string:
		out := make([]any, len(v))
		for i, s := range v {
			out[i] = s
		}
		return out, nil
	case string:
		parts := strings.Split(v, ",")
		out := make([]any, 0, len(parts))
		for _, part := range parts {
			if trimmed := strings.TrimSpace(part); trimmed != "" {
				out = append(out, trimmed)
			}
		}
		return out, nil
	}
	return nil, invalid(name, "must be a list")
}

func parseInt(name string, raw any, lo, hi int) (int, error) {
	f, ok := sanitize.Number(raw)
	if !ok || f != math.Trunc(f) {
		return 0, invalid(name, "must be a whole number")
	}
	if f < float64(lo) || f > float64(hi) {
		return 0, invalid(name, "must be between %d and %d", lo, hi)
	}
	return int(f), nil
}
