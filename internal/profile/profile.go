package profile

import (
	"errors"
	"fmt"
)

type UserProfile struct {
	Age                *int     `json:"age,omitempty"`
	Gender             string   `json:"gender,omitempty"`
	MaritalStatus      string   `json:"maritalStatus,omitempty"`
	District           string   `json:"district,omitempty"`
	IncomeRange        string   `json:"incomeRange,omitempty"`
	EmploymentStatus   string   `json:"employmentStatus,omitempty"`
	HousingType        string   `json:"housingType,omitempty"`
	HasChildren        *bool    `json:"hasChildren,omitempty"`
	ChildrenAges       []int    `json:"childrenAges,omitempty"`
	EducationLevel     string   `json:"educationLevel,omitempty"`
	TransportationMode []string `json:"transportationMode,omitempty"`
	HealthConditions   []string `json:"healthConditions,omitempty"`
}

// ValidationError names the offending field and carries a user-safe message.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

var ErrUnknownStep = errors.New("invalid form step")

func invalid(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// Merge overlays the set fields of update onto p. Unset fields in update
// keep the earlier value, so fields collected by other steps survive.
func (p UserProfile) Merge(update UserProfile) UserProfile {
	out := p.clone()
	if update.Age != nil {
		age := *update.Age
		out.Age = &age
	}
	if update.Gender != "" {
		out.Gender = update.Gender
	}
	if update.MaritalStatus != "" {
		out.MaritalStatus = update.MaritalStatus
	}
	if update.District != "" {
		out.District = update.District
	}
	if update.IncomeRange != "" {
		out.IncomeRange = update.IncomeRange
	}
	if update.EmploymentStatus != "" {
		out.EmploymentStatus = update.EmploymentStatus
	}
	if update.HousingType != "" {
		out.HousingType = update.HousingType
	}
	if update.EducationLevel != "" {
		out.EducationLevel = update.EducationLevel
	}
	if update.HasChildren != nil {
		has := *update.HasChildren
		out.HasChildren = &has
		if !has {
			out.ChildrenAges = nil
		}
	}
	if update.ChildrenAges != nil {
		out.ChildrenAges = append([]int(nil), update.ChildrenAges...)
	}
	if update.TransportationMode != nil {
		out.TransportationMode = append([]string(nil), update.TransportationMode...)
	}
	if update.HealthConditions != nil {
		out.HealthConditions = append([]string(nil), update.HealthConditions...)
	}
	return out
}

func (p UserProfile) clone() UserProfile {
	out := p
	if p.Age != nil {
		age := *p.Age
		out.Age = &age
	}
	if p.HasChildren != nil {
		has := *p.HasChildren
		out.HasChildren = &has
	}
	out.ChildrenAges = append([]int(nil), p.ChildrenAges...)
	out.TransportationMode = append([]string(nil), p.TransportationMode...)
	out.HealthConditions = append([]string(nil), p.HealthConditions...)
	if len(out.ChildrenAges) == 0 {
		out.ChildrenAges = nil
	}
	if len(out.TransportationMode) == 0 {
		out.TransportationMode = nil
	}
	if len(out.HealthConditions) == 0 {
		out.HealthConditions = nil
	}
	return out
}

// Validate checks the fields that are present. Missing fields are allowed
// because profiles are accumulated step by step.
func (p UserProfile) Validate() error {
	if p.Age != nil && (*p.Age < MinAge || *p.Age > MaxAge) {
		return invalid("age", "must be between %d and %d", MinAge, MaxAge)
	}
	enums := []struct {
		field string
		value string
		set   ValueSet
	}{
		{"gender", p.Gender, Genders},
		{"maritalStatus", p.MaritalStatus, MaritalStatuses},
		{"district", p.District, Districts},
		{"incomeRange", p.IncomeRange, IncomeRanges},
		{"employmentStatus", p.EmploymentStatus, EmploymentStatuses},
		{"housingType", p.HousingType, HousingTypes},
		{"educationLevel", p.EducationLevel, EducationLevels},
	}
	for _, e := range enums {
		if e.value != "" && !e.set.Contains(e.value) {
			return invalid(e.field, "unsupported value")
		}
	}
	for _, mode := range p.TransportationMode {
		if !TransportationModes.Contains(mode) {
			return invalid("transportationMode", "unsupported value")
		}
	}
	for _, cond := range p.HealthConditions {
		if !HealthConditions.Contains(cond) {
			return invalid("healthConditions", "unsupported value")
		}
	}
	if p.HasChildren != nil {
		if *p.HasChildren && len(p.ChildrenAges) == 0 {
			return invalid("childrenAges", "required when hasChildren is true")
		}
		if !*p.HasChildren && len(p.ChildrenAges) > 0 {
			return invalid("childrenAges", "must be empty when hasChildren is false")
		}
	}
	for _, age := range p.ChildrenAges {
		if age < 0 || age > MaxChildAge {
			return invalid("childrenAges", "ages must be between 0 and %d", MaxChildAge)
		}
	}
	return nil
}

// Complete reports the first required field that has not been collected yet.
func (p UserProfile) Complete() error {
	if err := p.Validate(); err != nil {
		return err
	}
	switch {
	case p.Age == nil:
		return invalid("age", "is required")
	case p.Gender == "":
		return invalid("gender", "is required")
	case p.District == "":
		return invalid("district", "is required")
	case p.IncomeRange == "":
		return invalid("incomeRange", "is required")
	case p.EmploymentStatus == "":
		return invalid("employmentStatus", "is required")
	case p.HousingType == "":
		return invalid("housingType", "is required")
	case p.HasChildren == nil:
		return invalid("hasChildren", "is required")
	}
	return nil
}

func IntPtr(v int) *int    { return &v }
func BoolPtr(v bool) *bool { return &v }
