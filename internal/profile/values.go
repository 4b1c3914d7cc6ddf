package profile

// ValueSet is a closed, ordered set of accepted values for one field.
type ValueSet []string

func (s ValueSet) Contains(value string) bool {
	for _, v := range s {
		if v == value {
			return true
		}
	}
	return false
}

var (
	Genders = ValueSet{"male", "female", "other", "prefer-not-to-say"}

	MaritalStatuses = ValueSet{"single", "married", "divorced", "widowed", "separated"}

	Districts = ValueSet{
		"central-western", "wan-chai", "eastern", "southern",
		"yau-tsim-mong", "sham-shui-po", "kowloon-city", "wong-tai-sin", "kwun-tong",
		"tsuen-wan", "tuen-mun", "yuen-long", "north", "tai-po", "sai-kung", "sha-tin", "kwai-tsing", "islands",
	}

	IncomeRanges = ValueSet{"below-10k", "10k-20k", "20k-30k", "30k-50k", "50k-100k", "above-100k"}

	EmploymentStatuses = ValueSet{
		"employed-full-time", "employed-part-time", "self-employed",
		"unemployed", "student", "retired", "homemaker",
	}

	HousingTypes = ValueSet{
		"public-rental", "subsidized-sale", "private-owned", "private-rental", "employer-provided", "other",
	}

	EducationLevels = ValueSet{"primary", "secondary", "diploma", "bachelor", "postgraduate"}

	TransportationModes = ValueSet{
		"mtr", "bus", "minibus", "tram", "ferry", "taxi", "private-car", "cycling", "walking",
	}

	HealthConditions = ValueSet{"none", "chronic-illness", "disability", "mental-health", "elderly-care-needs"}
)

const (
	MinAge      = 0
	MaxAge      = 120
	MaxChildAge = 30
)
