package profile

const (
	TagAllCitizens    = "all-citizens"
	districtTagPrefix = "district:"
)

var (
	incomeTags = map[string]string{
		"below-10k":  "low-income",
		"10k-20k":    "low-income",
		"20k-30k":    "middle-income",
		"30k-50k":    "middle-income",
		"50k-100k":   "high-income",
		"above-100k": "high-income",
	}
	employmentTags = map[string][]string{
		"employed-full-time": {"workers"},
		"employed-part-time": {"workers"},
		"self-employed":      {"entrepreneurs", "workers"},
		"unemployed":         {"job-seekers"},
		"student":            {"students"},
		"retired":            {"retirees"},
		"homemaker":          {"homemakers"},
	}
	housingTags = map[string][]string{
		"public-rental":   {"public-housing-tenants", "renters"},
		"subsidized-sale": {"public-housing-tenants", "homeowners"},
		"private-owned":   {"homeowners"},
		"private-rental":  {"renters"},
	}
	healthTags = map[string]string{
		"chronic-illness":    "chronic-patients",
		"disability":         "persons-with-disabilities",
		"mental-health":      "mental-health",
		"elderly-care-needs": "caregivers",
	}
	transportTags = map[string]string{
		"mtr":         "public-transport-users",
		"bus":         "public-transport-users",
		"minibus":     "public-transport-users",
		"tram":        "public-transport-users",
		"ferry":       "public-transport-users",
		"private-car": "drivers",
		"cycling":     "active-commuters",
		"walking":     "active-commuters",
	}
)

// DemographicTags derives the ordered, de-duplicated tag set used to match
// policy sections. "all-citizens" is always present and always last.
func DemographicTags(p UserProfile) []string {
	var tags tagList
	if p.Age != nil {
		age := *p.Age
		if age < 25 {
			tags.add("youth")
		}
		switch {
		case age >= 18 && age <= 35:
			tags.add("young-adults")
		case age >= 36 && age <= 59:
			tags.add("middle-aged")
		case age >= 60:
			tags.add("elderly")
		}
	}
	if p.HasChildren != nil && *p.HasChildren {
		tags.add("families", "parents")
		for _, childAge := range p.ChildrenAges {
			switch {
			case childAge < 6:
				tags.add("young-children")
			case childAge < 18:
				tags.add("school-age-children")
			}
		}
	}
	if tag, ok := incomeTags[p.IncomeRange]; ok {
		tags.add(tag)
	}
	tags.add(employmentTags[p.EmploymentStatus]...)
	tags.add(housingTags[p.HousingType]...)
	for _, cond := range p.HealthConditions {
		if tag, ok := healthTags[cond]; ok {
			tags.add(tag)
		}
	}
	for _, mode := range p.TransportationMode {
		if tag, ok := transportTags[mode]; ok {
			tags.add(tag)
		}
	}
	switch p.MaritalStatus {
	case "married":
		tags.add("married-couples")
	case "single", "divorced", "widowed", "separated":
		tags.add("singles")
	}
	if p.District != "" {
		tags.add(districtTagPrefix + p.District)
	}
	tags.add(TagAllCitizens)
	return tags.items
}

type tagList struct {
	items []string
	seen  map[string]struct{}
}

func (l *tagList) add(tags ...string) {
	if l.seen == nil {
		l.seen = make(map[string]struct{})
	}
	for _, tag := range tags {
		if _, ok := l.seen[tag]; ok {
			continue
		}
		l.seen[tag] = struct{}{}
		l.items = append(l.items, tag)
	}
}
