package profile

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStepConvertsFormStrings(t *testing.T) {
	p, err := ParseStep("family", map[string]any{
		"hasChildren":  "true",
		"childrenAges": "3, 8,12",
	})
	require.NoError(t, err)
	require.NotNil(t, p.HasChildren)
	assert.True(t, *p.HasChildren)
	assert.Equal(t, []int{3, 8, 12}, p.ChildrenAges)
}

func TestParseStepAcceptsJSONTypes(t *testing.T) {
	p, err := ParseStep("personal", map[string]any{"age": 34.0, "gender": "female"})
	require.NoError(t, err)
	assert.Equal(t, 34, *p.Age)
	assert.Equal(t, "female", p.Gender)

	p, err = ParseStep("lifestyle", map[string]any{
		"transportationMode": []any{"mtr", "bus", "mtr"},
		"healthConditions":   "none",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"mtr", "bus"}, p.TransportationMode)
	assert.Equal(t, []string{"none"}, p.HealthConditions)
}

func TestParseStepRejectsInvalidInput(t *testing.T) {
	tests := []struct {
		name    string
		step    string
		payload map[string]any
		field   string
	}{
		{name: "missing required", step: "personal", payload: map[string]any{"gender": "male"}, field: "age"},
		{name: "fractional age", step: "personal", payload: map[string]any{"age": "30.5", "gender": "male"}, field: "age"},
		{name: "bad district", step: "location", payload: map[string]any{"district": "atlantis", "housingType": "other"}, field: "district"},
		{name: "bad transport", step: "lifestyle", payload: map[string]any{"transportationMode": "rocket"}, field: "transportationMode"},
		{name: "children without ages", step: "family", payload: map[string]any{"hasChildren": true}, field: "childrenAges"},
		{name: "negative child age", step: "family", payload: map[string]any{"hasChildren": true, "childrenAges": "-1"}, field: "childrenAges"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseStep(tc.step, tc.payload)
			var verr *ValidationError
			require.True(t, errors.As(err, &verr), "got %v", err)
			assert.Equal(t, tc.field, verr.Field)
		})
	}
}

func TestParseStepUnknownStep(t *testing.T) {
	_, err := ParseStep("banking", map[string]any{})
	assert.ErrorIs(t, err, ErrUnknownStep)
}

func TestParseStepDropsChildrenAgesWithoutChildren(t *testing.T) {
	p, err := ParseStep("family", map[string]any{"hasChildren": "no", "childrenAges": "4"})
	require.NoError(t, err)
	assert.False(t, *p.HasChildren)
	assert.Nil(t, p.ChildrenAges)
}

func TestMergeKeepsSiblingStepFields(t *testing.T) {
	base := UserProfile{Age: IntPtr(40), Gender: "male", District: "sha-tin"}
	merged := base.Merge(UserProfile{IncomeRange: "30k-50k", Gender: "other"})
	assert.Equal(t, 40, *merged.Age)
	assert.Equal(t, "sha-tin", merged.District)
	assert.Equal(t, "30k-50k", merged.IncomeRange)
	assert.Equal(t, "other", merged.Gender)

	withKids := merged.Merge(UserProfile{HasChildren: BoolPtr(true), ChildrenAges: []int{2}})
	cleared := withKids.Merge(UserProfile{HasChildren: BoolPtr(false)})
	assert.Nil(t, cleared.ChildrenAges)
	assert.Equal(t, []int{2}, withKids.ChildrenAges)
}

func TestCompleteReportsFirstMissingField(t *testing.T) {
	p := UserProfile{Age: IntPtr(30), Gender: "male", District: "eastern", IncomeRange: "20k-30k", EmploymentStatus: "student"}
	var verr *ValidationError
	require.True(t, errors.As(p.Complete(), &verr))
	assert.Equal(t, "housingType", verr.Field)

	p.HousingType = "private-rental"
	p.HasChildren = BoolPtr(false)
	assert.NoError(t, p.Complete())
}

func TestStepOrder(t *testing.T) {
	assert.Equal(t, "location", NextStep("personal"))
	assert.Equal(t, "", NextStep(LastStep()))
	assert.Equal(t, "lifestyle", LastStep())
}

func TestDemographicTags(t *testing.T) {
	p := UserProfile{
		Age:                IntPtr(70),
		HasChildren:        BoolPtr(false),
		IncomeRange:        "above-100k",
		EmploymentStatus:   "retired",
		MaritalStatus:      "widowed",
		District:           "tai-po",
		TransportationMode: []string{"bus", "mtr"},
	}
	assert.Equal(t, []string{
		"elderly", "high-income", "retirees", "public-transport-users", "singles", "district:tai-po", TagAllCitizens,
	}, DemographicTags(p))

	young := UserProfile{Age: IntPtr(22), HasChildren: BoolPtr(true), ChildrenAges: []int{1, 4, 9}}
	assert.Equal(t, []string{
		"youth", "young-adults", "families", "parents", "young-children", "school-age-children", TagAllCitizens,
	}, DemographicTags(young))
}
