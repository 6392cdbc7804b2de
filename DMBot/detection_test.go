package DMBot

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindDuplicateRecords_CountsMatchInput(t *testing.T) {
	records := []ReferenceData{
		{ID: "1", Domain: "DM", USUBJID: "S-001"},
		{ID: "2", Domain: "dm", USUBJID: "S-001"},
		{ID: "3", Domain: "AE", USUBJID: "S-001"},
		{ID: "4", Domain: "AE", USUBJID: "S-002"},
		{ID: "5", Domain: "AE", USUBJID: "S-002"},
		{ID: "6", Domain: "AE", USUBJID: "S-002"},
		{ID: "7", Domain: "VS", USUBJID: "S-003"},
	}

	groups := FindDuplicateRecords(records)
	require.Len(t, groups, 2)

	assert.Equal(t, DuplicateGroup{USUBJID: "S-002", Domain: "AE", Count: 3, RecordIDs: []string{"4", "5", "6"}}, groups[0])
	assert.Equal(t, DuplicateGroup{USUBJID: "S-001", Domain: "DM", Count: 2, RecordIDs: []string{"1", "2"}}, groups[1])

	for _, g := range groups {
		n := 0
		for _, r := range records {
			if r.USUBJID == g.USUBJID && normDomain(r.Domain) == g.Domain {
				n++
			}
		}
		assert.Equal(t, n, g.Count)
	}
}

func TestFindDuplicateRecords_None(t *testing.T) {
	assert.Empty(t, FindDuplicateRecords(nil))
	assert.Empty(t, FindDuplicateRecords([]ReferenceData{{ID: "1", Domain: "DM", USUBJID: "A"}}))
}

func TestFindNullValues(t *testing.T) {
	records := []ReferenceData{
		{ID: "1", Domain: "CM", USUBJID: "S-1", Fields: map[string]any{"CMTRT": "ASPIRIN", "CMSTDTC": "  "}},
		{ID: "2", Domain: "CM", USUBJID: "S-2", Fields: map[string]any{"CMTRT": nil}},
		{ID: "3", Domain: "ZZ", USUBJID: "S-3", Fields: map[string]any{"B": "", "A": 1}},
	}

	got := FindNullValues(records)
	assert.Equal(t, []NullValue{
		{RecordID: "1", Domain: "CM", USUBJID: "S-1", Field: "CMSTDTC"},
		{RecordID: "2", Domain: "CM", USUBJID: "S-2", Field: "CMTRT"},
		{RecordID: "2", Domain: "CM", USUBJID: "S-2", Field: "CMSTDTC"},
		{RecordID: "3", Domain: "ZZ", USUBJID: "S-3", Field: "B"},
	}, got)
}

func TestCompareData(t *testing.T) {
	source := []ReferenceData{
		{ID: "1", Fields: map[string]any{"AGE": 34, "SEX": "F"}},
		{ID: "2", Fields: map[string]any{"AGE": 50}},
	}
	target := []ReferenceData{
		{ID: "1", Fields: map[string]any{"AGE": 34.0, "SEX": "M", "RACE": "ASIAN"}},
		{ID: "3"},
	}

	res := CompareData(source, target)
	assert.Equal(t, 1, res.Matched)
	assert.Equal(t, []string{"2"}, res.MissingInTarget)
	assert.Equal(t, []string{"3"}, res.MissingInSource)
	assert.Equal(t, []FieldMismatch{
		{RecordID: "1", Field: "SEX", Source: "F", Target: "M"},
		{RecordID: "1", Field: "RACE", Source: nil, Target: "ASIAN"},
	}, res.Mismatches)
}
