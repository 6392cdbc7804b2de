package DMBot

import (
	"fmt"
	"sort"
	"strings"
)

// RequiredFields lists the SDTM variables that must be populated per domain.
var RequiredFields = map[string][]string{
	"DM": {"STUDYID", "USUBJID", "SEX", "AGE", "ARM", "COUNTRY"},
	"AE": {"AETERM", "AESTDTC", "AESEV", "AESER"},
	"VS": {"VSTESTCD", "VSORRES", "VSORRESU", "VSDTC"},
	"LB": {"LBTESTCD", "LBORRES", "LBORRESU", "LBDTC"},
	"CM": {"CMTRT", "CMSTDTC"},
	"EX": {"EXTRT", "EXDOSE", "EXDOSU", "EXSTDTC"},
	"MH": {"MHTERM", "MHSTDTC"},
}

type DuplicateGroup struct {
	USUBJID   string   `json:"usubjid"`
	Domain    string   `json:"domain"`
	Count     int      `json:"count"`
	RecordIDs []string `json:"record_ids"`
}

type NullValue struct {
	RecordID string `json:"record_id"`
	Domain   string `json:"domain"`
	USUBJID  string `json:"usubjid"`
	Field    string `json:"field"`
}

type FieldMismatch struct {
	RecordID string `json:"record_id"`
	Field    string `json:"field"`
	Source   any    `json:"source"`
	Target   any    `json:"target"`
}

type ComparisonResult struct {
	Matched         int             `json:"matched"`
	MissingInTarget []string        `json:"missing_in_target"`
	MissingInSource []string        `json:"missing_in_source"`
	Mismatches      []FieldMismatch `json:"mismatches"`
}

// FindDuplicateRecords groups records by USUBJID and domain in one pass and
// returns every group holding more than one record, ordered by domain then
// subject.
func FindDuplicateRecords(records []ReferenceData) []DuplicateGroup {
	type key struct{ usubjid, domain string }
	groups := make(map[key]*DuplicateGroup)
	for _, r := range records {
		k := key{strings.TrimSpace(r.USUBJID), normDomain(r.Domain)}
		g, ok := groups[k]
		if !ok {
			g = &DuplicateGroup{USUBJID: k.usubjid, Domain: k.domain}
			groups[k] = g
		}
		g.Count++
		g.RecordIDs = append(g.RecordIDs, r.ID)
	}

	var out []DuplicateGroup
	for _, g := range groups {
		if g.Count > 1 {
			out = append(out, *g)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Domain != out[j].Domain {
			return out[i].Domain < out[j].Domain
		}
		return out[i].USUBJID < out[j].USUBJID
	})
	return out
}

// FindNullValues reports every required field that is missing, nil or blank.
// Records from domains without a required-field list have all of their
// present fields checked.
func FindNullValues(records []ReferenceData) []NullValue {
	var out []NullValue
	for _, r := range records {
		domain := normDomain(r.Domain)
		fields, known := RequiredFields[domain]
		if !known {
			fields = sortedKeys(r.Fields)
		}
		for _, f := range fields {
			v, ok := r.Fields[f]
			if ok && !isBlank(v) {
				continue
			}
			out = append(out, NullValue{RecordID: r.ID, Domain: domain, USUBJID: r.USUBJID, Field: f})
		}
	}
	return out
}

// CompareData matches records by id and reports what differs.
func CompareData(source, target []ReferenceData) ComparisonResult {
	res := ComparisonResult{}
	targetByID := make(map[string]ReferenceData, len(target))
	for _, t := range target {
		targetByID[t.ID] = t
	}
	seen := make(map[string]bool, len(source))

	for _, src := range source {
		seen[src.ID] = true
		tgt, ok := targetByID[src.ID]
		if !ok {
			res.MissingInTarget = append(res.MissingInTarget, src.ID)
			continue
		}
		res.Matched++

		fields := sortedKeys(src.Fields)
		for _, f := range sortedKeys(tgt.Fields) {
			if _, ok := src.Fields[f]; !ok {
				fields = append(fields, f)
			}
		}
		for _, f := range fields {
			sv, sok := src.Fields[f]
			tv, tok := tgt.Fields[f]
			if sok && tok && fmt.Sprint(sv) == fmt.Sprint(tv) {
				continue
			}
			res.Mismatches = append(res.Mismatches, FieldMismatch{RecordID: src.ID, Field: f, Source: sv, Target: tv})
		}
	}
	for _, t := range target {
		if !seen[t.ID] {
			res.MissingInSource = append(res.MissingInSource, t.ID)
		}
	}
	return res
}

func isBlank(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(x) == ""
	}
	return false
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
