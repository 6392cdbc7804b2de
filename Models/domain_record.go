package Models

import (
	"fmt"

	"ClinOps/DMBot"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// DomainRecord is one SDTM-like row. Variables live in Data keyed by their
// SDTM name (AETERM, VSORRES, ...).
type DomainRecord struct {
	gorm.Model
	StudyID string            `json:"study_id" gorm:"not null;index:idx_study_domain"`
	Domain  string            `json:"domain" gorm:"not null;size:4;index:idx_study_domain"`
	USUBJID string            `json:"usubjid" gorm:"column:usubjid;not null;index"`
	Seq     int               `json:"seq"`
	Data    datatypes.JSONMap `json:"data"`
}

// Reference converts the row into the shape the DM bot checks. The ID is the
// database key so results can be traced back to the row.
func (r DomainRecord) Reference() DMBot.ReferenceData {
	fields := make(map[string]any, len(r.Data))
	for k, v := range r.Data {
		fields[k] = v
	}
	return DMBot.ReferenceData{
		ID:      fmt.Sprintf("%s-%d", r.Domain, r.ID),
		Domain:  r.Domain,
		USUBJID: r.USUBJID,
		Fields:  fields,
	}
}

func References(rows []DomainRecord) []DMBot.ReferenceData {
	out := make([]DMBot.ReferenceData, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.Reference())
	}
	return out
}
