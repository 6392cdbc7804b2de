package Models

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Trial struct {
	gorm.Model
	ProtocolNumber   string         `json:"protocol_number" gorm:"uniqueIndex;not null"`
	Title            string         `json:"title" gorm:"not null"`
	Phase            string         `json:"phase"`
	Status           string         `json:"status" gorm:"index;default:planning"`
	Sponsor          string         `json:"sponsor"`
	TherapeuticArea  string         `json:"therapeutic_area"`
	Countries        datatypes.JSON `json:"countries"`
	TargetEnrollment int            `json:"target_enrollment"`
	ActualEnrollment int            `json:"actual_enrollment"`
	StartDate        *time.Time     `json:"start_date"`

	Sites []Site `json:"sites,omitempty" gorm:"foreignKey:TrialID;constraint:OnDelete:CASCADE"`
}

// CountryList decodes Countries, ignoring malformed values.
func (t Trial) CountryList() []string {
	var out []string
	if len(t.Countries) == 0 {
		return out
	}
	_ = json.Unmarshal(t.Countries, &out)
	return out
}

type Site struct {
	gorm.Model
	TrialID               uint       `json:"trial_id" gorm:"not null;index"`
	SiteNumber            string     `json:"site_number" gorm:"not null"`
	Name                  string     `json:"name" gorm:"not null"`
	Country               string     `json:"country"`
	PrincipalInvestigator string     `json:"principal_investigator"`
	Status                string     `json:"status" gorm:"default:active"`
	EnrolledSubjects      int        `json:"enrolled_subjects"`
	OpenQueries           int        `json:"open_queries"`
	LastVisitAt           *time.Time `json:"last_visit_at"`
}

type TrialRequest struct {
	ProtocolNumber   string   `json:"protocol_number" validate:"required"`
	Title            string   `json:"title" validate:"required"`
	Phase            string   `json:"phase" validate:"omitempty,oneof='Phase I' 'Phase II' 'Phase III' 'Phase IV'"`
	Status           string   `json:"status" validate:"omitempty,oneof=planning recruiting active completed on-hold"`
	Sponsor          string   `json:"sponsor"`
	TherapeuticArea  string   `json:"therapeutic_area"`
	Countries        []string `json:"countries"`
	TargetEnrollment int      `json:"target_enrollment" validate:"gte=0"`
	ActualEnrollment int      `json:"actual_enrollment" validate:"gte=0"`
	StartDate        string   `json:"start_date" validate:"omitempty,datetime=2006-01-02"`
}

type SiteRequest struct {
	SiteNumber            string `json:"site_number" validate:"required"`
	Name                  string `json:"name" validate:"required"`
	Country               string `json:"country"`
	PrincipalInvestigator string `json:"principal_investigator"`
	Status                string `json:"status" validate:"omitempty,oneof=pending active closed"`
	EnrolledSubjects      int    `json:"enrolled_subjects" validate:"gte=0"`
}
