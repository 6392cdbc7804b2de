package Seeder

import (
	"fmt"
	"math"
	"time"

	"ClinOps/Models"

	"go.uber.org/zap"
	"golang.org/x/exp/rand"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Domains are the SDTM domains InitDomainData generates, in insert order.
var Domains = []string{"DM", "AE", "VS", "LB", "CM", "EX", "MH"}

type Options struct {
	Studies          []string
	SubjectsPerStudy int
	BatchSize        int
	Seed             uint64
	Logger           *zap.Logger
}

func (o *Options) defaults() {
	if len(o.Studies) == 0 {
		o.Studies = []string{"STUDY-001", "STUDY-002", "STUDY-003"}
	}
	if o.SubjectsPerStudy <= 0 {
		o.SubjectsPerStudy = 20
	}
	if o.BatchSize <= 0 {
		o.BatchSize = 100
	}
	if o.Seed == 0 {
		o.Seed = uint64(time.Now().UnixNano())
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
}

// InitDomainData generates SDTM rows for every study and domain. A domain that
// already has rows for a study is left alone. It returns the number of rows
// inserted per domain.
func InitDomainData(db *gorm.DB, opts Options) (map[string]int, error) {
	opts.defaults()
	rng := rand.New(rand.NewSource(opts.Seed))
	inserted := make(map[string]int, len(Domains))

	for _, study := range opts.Studies {
		for _, domain := range Domains {
			var count int64
			if err := db.Model(&Models.DomainRecord{}).
				Where("study_id = ? AND domain = ?", study, domain).
				Count(&count).Error; err != nil {
				return inserted, fmt.Errorf("count %s/%s: %w", study, domain, err)
			}
			if count > 0 {
				opts.Logger.Info("domain already seeded, skipping",
					zap.String("study", study), zap.String("domain", domain), zap.Int64("rows", count))
				continue
			}

			rows := generateDomain(rng, study, domain, opts.SubjectsPerStudy)
			if err := db.CreateInBatches(rows, opts.BatchSize).Error; err != nil {
				return inserted, fmt.Errorf("insert %s/%s: %w", study, domain, err)
			}
			inserted[domain] += len(rows)
			opts.Logger.Info("seeded domain",
				zap.String("study", study), zap.String("domain", domain), zap.Int("rows", len(rows)))
		}
	}
	return inserted, nil
}

func subjectID(study string, n int) string {
	return fmt.Sprintf("%s-%03d-%04d", study, 100+n%4+1, n+1)
}

func generateDomain(rng *rand.Rand, study, domain string, subjects int) []Models.DomainRecord {
	var rows []Models.DomainRecord
	for n := 0; n < subjects; n++ {
		usubjid := subjectID(study, n)
		per := recordsPerSubject(rng, domain)
		for seq := 1; seq <= per; seq++ {
			rows = append(rows, Models.DomainRecord{
				StudyID: study,
				Domain:  domain,
				USUBJID: usubjid,
				Seq:     seq,
				Data:    generateFields(rng, study, domain, usubjid, seq),
			})
		}
	}
	return rows
}

func recordsPerSubject(rng *rand.Rand, domain string) int {
	switch domain {
	case "DM":
		return 1
	case "VS", "LB":
		return 2 + rng.Intn(3)
	default:
		return rng.Intn(3)
	}
}

type labTest struct {
	code, unit string
	lo, hi     float64
}

var (
	aeTerms = []string{"HEADACHE", "NAUSEA", "FATIGUE", "DIZZINESS", "RASH", "DIARRHOEA", "INSOMNIA"}
	aeSev   = []string{"MILD", "MODERATE", "SEVERE"}
	vsTests = []labTest{
		{"SYSBP", "mmHg", 100, 160},
		{"DIABP", "mmHg", 60, 100},
		{"PULSE", "beats/min", 55, 100},
		{"TEMP", "C", 36.1, 37.9},
	}
	lbTests = []labTest{
		{"ALT", "U/L", 7, 56},
		{"AST", "U/L", 10, 40},
		{"HGB", "g/dL", 12, 17.5},
		{"GLUC", "mg/dL", 70, 140},
	}
	cmDrugs     = []string{"PARACETAMOL", "IBUPROFEN", "METFORMIN", "ATORVASTATIN", "OMEPRAZOLE"}
	mhTerms     = []string{"HYPERTENSION", "TYPE 2 DIABETES", "ASTHMA", "HYPERLIPIDAEMIA", "DEPRESSION"}
	dmCountries = []string{"USA", "DEU", "FRA", "JPN", "CAN"}
)

func pick[T any](rng *rand.Rand, xs []T) T {
	return xs[rng.Intn(len(xs))]
}

func between(rng *rand.Rand, lo, hi float64) float64 {
	return math.Round((lo+rng.Float64()*(hi-lo))*10) / 10
}

func studyDay(rng *rand.Rand, max int) string {
	base := time.Date(2024, 1, 8, 0, 0, 0, 0, time.UTC)
	return base.AddDate(0, 0, rng.Intn(max)).Format("2006-01-02")
}

// generateFields returns the SDTM variables of one row. About one row in
// twenty leaves a required field blank so the null checks have something to
// report.
func generateFields(rng *rand.Rand, study, domain, usubjid string, seq int) datatypes.JSONMap {
	m := datatypes.JSONMap{"STUDYID": study, "DOMAIN": domain, "USUBJID": usubjid}

	switch domain {
	case "DM":
		m["SUBJID"] = usubjid[len(usubjid)-4:]
		m["AGE"] = 18 + rng.Intn(60)
		m["SEX"] = pick(rng, []string{"M", "F"})
		m["RACE"] = pick(rng, []string{"WHITE", "ASIAN", "BLACK OR AFRICAN AMERICAN", "OTHER"})
		m["ARM"] = pick(rng, []string{"PLACEBO", "TREATMENT A", "TREATMENT B"})
		m["COUNTRY"] = pick(rng, dmCountries)
		m["RFSTDTC"] = studyDay(rng, 90)
	case "AE":
		m["AESEQ"] = seq
		m["AETERM"] = pick(rng, aeTerms)
		m["AESEV"] = pick(rng, aeSev)
		m["AESER"] = pick(rng, []string{"N", "N", "N", "Y"})
		m["AESTDTC"] = studyDay(rng, 180)
	case "VS":
		t := pick(rng, vsTests)
		m["VSSEQ"] = seq
		m["VSTESTCD"] = t.code
		m["VSORRES"] = between(rng, t.lo, t.hi)
		m["VSORRESU"] = t.unit
		m["VSDTC"] = studyDay(rng, 180)
	case "LB":
		t := pick(rng, lbTests)
		m["LBSEQ"] = seq
		m["LBTESTCD"] = t.code
		m["LBORRES"] = between(rng, t.lo*0.8, t.hi*1.2)
		m["LBORRESU"] = t.unit
		m["LBDTC"] = studyDay(rng, 180)
	case "CM":
		m["CMSEQ"] = seq
		m["CMTRT"] = pick(rng, cmDrugs)
		m["CMDOSE"] = pick(rng, []int{5, 10, 20, 40, 500})
		m["CMSTDTC"] = studyDay(rng, 180)
	case "EX":
		m["EXSEQ"] = seq
		m["EXTRT"] = pick(rng, []string{"STUDY DRUG", "PLACEBO"})
		m["EXDOSE"] = pick(rng, []int{50, 100, 200})
		m["EXDOSU"] = "mg"
		m["EXSTDTC"] = studyDay(rng, 180)
	case "MH":
		m["MHSEQ"] = seq
		m["MHTERM"] = pick(rng, mhTerms)
		m["MHSTDTC"] = studyDay(rng, 3650)
	}

	if rng.Intn(20) == 0 {
		for k := range m {
			if k != "STUDYID" && k != "DOMAIN" && k != "USUBJID" {
				m[k] = ""
				break
			}
		}
	}
	return m
}
