package DMBot

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"go.uber.org/zap"
)

// Base scores before study adjustments.
const (
	baseDataQuality  = 92.0
	baseCompleteness = 95.0
	baseConsistency  = 90.0
	baseCompliance   = 94.0

	maxIssuesPerRun = 5
	jitterRange     = 2.0
)

const (
	CategoryDataQuality  = "data-quality"
	CategoryCompleteness = "completeness"
	CategoryConsistency  = "consistency"
	CategoryCompliance   = "compliance"
)

type issueTemplate struct {
	Domain   string
	Text     string // %d is replaced with the affected record count
	Severity Severity
}

var issueTemplates = map[string][]issueTemplate{
	CategoryDataQuality: {
		{"VS", "%d vital sign results outside physiological range (VSORRES)", SeverityHigh},
		{"LB", "%d lab results recorded without units (LBORRESU)", SeverityMedium},
		{"DM", "%d subjects with implausible age at consent", SeverityHigh},
		{"EX", "%d exposure records with dose above protocol maximum", SeverityCritical},
	},
	CategoryCompleteness: {
		{"AE", "%d adverse events missing onset date (AESTDTC)", SeverityHigh},
		{"CM", "%d concomitant medications missing start date (CMSTDTC)", SeverityMedium},
		{"VS", "%d scheduled visits without vital signs entered", SeverityMedium},
		{"MH", "%d medical history entries missing coded term", SeverityLow},
	},
	CategoryConsistency: {
		{"AE", "%d adverse events ending before they start", SeverityHigh},
		{"EX", "%d doses recorded after subject discontinuation", SeverityCritical},
		{"DM", "%d subjects whose country does not match site country", SeverityMedium},
		{"LB", "%d lab samples dated before informed consent", SeverityHigh},
	},
	CategoryCompliance: {
		{"AE", "%d serious adverse events reported outside 24h window", SeverityCritical},
		{"DM", "%d subjects randomized without documented eligibility", SeverityHigh},
		{"VS", "%d visits outside protocol window", SeverityLow},
		{"CM", "%d prohibited medications recorded during treatment", SeverityHigh},
	},
}

// domainOwners maps SDTM domains to the role that receives their queries.
var domainOwners = map[string]string{
	"DM": "data.manager",
	"AE": "safety.physician",
	"CM": "data.manager",
	"EX": "pharmacy.lead",
	"LB": "lab.coordinator",
	"MH": "cra.monitor",
	"VS": "cra.monitor",
}

func ownerFor(domain string) string {
	if o, ok := domainOwners[normDomain(domain)]; ok {
		return o
	}
	return "data.manager"
}

func phaseAdjustment(phase string) float64 {
	p := strings.ToUpper(strings.TrimSpace(phase))
	p = strings.TrimPrefix(p, "PHASE ")
	switch p {
	case "II", "2":
		return -1.5
	case "III", "3":
		return -3
	case "IV", "4":
		return -1
	default:
		return 0
	}
}

func countryAdjustment(countries int) float64 {
	if countries <= 1 {
		return 0
	}
	return math.Max(-0.5*float64(countries-1), -5)
}

// AnalyzeData scores a study's data quality and raises a query for every
// issue found. The scores are simulated: fixed bases shifted by study size
// plus random jitter.
func (s *Service) AnalyzeData(ctx context.Context, studyID string) (AnalysisResult, error) {
	s.mu.Lock()
	st, ok := s.studies[studyID]
	if !ok {
		s.mu.Unlock()
		return AnalysisResult{}, fmt.Errorf("%w: %s", ErrStudyNotFound, studyID)
	}

	adj := phaseAdjustment(st.Phase) + countryAdjustment(len(st.Countries))
	scores := map[string]float64{
		CategoryDataQuality:  s.score(baseDataQuality, adj),
		CategoryCompleteness: s.score(baseCompleteness, adj),
		CategoryConsistency:  s.score(baseConsistency, adj),
		CategoryCompliance:   s.score(baseCompliance, adj),
	}
	res := AnalysisResult{
		StudyID:           studyID,
		DataQualityScore:  scores[CategoryDataQuality],
		CompletenessScore: scores[CategoryCompleteness],
		ConsistencyScore:  scores[CategoryConsistency],
		ComplianceScore:   scores[CategoryCompliance],
		AnalyzedAt:        s.now(),
	}
	res.OverallScore = round1((res.DataQualityScore + res.CompletenessScore +
		res.ConsistencyScore + res.ComplianceScore) / 4)

	// Worst categories first.
	cats := []string{CategoryDataQuality, CategoryCompleteness, CategoryConsistency, CategoryCompliance}
	sort.SliceStable(cats, func(i, j int) bool { return scores[cats[i]] < scores[cats[j]] })

	var notes []Notification
	for i := 0; i < issueCount(res.OverallScore); i++ {
		cat := cats[i%len(cats)]
		tpls := issueTemplates[cat]
		tpl := tpls[s.rng.Intn(len(tpls))]
		affected := s.rng.Intn(20) + 1
		issue := Issue{
			Category:        cat,
			Domain:          tpl.Domain,
			Description:     fmt.Sprintf(tpl.Text, affected),
			Severity:        tpl.Severity,
			AffectedRecords: affected,
		}
		res.Issues = append(res.Issues, issue)

		q, n := s.createQueryLocked(NewQuery{
			StudyID:     studyID,
			Description: issue.Description,
			Category:    issue.Category,
			Domain:      issue.Domain,
			Severity:    issue.Severity,
		})
		res.QueryIDs = append(res.QueryIDs, q.ID)
		notes = append(notes, n)
	}
	s.mu.Unlock()

	s.log.Info("study analysed",
		zap.String("study_id", studyID),
		zap.Float64("overall_score", res.OverallScore),
		zap.Int("queries_created", len(res.QueryIDs)))

	s.dispatch(ctx, notes)
	return res, nil
}

// score applies the adjustment and jitter. Caller holds s.mu (rng is not safe
// for concurrent use).
func (s *Service) score(base, adj float64) float64 {
	jitter := (s.rng.Float64()*2 - 1) * jitterRange
	return round1(clamp(base+adj+jitter, 0, 100))
}

func issueCount(overall float64) int {
	n := int((100-overall)/5) + 1
	if n > maxIssuesPerRun {
		return maxIssuesPerRun
	}
	if n < 1 {
		return 1
	}
	return n
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(math.Max(v, lo), hi)
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func normDomain(d string) string {
	return strings.ToUpper(strings.TrimSpace(d))
}

func demoStudies() []Study {
	return []Study{
		{
			ID: "STUDY-001", Name: "ONCO-301 Pembrolizumab in NSCLC", Phase: "Phase III",
			Countries: []string{"US", "DE", "FR", "JP"}, Sites: 42, Subjects: 612, Sponsor: "Helix Oncology",
		},
		{
			ID: "STUDY-002", Name: "CARD-204 Heart Failure Dose Ranging", Phase: "Phase II",
			Countries: []string{"US", "CA"}, Sites: 18, Subjects: 240, Sponsor: "Corvia Therapeutics",
		},
		{
			ID: "STUDY-003", Name: "NEURO-101 First-in-Human", Phase: "Phase I",
			Countries: []string{"US"}, Sites: 3, Subjects: 48, Sponsor: "Synapse Bio",
		},
	}
}
