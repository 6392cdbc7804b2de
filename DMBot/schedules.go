package DMBot

import (
	"fmt"
	"sort"
	"time"

	"github.com/robfig/cron/v3"
)

// ScheduleParser accepts six-field (with seconds) cron expressions and
// descriptors such as @daily. CronJobs uses the same parser.
var ScheduleParser = cron.NewParser(
	cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// SetSchedule registers or replaces the analysis schedule of a study.
func (s *Service) SetSchedule(studyID, spec string, enabled bool) (Schedule, error) {
	if _, err := ScheduleParser.Parse(spec); err != nil {
		return Schedule{}, fmt.Errorf("%w: %v", ErrInvalidSchedule, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.studies[studyID]; !ok {
		return Schedule{}, fmt.Errorf("%w: %s", ErrStudyNotFound, studyID)
	}
	for _, sc := range s.schedules {
		if sc.StudyID == studyID {
			sc.Spec = spec
			sc.Enabled = enabled
			return *sc, nil
		}
	}

	s.scheduleSeq++
	sc := &Schedule{
		ID:        fmt.Sprintf("SCH-%d", s.scheduleSeq),
		StudyID:   studyID,
		Spec:      spec,
		Enabled:   enabled,
		CreatedAt: s.now(),
	}
	s.schedules[sc.ID] = sc
	return *sc, nil
}

func (s *Service) Schedules() []Schedule {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Schedule, 0, len(s.schedules))
	for _, sc := range s.schedules {
		out = append(out, *sc)
	}
	sort.Slice(out, func(i, j int) bool { return idLess(out[i].ID, out[j].ID) })
	return out
}

func (s *Service) RemoveSchedule(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.schedules[id]; !ok {
		return fmt.Errorf("%w: %s", ErrScheduleNotFound, id)
	}
	delete(s.schedules, id)
	return nil
}

// MarkScheduleRun stamps the last run time of a schedule.
func (s *Service) MarkScheduleRun(id string, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sc, ok := s.schedules[id]; ok {
		sc.LastRun = &at
	}
}
