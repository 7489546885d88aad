package model

import "time"

// SourceStats is the per-source aggregate counter row. It is derived data:
// unlike operation logs it is dropped together with its source.
type SourceStats struct {
	SourceID     string
	Total        int64
	Successful   int64
	Failed       int64
	Filtered     int64
	KindCounts   map[string]int64
	LastActionAt *time.Time
	PeriodStart  time.Time
}

// ApplyOutcome folds one item-level outcome into the counters.
func (s *SourceStats) ApplyOutcome(outcome Outcome, kind ContentKind, at time.Time) {
	s.Total++
	switch outcome {
	case OutcomeSuccess:
		s.Successful++
		t := at
		s.LastActionAt = &t
	case OutcomeFiltered:
		s.Filtered++
	default:
		s.Failed++
	}
	if s.KindCounts == nil {
		s.KindCounts = make(map[string]int64)
	}
	s.KindCounts[string(kind)]++
}

// SuccessRate is the share of successful actions among non-filtered ones.
func (s *SourceStats) SuccessRate() float64 {
	attempted := s.Successful + s.Failed
	if attempted == 0 {
		return 0
	}
	return float64(s.Successful) / float64(attempted)
}
