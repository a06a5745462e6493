package metrics

// Level is the utilization band of a metric.
type Level string

// Utilization levels.
const (
	LevelNormal   Level = "normal"
	LevelWarning  Level = "warning"
	LevelCritical Level = "critical"
)

// Utilization thresholds, in percent of the active plan's cap.
const (
	WarningPercent  = 80.0
	CriticalPercent = 100.0
)

// Utilization is how much of a cap a metric consumes.
type Utilization struct {
	Percentage float64 `json:"percentage" yaml:"percentage"`
	Level      Level   `json:"level" yaml:"level"`
}

// Status computes the utilization of m. Unlimited metrics and zero caps
// report 0% and LevelNormal.
func Status(m UsageMetric) Utilization {
	if m.CurrentPlanThreshold == nil || *m.CurrentPlanThreshold == 0 {
		return Utilization{Level: LevelNormal}
	}

	pct := m.Value / *m.CurrentPlanThreshold * 100
	level := LevelNormal
	switch {
	case pct > CriticalPercent:
		level = LevelCritical
	case pct > WarningPercent:
		level = LevelWarning
	}
	return Utilization{Percentage: pct, Level: level}
}

// Summary counts metrics per utilization level.
type Summary struct {
	Total    int `json:"total" yaml:"total"`
	Critical int `json:"critical" yaml:"critical"`
	Warning  int `json:"warning" yaml:"warning"`
}

// Summarize tallies the utilization levels of ms.
func Summarize(ms []UsageMetric) Summary {
	s := Summary{Total: len(ms)}
	for _, m := range ms {
		switch Status(m).Level {
		case LevelCritical:
			s.Critical++
		case LevelWarning:
			s.Warning++
		}
	}
	return s
}
