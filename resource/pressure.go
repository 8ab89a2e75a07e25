package resource

// Level grades memory usage for advisory purposes. The enforcement path
// never consults it.
type Level string

const (
	LevelNormal   Level = "NORMAL"
	LevelWarning  Level = "WARNING"
	LevelPressure Level = "PRESSURE"
	LevelCritical Level = "CRITICAL"
	LevelOOM      Level = "OOM"
)

// Pressure grades used against limit:
//
//	< 70%        NORMAL
//	[70%, 85%)   WARNING
//	[85%, 95%)   PRESSURE
//	[95%, 100%)  CRITICAL
//	>= 100%      OOM
//
// A zero limit with any usage is OOM; zero usage against a zero limit
// is NORMAL.
func Pressure(used, limit uint64) Level {
	if limit == 0 {
		if used == 0 {
			return LevelNormal
		}
		return LevelOOM
	}

	ratio := float64(used) / float64(limit)
	switch {
	case ratio >= 1.0:
		return LevelOOM
	case ratio >= 0.95:
		return LevelCritical
	case ratio >= 0.85:
		return LevelPressure
	case ratio >= 0.70:
		return LevelWarning
	default:
		return LevelNormal
	}
}
