package progress

// PassThreshold is the score at or above which a module is tested out,
// a quiz is passed and a placement section is skippable.
const PassThreshold = 0.75

// Level is a curriculum entry point. The first five double as module and
// placement section ids.
type Level string

const (
	LevelNewcomer   Level = "newcomer"
	LevelApprentice Level = "apprentice"
	LevelTrader     Level = "trader"
	LevelSpecialist Level = "specialist"
	LevelMaster     Level = "master"
	LevelCompleted  Level = "completed"
)

// Sections returns the scored placement sections in curriculum order.
func Sections() []Level {
	return []Level{LevelNewcomer, LevelApprentice, LevelTrader, LevelSpecialist, LevelMaster}
}

// Levels returns every placement level in curriculum order.
func Levels() []Level {
	return append(Sections(), LevelCompleted)
}

// Valid reports whether l is a known level.
func (l Level) Valid() bool {
	for _, v := range Levels() {
		if v == l {
			return true
		}
	}
	return false
}

// DisplayName returns a human-readable label for the level.
func (l Level) DisplayName() string {
	switch l {
	case LevelNewcomer:
		return "Newcomer"
	case LevelApprentice:
		return "Apprentice"
	case LevelTrader:
		return "Trader"
	case LevelSpecialist:
		return "Specialist"
	case LevelMaster:
		return "Master"
	case LevelCompleted:
		return "Completed"
	default:
		return string(l)
	}
}
