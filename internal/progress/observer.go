package progress

// ChangeKind names the mutation that produced a change notification.
type ChangeKind string

const (
	ChangeLoaded       ChangeKind = "loaded"
	ChangeLesson       ChangeKind = "lesson"
	ChangeQuiz         ChangeKind = "quiz"
	ChangeModuleScore  ChangeKind = "module-score"
	ChangeActivity     ChangeKind = "activity"
	ChangeAchievements ChangeKind = "achievements"
	ChangePlacement    ChangeKind = "placement"
	ChangeMerged       ChangeKind = "merged"
	ChangeReset        ChangeKind = "reset"
)

// Change is delivered to observers once per mutation, after it is stored.
type Change struct {
	Kind  ChangeKind
	State State // a copy; observers may keep it
}

// Observer receives progress change notifications.
type Observer interface {
	ProgressChanged(Change)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(Change)

func (f ObserverFunc) ProgressChanged(c Change) { f(c) }
