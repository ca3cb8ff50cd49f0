package placement

import "github.com/abhisek/tradequest/internal/progress"

// CalculateSectionScore returns the fraction of questions answered with
// the correct option. Unanswered questions count as wrong; an empty
// question set scores 0.
func CalculateSectionScore(answers Answers, questions []Question) float64 {
	if len(questions) == 0 {
		return 0
	}
	correct := 0
	for _, q := range questions {
		if got, ok := answers[q.ID]; ok && got == q.Correct {
			correct++
		}
	}
	return float64(correct) / float64(len(questions))
}

// ScoreSections scores every section of the bank.
func ScoreSections(answers Answers, bank *Bank) map[progress.Level]float64 {
	scores := make(map[progress.Level]float64, len(progress.Sections()))
	for _, section := range progress.Sections() {
		scores[section] = CalculateSectionScore(answers, bank.Sections[section])
	}
	return scores
}

// DeterminePlacement scores the answers and picks a placement level.
func DeterminePlacement(answers Answers, bank *Bank) progress.Level {
	return PlacementFromScores(ScoreSections(answers, bank))
}

// HighestPassedSection returns the most advanced section scoring at or
// above the pass threshold, and false when none did.
func HighestPassedSection(scores map[progress.Level]float64) (progress.Level, bool) {
	sections := progress.Sections()
	for i := len(sections) - 1; i >= 0; i-- {
		if scores[sections[i]] >= progress.PassThreshold {
			return sections[i], true
		}
	}
	return "", false
}

// PlacementFromScores walks from the most advanced section down and places
// the learner one level past the first section they passed. Earlier
// failed sections do not lower the result; they surface as review items.
// Scores of {1, 0, 1, 0, 0} therefore place at specialist, the level after
// trader.
func PlacementFromScores(scores map[progress.Level]float64) progress.Level {
	passed, ok := HighestPassedSection(scores)
	if !ok {
		return progress.LevelNewcomer
	}
	levels := progress.Levels()
	for i, l := range levels {
		if l == passed {
			return levels[i+1]
		}
	}
	return progress.LevelNewcomer
}
