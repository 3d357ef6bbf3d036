package app

import (
	"strings"

	"github.com/samber/lo"
)

// TaskKind selects the prompt template and the response field.
type TaskKind string

const (
	KindExplain        TaskKind = "explain"
	KindDebug          TaskKind = "debug"
	KindTranslate      TaskKind = "translate"
	KindOptimize       TaskKind = "optimize"
	KindExplainConcept TaskKind = "explain-concept"
)

// Kinds lists every task kind in a stable order.
var Kinds = []TaskKind{KindExplain, KindDebug, KindTranslate, KindOptimize, KindExplainConcept}

// OutputField is the JSON field carrying the generated text for the kind.
func (k TaskKind) OutputField() string {
	switch k {
	case KindDebug:
		return "debug_info"
	case KindTranslate:
		return "translation"
	case KindOptimize:
		return "optimization"
	default:
		return "explanation"
	}
}

// Level is the audience level for concept explanations.
type Level string

const (
	LevelBeginner     Level = "beginner"
	LevelIntermediate Level = "intermediate"
	LevelAdvanced     Level = "advanced"
)

// Levels lists the accepted levels.
var Levels = []Level{LevelBeginner, LevelIntermediate, LevelAdvanced}

// ParseLevel normalizes a level name. Blank and unrecognized names mean beginner.
func ParseLevel(raw string) Level {
	level := Level(strings.ToLower(strings.TrimSpace(raw)))
	if !lo.Contains(Levels, level) {
		return LevelBeginner
	}
	return level
}

// TaskRequest carries code for one of the code task kinds. Content is the
// user's code, passed to the prompt verbatim.
type TaskRequest struct {
	Content  string
	Language string
	Kind     TaskKind
}

// ConceptRequest asks for a concept explanation at a given level.
type ConceptRequest struct {
	Concept string
	Level   string
}
