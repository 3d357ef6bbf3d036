package app

import (
	"fmt"
	"strings"
)

// buildCodePrompt validates req and renders the template for its kind.
func buildCodePrompt(req TaskRequest, defaultLanguage string) (string, error) {
	if strings.TrimSpace(req.Content) == "" {
		return "", required("code")
	}
	language := strings.TrimSpace(req.Language)
	if language == "" {
		// A translation has no sensible default target.
		if req.Kind == KindTranslate {
			return "", required("language")
		}
		language = defaultLanguage
	}
	switch req.Kind {
	case KindExplain:
		return fmt.Sprintf("Explain this %s code: %s", language, req.Content), nil
	case KindDebug:
		return fmt.Sprintf("Debug this %s code: %s", language, req.Content), nil
	case KindTranslate:
		return fmt.Sprintf("Translate this code to %s: %s", language, req.Content), nil
	case KindOptimize:
		return fmt.Sprintf("Optimize this %s code: %s", language, req.Content), nil
	default:
		return "", &FieldError{Field: "task", Reason: fmt.Sprintf("%q is not a code task", req.Kind)}
	}
}

func buildConceptPrompt(req ConceptRequest) (string, error) {
	concept := strings.TrimSpace(req.Concept)
	if concept == "" {
		return "", required("concept")
	}
	return fmt.Sprintf("Explain %s at %s level", concept, ParseLevel(req.Level)), nil
}
