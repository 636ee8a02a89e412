package app

import (
	"github.com/campuslink/campuslink-backend/internal/handlers"
)

type Handlers struct {
	Graph      *handlers.GraphHandler
	Suggestion *handlers.SuggestionHandler
}

func wireHandlers(serviceset Services) Handlers {
	return Handlers{
		Graph:      handlers.NewGraphHandler(serviceset.Graph),
		Suggestion: handlers.NewSuggestionHandler(serviceset.Suggestion),
	}
}
