package handlers

import (
	"fmt"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/campuslink/campuslink-backend/internal/platform/apierr"
	"github.com/campuslink/campuslink-backend/internal/requestdata"
	"github.com/campuslink/campuslink-backend/internal/services"
)

type SuggestionHandler struct {
	suggestionService services.SuggestionService
}

func NewSuggestionHandler(suggestionService services.SuggestionService) *SuggestionHandler {
	return &SuggestionHandler{suggestionService: suggestionService}
}

func (sh *SuggestionHandler) GetSuggestions(c *gin.Context) {
	caller := requestdata.CallerID(c.Request.Context())

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			RespondError(c, apierr.InvalidArgument(fmt.Errorf("limit must be a non-negative integer")))
			return
		}
		limit = parsed
	}
	filters := services.SuggestionFilters{
		SameDepartment: c.Query("same_department") == "true",
		SameYear:       c.Query("same_year") == "true",
	}

	suggestions, err := sh.suggestionService.GetSuggestions(c.Request.Context(), caller, filters, limit)
	if err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, gin.H{"suggestions": suggestions})
}
