package handlers

import (
	"fmt"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	types "github.com/campuslink/campuslink-backend/internal/domain"
	"github.com/campuslink/campuslink-backend/internal/platform/apierr"
	"github.com/campuslink/campuslink-backend/internal/requestdata"
	"github.com/campuslink/campuslink-backend/internal/services"
)

// GraphHandler maps the graph engine 1:1 onto endpoints. Handlers parse and
// validate identifiers; all graph semantics live in the service.
type GraphHandler struct {
	graphService services.GraphService
}

func NewGraphHandler(graphService services.GraphService) *GraphHandler {
	return &GraphHandler{graphService: graphService}
}

func (gh *GraphHandler) Follow(c *gin.Context) {
	caller, target, err := callerAndParam(c)
	if err != nil {
		RespondError(c, err)
		return
	}
	result, err := gh.graphService.FollowUser(c.Request.Context(), caller, target)
	if err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, result)
}

func (gh *GraphHandler) Unfollow(c *gin.Context) {
	caller, target, err := callerAndParam(c)
	if err != nil {
		RespondError(c, err)
		return
	}
	result, err := gh.graphService.UnfollowUser(c.Request.Context(), caller, target)
	if err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, result)
}

func (gh *GraphHandler) RecordInteraction(c *gin.Context) {
	caller, target, err := callerAndParam(c)
	if err != nil {
		RespondError(c, err)
		return
	}
	var body struct {
		Type string `json:"type"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		RespondError(c, apierr.InvalidArgument(fmt.Errorf("invalid body: %w", err)))
		return
	}
	err = gh.graphService.RecordInteraction(c.Request.Context(), caller, target, types.InteractionType(body.Type))
	if err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, gin.H{"recorded": true})
}

func (gh *GraphHandler) Relationship(c *gin.Context) {
	caller, other, err := callerAndParam(c)
	if err != nil {
		RespondError(c, err)
		return
	}
	rel, err := gh.graphService.GetRelationshipStrength(c.Request.Context(), caller, other)
	if err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, rel)
}

func (gh *GraphHandler) Mutual(c *gin.Context) {
	caller, other, err := callerAndParam(c)
	if err != nil {
		RespondError(c, err)
		return
	}

	var users []types.UserNode
	switch c.DefaultQuery("type", "following") {
	case "following":
		users, err = gh.graphService.GetMutualConnections(c.Request.Context(), caller, other)
	case "followers":
		users, err = gh.graphService.GetMutualFollowers(c.Request.Context(), caller, other)
	default:
		err = apierr.InvalidArgument(fmt.Errorf("type must be following or followers"))
	}
	if err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, gin.H{"users": users})
}

func (gh *GraphHandler) Followers(c *gin.Context) {
	gh.list(c, false)
}

func (gh *GraphHandler) Following(c *gin.Context) {
	gh.list(c, true)
}

func (gh *GraphHandler) list(c *gin.Context, outgoing bool) {
	userID, err := parseIDParam(c)
	if err != nil {
		RespondError(c, err)
		return
	}
	limit, offset, err := parsePage(c)
	if err != nil {
		RespondError(c, err)
		return
	}

	var entries []*services.FollowListEntry
	if outgoing {
		entries, err = gh.graphService.GetFollowing(c.Request.Context(), userID, limit, offset)
	} else {
		entries, err = gh.graphService.GetFollowers(c.Request.Context(), userID, limit, offset)
	}
	if err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, gin.H{"entries": entries, "limit": limit, "offset": offset})
}

func (gh *GraphHandler) BulkCheckFollowing(c *gin.Context) {
	caller := requestdata.CallerID(c.Request.Context())
	var body struct {
		UserIDs []string `json:"user_ids"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		RespondError(c, apierr.InvalidArgument(fmt.Errorf("invalid body: %w", err)))
		return
	}
	targets := make([]uuid.UUID, 0, len(body.UserIDs))
	for _, raw := range body.UserIDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			RespondError(c, apierr.InvalidArgument(fmt.Errorf("malformed user id %q", raw)))
			return
		}
		targets = append(targets, id)
	}

	result, err := gh.graphService.BulkCheckFollowing(c.Request.Context(), caller, targets)
	if err != nil {
		RespondError(c, err)
		return
	}
	out := make(map[string]bool, len(result))
	for id, following := range result {
		out[id.String()] = following
	}
	RespondOK(c, gin.H{"following": out})
}

func callerAndParam(c *gin.Context) (uuid.UUID, uuid.UUID, error) {
	caller := requestdata.CallerID(c.Request.Context())
	target, err := parseIDParam(c)
	if err != nil {
		return uuid.Nil, uuid.Nil, err
	}
	return caller, target, nil
}

func parseIDParam(c *gin.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, apierr.InvalidArgument(fmt.Errorf("malformed user id %q", c.Param("id")))
	}
	return id, nil
}

func parsePage(c *gin.Context) (int, int, error) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil {
		return 0, 0, apierr.InvalidArgument(fmt.Errorf("limit must be an integer"))
	}
	offset, err := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil {
		return 0, 0, apierr.InvalidArgument(fmt.Errorf("offset must be an integer"))
	}
	return limit, offset, nil
}
