package domain

import (
	"github.com/campuslink/campuslink-backend/internal/domain/graph"
	"github.com/campuslink/campuslink-backend/internal/domain/user"
)

type User = user.User
type UserNode = user.Node

type Edge = graph.Edge
type InteractionType = graph.InteractionType
type StrengthCategory = graph.StrengthCategory

const (
	InteractionLike    = graph.InteractionLike
	InteractionComment = graph.InteractionComment
	InteractionMessage = graph.InteractionMessage
	InteractionShare   = graph.InteractionShare
	InteractionMention = graph.InteractionMention

	StrengthNone     = graph.StrengthNone
	StrengthWeak     = graph.StrengthWeak
	StrengthModerate = graph.StrengthModerate
	StrengthStrong   = graph.StrengthStrong
)
