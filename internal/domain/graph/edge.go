package graph

import (
	"time"

	"github.com/google/uuid"
)

// Weight bounds and the per-interaction increments applied by the engine.
const (
	InitialWeight = 0.1
	MaxWeight     = 1.0
	WeightFloor   = 0.05

	DefaultDecayFactor = 0.99
)

// InteractionType enumerates the interactions that strengthen an edge.
type InteractionType string

const (
	InteractionLike    InteractionType = "like"
	InteractionComment InteractionType = "comment"
	InteractionMessage InteractionType = "message"
	InteractionShare   InteractionType = "share"
	InteractionMention InteractionType = "mention"
)

// WeightDelta returns the weight increment for t, or false for an unknown type.
func (t InteractionType) WeightDelta() (float64, bool) {
	switch t {
	case InteractionLike:
		return 0.02, true
	case InteractionComment:
		return 0.05, true
	case InteractionMessage:
		return 0.08, true
	case InteractionShare:
		return 0.03, true
	case InteractionMention:
		return 0.04, true
	default:
		return 0, false
	}
}

// Edge is a directed "source follows target" relationship. At most one row
// exists per ordered (source, target) pair; the pair is the natural key.
type Edge struct {
	ID       uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	SourceID uuid.UUID `gorm:"type:uuid;not null;index;uniqueIndex:idx_edge_pair,priority:1;column:source_id" json:"source_id"`
	TargetID uuid.UUID `gorm:"type:uuid;not null;index;uniqueIndex:idx_edge_pair,priority:2;column:target_id" json:"target_id"`

	// Weight starts at 0.1, is increased by interactions (clamped at 1.0)
	// and multiplied toward the floor by the periodic decay sweep.
	Weight float64 `gorm:"not null;default:0.1;column:weight" json:"weight"`

	LikeCount    int `gorm:"not null;default:0;column:like_count" json:"like_count"`
	CommentCount int `gorm:"not null;default:0;column:comment_count" json:"comment_count"`
	MessageCount int `gorm:"not null;default:0;column:message_count" json:"message_count"`
	ShareCount   int `gorm:"not null;default:0;column:share_count" json:"share_count"`
	MentionCount int `gorm:"not null;default:0;column:mention_count" json:"mention_count"`

	LastInteractionAt *time.Time `gorm:"column:last_interaction_at" json:"last_interaction_at,omitempty"`
	CreatedAt         time.Time  `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt         time.Time  `gorm:"not null;default:now()" json:"updated_at"`
}

func (Edge) TableName() string { return "graph_edge" }

// StrengthCategory classifies a pair of directed edges between two users.
type StrengthCategory string

const (
	StrengthNone     StrengthCategory = "none"
	StrengthWeak     StrengthCategory = "weak"
	StrengthModerate StrengthCategory = "moderate"
	StrengthStrong   StrengthCategory = "strong"
)

// ClassifyStrength applies the mutual/weight thresholds to a combined weight.
func ClassifyStrength(exists bool, mutual bool, combined float64) StrengthCategory {
	switch {
	case !exists:
		return StrengthNone
	case mutual && combined >= 0.7:
		return StrengthStrong
	case mutual || combined >= 0.4:
		return StrengthModerate
	default:
		return StrengthWeak
	}
}
