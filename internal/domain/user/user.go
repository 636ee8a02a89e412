package user

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User is the directory record the graph core reads. The graph engine never
// creates or deletes users; it only reads attributes used for scoring and
// maintains the two denormalized follow counters.
type User struct {
	ID         uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	Email      string    `gorm:"uniqueIndex;not null;column:email" json:"email"`
	Name       string    `gorm:"not null;column:name" json:"name"`
	Department string    `gorm:"index;column:department" json:"department"`
	Year       int       `gorm:"column:year" json:"year,omitempty"`
	College    string    `gorm:"column:college" json:"college,omitempty"`
	IsActive   bool      `gorm:"not null;default:true;column:is_active" json:"is_active"`

	// Derived from the edge set; the edge rows are the source of truth and
	// these are adjusted best-effort alongside edge mutations.
	FollowersCount int `gorm:"not null;default:0;column:followers_count" json:"followers_count"`
	FollowingCount int `gorm:"not null;default:0;column:following_count" json:"following_count"`

	CreatedAt time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (User) TableName() string { return "user" }

// Node is the read-mostly projection handed back to API callers.
type Node struct {
	ID             uuid.UUID `json:"id"`
	Name           string    `json:"name"`
	Department     string    `json:"department"`
	Year           int       `json:"year,omitempty"`
	IsActive       bool      `json:"is_active"`
	FollowersCount int       `json:"followers_count"`
	FollowingCount int       `json:"following_count"`
}

func (u *User) AsNode() Node {
	return Node{
		ID:             u.ID,
		Name:           u.Name,
		Department:     u.Department,
		Year:           u.Year,
		IsActive:       u.IsActive,
		FollowersCount: u.FollowersCount,
		FollowingCount: u.FollowingCount,
	}
}
