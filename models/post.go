package models

import "time"

// Post represents a publication authored by a user, optionally filed under a group.
// PubDate is assigned by the server at creation time and never changes afterwards.
// The (author, text) pair is unique; the store enforces it because MySQL cannot
// index the full TEXT column.
type Post struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Text      string    `gorm:"type:text;not null" json:"text"`
	PubDate   time.Time `gorm:"index;autoCreateTime" json:"pub_date"`
	AuthorID  uint      `gorm:"index;not null" json:"author_id"`
	GroupID   *uint     `gorm:"index" json:"group_id"`
	Image     string    `gorm:"size:512" json:"image"`
	UpdatedAt time.Time `json:"updated_at"`
	Author    User      `json:"author"`
	Group     *Group    `json:"group,omitempty"`
	Comments  []Comment `json:"comments,omitempty"`
}
