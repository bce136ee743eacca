package models

import "time"

// Follow is a directed relationship: UserID follows AuthorID, so the author's
// posts appear in the user's follow feed. The pair is unique; following twice
// is a no-op at the store level.
type Follow struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"index;uniqueIndex:idx_follows_user_author;not null" json:"user_id"`
	AuthorID  uint      `gorm:"index;uniqueIndex:idx_follows_user_author;not null" json:"author_id"`
	CreatedAt time.Time `json:"created_at"`
	User      User      `gorm:"foreignKey:UserID" json:"-"`
	Author    User      `gorm:"foreignKey:AuthorID" json:"-"`
}
