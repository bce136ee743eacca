package store

import (
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/openink/quill/models"
)

// Store is the entity store. Every mutation runs as a single transaction and
// enforces the uniqueness and referential rules of the data model, so callers
// never observe partial writes.
type Store struct {
	db *gorm.DB
}

// New wraps a gorm connection.
func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// DB exposes the underlying connection for migrations and middleware.
func (s *Store) DB() *gorm.DB {
	return s.db
}

// CreateUser persists a new user. Duplicate usernames fail with
// ErrConstraintViolation.
func (s *Store) CreateUser(user *models.User) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.User{}).Where("username = ?", user.Username).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return fmt.Errorf("%w: username already taken", ErrConstraintViolation)
		}
		return translate(tx.Create(user).Error)
	})
}

// UserByUsername resolves a user or ErrNotFound.
func (s *Store) UserByUsername(username string) (*models.User, error) {
	var user models.User
	if err := s.db.Where("username = ?", username).First(&user).Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

// UserByID resolves a user or ErrNotFound.
func (s *Store) UserByID(id uint) (*models.User, error) {
	var user models.User
	if err := s.db.First(&user, id).Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

// DeleteUser removes a user together with their posts, every comment on those
// posts, the user's own comments and both sides of their follows, atomically.
func (s *Store) DeleteUser(id uint) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		var user models.User
		if err := tx.First(&user, id).Error; err != nil {
			return translate(err)
		}
		var postIDs []uint
		if err := tx.Model(&models.Post{}).Where("author_id = ?", id).Pluck("id", &postIDs).Error; err != nil {
			return err
		}
		if len(postIDs) > 0 {
			if err := tx.Where("post_id IN ?", postIDs).Delete(&models.Comment{}).Error; err != nil {
				return err
			}
		}
		if err := tx.Where("author_id = ?", id).Delete(&models.Comment{}).Error; err != nil {
			return err
		}
		if err := tx.Where("author_id = ?", id).Delete(&models.Post{}).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ? OR author_id = ?", id, id).Delete(&models.Follow{}).Error; err != nil {
			return err
		}
		return tx.Delete(&user).Error
	})
}

// CreateGroup persists a group. Duplicate slugs fail with ErrConstraintViolation.
func (s *Store) CreateGroup(group *models.Group) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.Group{}).Where("slug = ?", group.Slug).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return fmt.Errorf("%w: group with this slug already exists", ErrConstraintViolation)
		}
		return translate(tx.Create(group).Error)
	})
}

// Groups lists all groups ordered by title.
func (s *Store) Groups() ([]models.Group, error) {
	groups := make([]models.Group, 0)
	if err := s.db.Order("title ASC").Find(&groups).Error; err != nil {
		return nil, err
	}
	return groups, nil
}

// GroupBySlug resolves a group or ErrNotFound.
func (s *Store) GroupBySlug(slug string) (*models.Group, error) {
	var group models.Group
	if err := s.db.Where("slug = ?", slug).First(&group).Error; err != nil {
		return nil, translate(err)
	}
	return &group, nil
}

// DeleteGroup removes a group and clears the group reference of its posts in
// the same transaction. The posts themselves survive.
func (s *Store) DeleteGroup(slug string) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		var group models.Group
		if err := tx.Where("slug = ?", slug).First(&group).Error; err != nil {
			return translate(err)
		}
		if err := tx.Model(&models.Post{}).Where("group_id = ?", group.ID).Update("group_id", nil).Error; err != nil {
			return err
		}
		return tx.Delete(&group).Error
	})
}

// CreatePost persists a post. The (author, text) pair must be unique; a
// duplicate fails with ErrConstraintViolation and writes nothing.
func (s *Store) CreatePost(post *models.Post) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.Post{}).
			Where("author_id = ? AND text = ?", post.AuthorID, post.Text).
			Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return fmt.Errorf("%w: you already published a post with this text", ErrConstraintViolation)
		}
		return translate(tx.Create(post).Error)
	})
}

// UpdatePost rewrites the mutable fields of a post: text, group and image.
// PubDate and author never change. The (author, text) uniqueness is re-checked
// against other posts of the same author.
func (s *Store) UpdatePost(id uint, text string, groupID *uint, image string) (*models.Post, error) {
	var post models.Post
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&post, id).Error; err != nil {
			return translate(err)
		}
		var count int64
		if err := tx.Model(&models.Post{}).
			Where("author_id = ? AND text = ? AND id <> ?", post.AuthorID, text, post.ID).
			Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return fmt.Errorf("%w: you already published a post with this text", ErrConstraintViolation)
		}
		updates := map[string]interface{}{
			"text":       text,
			"group_id":   groupID,
			"updated_at": time.Now(),
		}
		if image != "" {
			updates["image"] = image
		}
		if err := tx.Model(&post).Updates(updates).Error; err != nil {
			return err
		}
		post.Text = text
		post.GroupID = groupID
		if image != "" {
			post.Image = image
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &post, nil
}

// PostByID resolves a post with its author and group, or ErrNotFound.
func (s *Store) PostByID(id uint) (*models.Post, error) {
	var post models.Post
	if err := s.db.Preload("Author").Preload("Group").First(&post, id).Error; err != nil {
		return nil, translate(err)
	}
	return &post, nil
}

// DeletePost removes a post and its comments atomically.
func (s *Store) DeletePost(id uint) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		var post models.Post
		if err := tx.First(&post, id).Error; err != nil {
			return translate(err)
		}
		if err := tx.Where("post_id = ?", post.ID).Delete(&models.Comment{}).Error; err != nil {
			return err
		}
		return tx.Delete(&post).Error
	})
}

// CreateComment persists a comment on an existing post.
func (s *Store) CreateComment(comment *models.Comment) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.Post{}).Where("id = ?", comment.PostID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return ErrNotFound
		}
		return translate(tx.Create(comment).Error)
	})
}

// CommentsByPost lists a post's comments newest first, with their authors.
func (s *Store) CommentsByPost(postID uint) ([]models.Comment, error) {
	comments := make([]models.Comment, 0)
	if err := s.db.Preload("Author").
		Where("post_id = ?", postID).
		Order("created DESC, id DESC").
		Find(&comments).Error; err != nil {
		return nil, err
	}
	return comments, nil
}

// Follow makes authorID's posts appear in userID's follow feed. Following
// yourself or an author you already follow is a no-op, never an error.
func (s *Store) Follow(userID, authorID uint) error {
	if userID == authorID {
		return nil
	}
	return s.db.Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.User{}).Where("id = ?", authorID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return ErrNotFound
		}
		if err := tx.Model(&models.Follow{}).
			Where("user_id = ? AND author_id = ?", userID, authorID).
			Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return nil
		}
		return translate(tx.Create(&models.Follow{UserID: userID, AuthorID: authorID}).Error)
	})
}

// Unfollow removes the follow relationship; absent relationships are a no-op.
func (s *Store) Unfollow(userID, authorID uint) error {
	return s.db.Where("user_id = ? AND author_id = ?", userID, authorID).Delete(&models.Follow{}).Error
}

// IsFollowing reports whether userID currently follows authorID.
func (s *Store) IsFollowing(userID, authorID uint) (bool, error) {
	var count int64
	if err := s.db.Model(&models.Follow{}).
		Where("user_id = ? AND author_id = ?", userID, authorID).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// FollowCount returns the number of follow relationships in the store.
func (s *Store) FollowCount() (int64, error) {
	var count int64
	err := s.db.Model(&models.Follow{}).Count(&count).Error
	return count, err
}
