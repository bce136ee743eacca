package store

import (
	"gorm.io/gorm"

	"github.com/openink/quill/models"
)

// PageSize is the fixed number of posts per feed page.
const PageSize = 10

// Page is one page of an ordered feed. Number is 1-indexed. A page past the
// end of the feed has an empty Posts slice, it is not an error.
type Page struct {
	Number     int           `json:"number"`
	Size       int           `json:"size"`
	Total      int64         `json:"total"`
	TotalPages int           `json:"total_pages"`
	Posts      []models.Post `json:"posts"`
}

// GlobalFeed returns every post, newest first.
func (s *Store) GlobalFeed(page int) (*Page, error) {
	return s.paginate(s.db.Model(&models.Post{}), page)
}

// GroupFeed returns the posts filed under the group with the given slug.
// An unknown slug is ErrNotFound, not an empty feed.
func (s *Store) GroupFeed(slug string, page int) (*models.Group, *Page, error) {
	group, err := s.GroupBySlug(slug)
	if err != nil {
		return nil, nil, err
	}
	feed, err := s.paginate(s.db.Model(&models.Post{}).Where("group_id = ?", group.ID), page)
	if err != nil {
		return nil, nil, err
	}
	return group, feed, nil
}

// AuthorFeed returns the posts written by the given username.
// An unknown username is ErrNotFound.
func (s *Store) AuthorFeed(username string, page int) (*models.User, *Page, error) {
	author, err := s.UserByUsername(username)
	if err != nil {
		return nil, nil, err
	}
	feed, err := s.paginate(s.db.Model(&models.Post{}).Where("author_id = ?", author.ID), page)
	if err != nil {
		return nil, nil, err
	}
	return author, feed, nil
}

// FollowFeed returns the posts of every author the viewer follows. A viewer
// who follows nobody gets an empty feed, never an error.
func (s *Store) FollowFeed(viewerID uint, page int) (*Page, error) {
	followed := s.db.Model(&models.Follow{}).Select("author_id").Where("user_id = ?", viewerID)
	return s.paginate(s.db.Model(&models.Post{}).Where("author_id IN (?)", followed), page)
}

func (s *Store) paginate(query *gorm.DB, page int) (*Page, error) {
	if page < 1 {
		page = 1
	}
	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, err
	}
	posts := make([]models.Post, 0, PageSize)
	if err := query.Session(&gorm.Session{}).Preload("Author").Preload("Group").
		Order("pub_date DESC, id DESC").
		Offset((page - 1) * PageSize).
		Limit(PageSize).
		Find(&posts).Error; err != nil {
		return nil, err
	}
	return &Page{
		Number:     page,
		Size:       PageSize,
		Total:      total,
		TotalPages: int((total + PageSize - 1) / PageSize),
		Posts:      posts,
	}, nil
}
