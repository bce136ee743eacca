package store_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/openink/quill/models"
	"github.com/openink/quill/store"
	"github.com/openink/quill/testutil"
)

func seedPosts(t *testing.T, db *gorm.DB, author *models.User, group *models.Group, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		testutil.CreatePost(t, db, author, fmt.Sprintf("post number %d", i), group)
	}
}

func TestGlobalFeedPagination(t *testing.T) {
	db := testutil.OpenTestDB(t)
	st := store.New(db)
	author := testutil.CreateUser(t, db, "author")
	seedPosts(t, db, author, nil, 13)

	page1, err := st.GlobalFeed(1)
	require.NoError(t, err)
	require.Len(t, page1.Posts, store.PageSize)
	require.EqualValues(t, 13, page1.Total)
	require.Equal(t, 2, page1.TotalPages)

	page2, err := st.GlobalFeed(2)
	require.NoError(t, err)
	require.Len(t, page2.Posts, 3)
}

func TestGlobalFeedNewestFirst(t *testing.T) {
	db := testutil.OpenTestDB(t)
	st := store.New(db)
	author := testutil.CreateUser(t, db, "author")
	seedPosts(t, db, author, nil, 3)

	page, err := st.GlobalFeed(1)
	require.NoError(t, err)
	require.Len(t, page.Posts, 3)
	require.Equal(t, "post number 2", page.Posts[0].Text)
	require.Equal(t, "post number 0", page.Posts[2].Text)
	require.Equal(t, "author", page.Posts[0].Author.Username, "author is preloaded")
}

func TestGlobalFeedPageBeyondRange(t *testing.T) {
	db := testutil.OpenTestDB(t)
	st := store.New(db)
	author := testutil.CreateUser(t, db, "author")
	seedPosts(t, db, author, nil, 3)

	page, err := st.GlobalFeed(5)
	require.NoError(t, err)
	require.Empty(t, page.Posts)
	require.EqualValues(t, 3, page.Total)
}

func TestGlobalFeedPageClamping(t *testing.T) {
	db := testutil.OpenTestDB(t)
	st := store.New(db)
	author := testutil.CreateUser(t, db, "author")
	seedPosts(t, db, author, nil, 2)

	page, err := st.GlobalFeed(0)
	require.NoError(t, err)
	require.Equal(t, 1, page.Number)
	require.Len(t, page.Posts, 2)
}

func TestGroupFeedScoping(t *testing.T) {
	db := testutil.OpenTestDB(t)
	st := store.New(db)
	author := testutil.CreateUser(t, db, "author")
	cats := testutil.CreateGroup(t, db, "Cats", "cats")
	dogs := testutil.CreateGroup(t, db, "Dogs", "dogs")
	testutil.CreatePost(t, db, author, "a cat post", cats)
	testutil.CreatePost(t, db, author, "a dog post", dogs)
	testutil.CreatePost(t, db, author, "an ungrouped post", nil)

	group, page, err := st.GroupFeed("cats", 1)
	require.NoError(t, err)
	require.Equal(t, "Cats", group.Title)
	require.Len(t, page.Posts, 1)
	require.Equal(t, "a cat post", page.Posts[0].Text)
}

func TestGroupFeedUnknownSlug(t *testing.T) {
	db := testutil.OpenTestDB(t)
	st := store.New(db)

	_, _, err := st.GroupFeed("missing", 1)
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestAuthorFeed(t *testing.T) {
	db := testutil.OpenTestDB(t)
	st := store.New(db)
	alice := testutil.CreateUser(t, db, "alice")
	bob := testutil.CreateUser(t, db, "bob")
	testutil.CreatePost(t, db, alice, "by alice", nil)
	testutil.CreatePost(t, db, bob, "by bob", nil)

	user, page, err := st.AuthorFeed("alice", 1)
	require.NoError(t, err)
	require.Equal(t, "alice", user.Username)
	require.Len(t, page.Posts, 1)
	require.Equal(t, "by alice", page.Posts[0].Text)
}

func TestAuthorFeedUnknownUsername(t *testing.T) {
	db := testutil.OpenTestDB(t)
	st := store.New(db)

	_, _, err := st.AuthorFeed("ghost", 1)
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestFollowFeedComposition(t *testing.T) {
	db := testutil.OpenTestDB(t)
	st := store.New(db)
	reader := testutil.CreateUser(t, db, "reader")
	followed := testutil.CreateUser(t, db, "followed")
	stranger := testutil.CreateUser(t, db, "stranger")
	testutil.CreatePost(t, db, followed, "from followed", nil)
	testutil.CreatePost(t, db, stranger, "from stranger", nil)
	testutil.CreatePost(t, db, reader, "my own post", nil)
	require.NoError(t, st.Follow(reader.ID, followed.ID))

	page, err := st.FollowFeed(reader.ID, 1)
	require.NoError(t, err)
	require.Len(t, page.Posts, 1)
	require.Equal(t, "from followed", page.Posts[0].Text)
}

func TestFollowFeedEmptyWhenFollowingNobody(t *testing.T) {
	db := testutil.OpenTestDB(t)
	st := store.New(db)
	reader := testutil.CreateUser(t, db, "reader")
	other := testutil.CreateUser(t, db, "other")
	testutil.CreatePost(t, db, other, "unseen", nil)

	page, err := st.FollowFeed(reader.ID, 1)
	require.NoError(t, err)
	require.Empty(t, page.Posts)
	require.EqualValues(t, 0, page.Total)
}
