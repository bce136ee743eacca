package store_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/openink/quill/models"
	"github.com/openink/quill/store"
	"github.com/openink/quill/testutil"
)

func TestCreateUserDuplicateUsername(t *testing.T) {
	db := testutil.OpenTestDB(t)
	st := store.New(db)

	require.NoError(t, st.CreateUser(&models.User{Username: "leo"}))
	err := st.CreateUser(&models.User{Username: "leo"})
	require.ErrorIs(t, err, store.ErrConstraintViolation)

	var count int64
	require.NoError(t, db.Model(&models.User{}).Count(&count).Error)
	require.EqualValues(t, 1, count)
}

func TestCreatePostDuplicateTextSameAuthor(t *testing.T) {
	db := testutil.OpenTestDB(t)
	st := store.New(db)
	author := testutil.CreateUser(t, db, "author")
	other := testutil.CreateUser(t, db, "other")

	require.NoError(t, st.CreatePost(&models.Post{Text: "Hello", AuthorID: author.ID}))

	err := st.CreatePost(&models.Post{Text: "Hello", AuthorID: author.ID})
	require.ErrorIs(t, err, store.ErrConstraintViolation)

	var count int64
	require.NoError(t, db.Model(&models.Post{}).Count(&count).Error)
	require.EqualValues(t, 1, count, "the failed create must not write anything")

	// The same text by a different author is fine.
	require.NoError(t, st.CreatePost(&models.Post{Text: "Hello", AuthorID: other.ID}))
}

func TestUpdatePostKeepsUniquenessAndPubDate(t *testing.T) {
	db := testutil.OpenTestDB(t)
	st := store.New(db)
	author := testutil.CreateUser(t, db, "author")

	first := &models.Post{Text: "first", AuthorID: author.ID}
	require.NoError(t, st.CreatePost(first))
	second := &models.Post{Text: "second", AuthorID: author.ID}
	require.NoError(t, st.CreatePost(second))

	_, err := st.UpdatePost(second.ID, "first", nil, "")
	require.ErrorIs(t, err, store.ErrConstraintViolation)

	updated, err := st.UpdatePost(second.ID, "rewritten", nil, "")
	require.NoError(t, err)
	require.Equal(t, "rewritten", updated.Text)

	var reloaded models.Post
	require.NoError(t, db.First(&reloaded, second.ID).Error)
	require.Equal(t, "rewritten", reloaded.Text)
	require.Equal(t, second.PubDate.Unix(), reloaded.PubDate.Unix(), "pub_date is immutable")
}

func TestCreateGroupDuplicateSlug(t *testing.T) {
	db := testutil.OpenTestDB(t)
	st := store.New(db)

	require.NoError(t, st.CreateGroup(&models.Group{Title: "One", Slug: "shared"}))
	err := st.CreateGroup(&models.Group{Title: "Two", Slug: "shared"})
	require.ErrorIs(t, err, store.ErrConstraintViolation)
}

func TestDeleteGroupNullsPostReferences(t *testing.T) {
	db := testutil.OpenTestDB(t)
	st := store.New(db)
	author := testutil.CreateUser(t, db, "author")
	group := testutil.CreateGroup(t, db, "Test group", "test-slug")
	post := testutil.CreatePost(t, db, author, "grouped post", group)

	require.NoError(t, st.DeleteGroup("test-slug"))

	_, err := st.GroupBySlug("test-slug")
	require.ErrorIs(t, err, store.ErrNotFound)

	var survived models.Post
	require.NoError(t, db.First(&survived, post.ID).Error)
	require.Nil(t, survived.GroupID, "post survives with group cleared")
}

func TestDeleteGroupUnknownSlug(t *testing.T) {
	db := testutil.OpenTestDB(t)
	st := store.New(db)
	require.ErrorIs(t, st.DeleteGroup("nope"), store.ErrNotFound)
}

func TestDeletePostCascadesComments(t *testing.T) {
	db := testutil.OpenTestDB(t)
	st := store.New(db)
	author := testutil.CreateUser(t, db, "author")
	commenter := testutil.CreateUser(t, db, "commenter")
	post := testutil.CreatePost(t, db, author, "a post", nil)

	require.NoError(t, st.CreateComment(&models.Comment{PostID: post.ID, AuthorID: commenter.ID, Text: "nice"}))
	require.NoError(t, st.DeletePost(post.ID))

	var comments int64
	require.NoError(t, db.Model(&models.Comment{}).Count(&comments).Error)
	require.EqualValues(t, 0, comments)
}

func TestDeleteUserCascades(t *testing.T) {
	db := testutil.OpenTestDB(t)
	st := store.New(db)
	u1 := testutil.CreateUser(t, db, "u1")
	u2 := testutil.CreateUser(t, db, "u2")

	p1 := testutil.CreatePost(t, db, u1, "u1 post", nil)
	p2 := testutil.CreatePost(t, db, u2, "u2 post", nil)

	// u2 comments on u1's post, u1 comments on u2's post
	require.NoError(t, st.CreateComment(&models.Comment{PostID: p1.ID, AuthorID: u2.ID, Text: "from u2"}))
	require.NoError(t, st.CreateComment(&models.Comment{PostID: p2.ID, AuthorID: u1.ID, Text: "from u1"}))
	require.NoError(t, st.Follow(u1.ID, u2.ID))
	require.NoError(t, st.Follow(u2.ID, u1.ID))

	require.NoError(t, st.DeleteUser(u1.ID))

	var posts, comments, follows int64
	require.NoError(t, db.Model(&models.Post{}).Count(&posts).Error)
	require.NoError(t, db.Model(&models.Comment{}).Count(&comments).Error)
	require.NoError(t, db.Model(&models.Follow{}).Count(&follows).Error)
	require.EqualValues(t, 1, posts, "only u2's post survives")
	require.EqualValues(t, 0, comments, "comments on deleted posts and by the deleted user are gone")
	require.EqualValues(t, 0, follows, "both sides of u1's follows are gone")

	_, err := st.UserByID(u1.ID)
	require.ErrorIs(t, err, store.ErrNotFound)
	_, err = st.UserByID(u2.ID)
	require.NoError(t, err)
}

func TestCommentOnMissingPost(t *testing.T) {
	db := testutil.OpenTestDB(t)
	st := store.New(db)
	user := testutil.CreateUser(t, db, "user")

	err := st.CreateComment(&models.Comment{PostID: 9999, AuthorID: user.ID, Text: "into the void"})
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestFollowIdempotence(t *testing.T) {
	db := testutil.OpenTestDB(t)
	st := store.New(db)
	u1 := testutil.CreateUser(t, db, "u1")
	u2 := testutil.CreateUser(t, db, "u2")

	require.NoError(t, st.Follow(u1.ID, u2.ID))
	require.NoError(t, st.Follow(u1.ID, u2.ID))

	count, err := st.FollowCount()
	require.NoError(t, err)
	require.EqualValues(t, 1, count, "following twice yields one record")

	following, err := st.IsFollowing(u1.ID, u2.ID)
	require.NoError(t, err)
	require.True(t, following)
}

func TestSelfFollowIsNoOp(t *testing.T) {
	db := testutil.OpenTestDB(t)
	st := store.New(db)
	u1 := testutil.CreateUser(t, db, "u1")

	require.NoError(t, st.Follow(u1.ID, u1.ID))

	count, err := st.FollowCount()
	require.NoError(t, err)
	require.EqualValues(t, 0, count)
}

func TestUnfollowNotFollowedIsNoOp(t *testing.T) {
	db := testutil.OpenTestDB(t)
	st := store.New(db)
	u1 := testutil.CreateUser(t, db, "u1")
	u2 := testutil.CreateUser(t, db, "u2")
	u3 := testutil.CreateUser(t, db, "u3")
	require.NoError(t, st.Follow(u1.ID, u2.ID))

	require.NoError(t, st.Unfollow(u3.ID, u2.ID))

	count, err := st.FollowCount()
	require.NoError(t, err)
	require.EqualValues(t, 1, count, "record count unchanged")
}

func TestFollowUnknownAuthor(t *testing.T) {
	db := testutil.OpenTestDB(t)
	st := store.New(db)
	u1 := testutil.CreateUser(t, db, "u1")

	require.ErrorIs(t, st.Follow(u1.ID, 9999), store.ErrNotFound)
}
