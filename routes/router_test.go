package routes_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/openink/quill/models"
	"github.com/openink/quill/routes"
	"github.com/openink/quill/testutil"
	"github.com/openink/quill/utils"
)

func setupRouter(t *testing.T) (*gin.Engine, *gorm.DB, *utils.MemoryPageCache) {
	t.Helper()
	testutil.LoadConfig(t)
	db := testutil.OpenTestDB(t)
	cache := utils.NewMemoryPageCache(time.Minute)
	return routes.SetupRouter(db, cache), db, cache
}

func do(r *gin.Engine, method, target, token string, body string, contentType string) *httptest.ResponseRecorder {
	var reader *strings.Reader
	if body != "" {
		reader = strings.NewReader(body)
	} else {
		reader = strings.NewReader("")
	}
	req := httptest.NewRequest(method, target, reader)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeData(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var envelope struct {
		Code    int            `json:"code"`
		Message string         `json:"message"`
		Data    map[string]any `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.Equal(t, 0, envelope.Code)
	return envelope.Data
}

func TestHealth(t *testing.T) {
	r, _, _ := setupRouter(t)
	w := do(r, http.MethodGet, "/health", "", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	data := decodeData(t, w)
	require.Equal(t, "ok", data["status"])
}

func TestIndexPagination(t *testing.T) {
	r, db, _ := setupRouter(t)
	author := testutil.CreateUser(t, db, "author")
	for i := 0; i < 13; i++ {
		testutil.CreatePost(t, db, author, "post "+strconv.Itoa(i), nil)
	}

	w := do(r, http.MethodGet, "/", "", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	page := decodeData(t, w)["page_obj"].(map[string]any)
	require.Len(t, page["posts"], 10)
	require.EqualValues(t, 13, page["total"])
	require.EqualValues(t, 2, page["total_pages"])

	w = do(r, http.MethodGet, "/?page=2", "", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	page = decodeData(t, w)["page_obj"].(map[string]any)
	require.Len(t, page["posts"], 3)
}

func TestGroupFeedUnknownSlug(t *testing.T) {
	r, _, _ := setupRouter(t)
	w := do(r, http.MethodGet, "/group/missing/", "", "", "")
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestAnonymousGatedActionsRedirectToLogin(t *testing.T) {
	r, db, _ := setupRouter(t)
	author := testutil.CreateUser(t, db, "author")
	post := testutil.CreatePost(t, db, author, "a post", nil)
	target := "/posts/" + strconv.Itoa(int(post.ID)) + "/comment/"

	w := do(r, http.MethodPost, target, "", "text=hi", "application/x-www-form-urlencoded")
	require.Equal(t, http.StatusFound, w.Code)
	require.Equal(t, "/auth/login/?next="+target, w.Header().Get("Location"))

	var comments int64
	require.NoError(t, db.Model(&models.Comment{}).Count(&comments).Error)
	require.EqualValues(t, 0, comments, "the redirect writes nothing")

	w = do(r, http.MethodGet, "/create/", "", "", "")
	require.Equal(t, http.StatusFound, w.Code)
	require.Equal(t, "/auth/login/?next=/create/", w.Header().Get("Location"))
}

func TestLoginFormEchoesNext(t *testing.T) {
	r, _, _ := setupRouter(t)
	w := do(r, http.MethodGet, "/auth/login/?next="+url.QueryEscape("/create/"), "", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	data := decodeData(t, w)
	require.Equal(t, "/create/", data["next"])
}

func TestLoginIssuesToken(t *testing.T) {
	r, db, _ := setupRouter(t)
	testutil.CreateUser(t, db, "alice")

	w := do(r, http.MethodPost, "/auth/login/", "", `{"username":"alice","password":"password123"}`, "application/json")
	require.Equal(t, http.StatusOK, w.Code)
	data := decodeData(t, w)
	require.NotEmpty(t, data["token"])
	require.Equal(t, "/", data["next"])

	w = do(r, http.MethodPost, "/auth/login/", "", `{"username":"alice","password":"wrong-password"}`, "application/json")
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestCreatePostAndDuplicateRejected(t *testing.T) {
	r, db, _ := setupRouter(t)
	alice := testutil.CreateUser(t, db, "alice")
	token := testutil.AuthToken(t, alice)

	w := do(r, http.MethodPost, "/create/", token, `{"text":"my first post"}`, "application/json")
	require.Equal(t, http.StatusOK, w.Code)
	post := decodeData(t, w)["post"].(map[string]any)
	require.Equal(t, "my first post", post["text"])

	w = do(r, http.MethodPost, "/create/", token, `{"text":"my first post"}`, "application/json")
	require.Equal(t, http.StatusBadRequest, w.Code)

	var count int64
	require.NoError(t, db.Model(&models.Post{}).Count(&count).Error)
	require.EqualValues(t, 1, count)
}

func TestCachedIndexStaysStaleUntilCleared(t *testing.T) {
	r, db, cache := setupRouter(t)
	author := testutil.CreateUser(t, db, "author")
	testutil.CreatePost(t, db, author, "first post", nil)

	first := do(r, http.MethodGet, "/", "", "", "")
	require.Equal(t, http.StatusOK, first.Code)

	testutil.CreatePost(t, db, author, "second post", nil)

	cached := do(r, http.MethodGet, "/", "", "", "")
	require.Equal(t, http.StatusOK, cached.Code)
	require.Equal(t, first.Body.String(), cached.Body.String(), "new post stays invisible inside the TTL")

	cache.Clear()

	fresh := do(r, http.MethodGet, "/", "", "", "")
	require.Equal(t, http.StatusOK, fresh.Code)
	require.NotEqual(t, first.Body.String(), fresh.Body.String())
	require.Contains(t, fresh.Body.String(), "second post")
}

func TestAdminCacheClearEndpoint(t *testing.T) {
	r, db, _ := setupRouter(t)
	admin := testutil.CreateUser(t, db, "admin")
	adminToken := testutil.AuthToken(t, admin)
	outsider := testutil.CreateUser(t, db, "outsider")
	testutil.CreatePost(t, db, admin, "first post", nil)

	first := do(r, http.MethodGet, "/", "", "", "")
	require.Equal(t, http.StatusOK, first.Code)
	testutil.CreatePost(t, db, admin, "second post", nil)

	w := do(r, http.MethodPost, "/admin/cache/clear/", testutil.AuthToken(t, outsider), "", "")
	require.Equal(t, http.StatusForbidden, w.Code)

	w = do(r, http.MethodPost, "/admin/cache/clear/", adminToken, "", "")
	require.Equal(t, http.StatusOK, w.Code)

	fresh := do(r, http.MethodGet, "/", "", "", "")
	require.Contains(t, fresh.Body.String(), "second post")
}

func TestNonOwnerEditIsReadOnly(t *testing.T) {
	r, db, _ := setupRouter(t)
	owner := testutil.CreateUser(t, db, "owner")
	other := testutil.CreateUser(t, db, "other")
	post := testutil.CreatePost(t, db, owner, "original text", nil)
	target := "/posts/" + strconv.Itoa(int(post.ID)) + "/edit/"
	otherToken := testutil.AuthToken(t, other)

	w := do(r, http.MethodGet, target, otherToken, "", "")
	require.Equal(t, http.StatusOK, w.Code)
	data := decodeData(t, w)
	require.Equal(t, true, data["read_only"])

	w = do(r, http.MethodPost, target, otherToken, `{"text":"hijacked"}`, "application/json")
	require.Equal(t, http.StatusOK, w.Code)
	data = decodeData(t, w)
	require.Equal(t, true, data["read_only"])

	var reloaded models.Post
	require.NoError(t, db.First(&reloaded, post.ID).Error)
	require.Equal(t, "original text", reloaded.Text, "a non-owner submission changes nothing")
}

func TestOwnerEdit(t *testing.T) {
	r, db, _ := setupRouter(t)
	owner := testutil.CreateUser(t, db, "owner")
	post := testutil.CreatePost(t, db, owner, "original text", nil)
	target := "/posts/" + strconv.Itoa(int(post.ID)) + "/edit/"
	token := testutil.AuthToken(t, owner)

	w := do(r, http.MethodGet, target, token, "", "")
	require.Equal(t, http.StatusOK, w.Code)
	data := decodeData(t, w)
	require.Equal(t, false, data["read_only"])
	require.NotNil(t, data["form"])

	w = do(r, http.MethodPost, target, token, `{"text":"rewritten"}`, "application/json")
	require.Equal(t, http.StatusOK, w.Code)

	var reloaded models.Post
	require.NoError(t, db.First(&reloaded, post.ID).Error)
	require.Equal(t, "rewritten", reloaded.Text)
}

func TestAuthenticatedCommentRedirectsToPost(t *testing.T) {
	r, db, _ := setupRouter(t)
	author := testutil.CreateUser(t, db, "author")
	reader := testutil.CreateUser(t, db, "reader")
	post := testutil.CreatePost(t, db, author, "a post", nil)
	detail := "/posts/" + strconv.Itoa(int(post.ID)) + "/"
	token := testutil.AuthToken(t, reader)

	w := do(r, http.MethodPost, detail+"comment/", token, "text=well+said", "application/x-www-form-urlencoded")
	require.Equal(t, http.StatusFound, w.Code)
	require.Equal(t, detail, w.Header().Get("Location"))

	w = do(r, http.MethodGet, detail, "", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	comments := decodeData(t, w)["comments"].([]any)
	require.Len(t, comments, 1)
}

func TestFollowEndpoints(t *testing.T) {
	r, db, _ := setupRouter(t)
	alice := testutil.CreateUser(t, db, "alice")
	bob := testutil.CreateUser(t, db, "bob")
	token := testutil.AuthToken(t, alice)

	w := do(r, http.MethodGet, "/profile/bob/follow", token, "", "")
	require.Equal(t, http.StatusFound, w.Code)
	require.Equal(t, "/profile/bob/", w.Header().Get("Location"))

	// Following again is a no-op, not an error.
	w = do(r, http.MethodGet, "/profile/bob/follow", token, "", "")
	require.Equal(t, http.StatusFound, w.Code)
	var follows int64
	require.NoError(t, db.Model(&models.Follow{}).Count(&follows).Error)
	require.EqualValues(t, 1, follows)

	// The profile reports the relation to its viewer.
	w = do(r, http.MethodGet, "/profile/bob/", token, "", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, true, decodeData(t, w)["following"])

	// Bob's posts are in alice's follow feed.
	testutil.CreatePost(t, db, bob, "from bob", nil)
	w = do(r, http.MethodGet, "/follow/", token, "", "")
	require.Equal(t, http.StatusOK, w.Code)
	page := decodeData(t, w)["page_obj"].(map[string]any)
	require.Len(t, page["posts"], 1)

	w = do(r, http.MethodGet, "/profile/bob/unfollow", token, "", "")
	require.Equal(t, http.StatusFound, w.Code)
	require.NoError(t, db.Model(&models.Follow{}).Count(&follows).Error)
	require.EqualValues(t, 0, follows)

	w = do(r, http.MethodGet, "/profile/ghost/follow", token, "", "")
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestDeletePostOwnership(t *testing.T) {
	r, db, _ := setupRouter(t)
	owner := testutil.CreateUser(t, db, "owner")
	other := testutil.CreateUser(t, db, "other")
	post := testutil.CreatePost(t, db, owner, "short lived", nil)
	target := "/posts/" + strconv.Itoa(int(post.ID)) + "/"

	w := do(r, http.MethodDelete, target, testutil.AuthToken(t, other), "", "")
	require.Equal(t, http.StatusForbidden, w.Code)

	w = do(r, http.MethodDelete, target, testutil.AuthToken(t, owner), "", "")
	require.Equal(t, http.StatusOK, w.Code)

	w = do(r, http.MethodGet, target, "", "", "")
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestNoRoute(t *testing.T) {
	r, _, _ := setupRouter(t)
	w := do(r, http.MethodGet, "/no/such/page/", "", "", "")
	require.Equal(t, http.StatusNotFound, w.Code)
	require.Contains(t, w.Body.String(), "page not found")
}
