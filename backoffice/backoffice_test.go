package backoffice

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"yatube/auth"
	"yatube/common"
	"yatube/config"
	"yatube/database"
	"yatube/forms"
	"yatube/models"
	"yatube/templates"
)

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := common.ConnectDb(&config.Config{DBDriver: "sqlite", DatabaseDSN: ":memory:"}, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, database.RunMigrations(db, zap.NewNop()))
	return db
}

func setupTestRouter(t *testing.T, db *gorm.DB) *gin.Engine {
	gin.SetMode(gin.TestMode)
	tmpl, err := templates.Load()
	require.NoError(t, err)

	router := gin.New()
	router.SetHTMLTemplate(tmpl)
	router.Use(sessions.Sessions("test-session", cookie.NewStore([]byte("secret"))))
	router.Use(auth.LoadViewer(db))
	router.GET("/test-login/:username", func(c *gin.Context) {
		var user models.User
		if err := db.Where("username = ?", c.Param("username")).First(&user).Error; err != nil {
			c.Status(http.StatusNotFound)
			return
		}
		_ = auth.Login(c, &user)
		c.Status(http.StatusNoContent)
	})

	NewBackofficeModule(db, []string{"admin"}, zap.NewNop()).RegisterRoutes(router)
	return router
}

func send(router *gin.Engine, method, path string, form url.Values, cookies []*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(form.Encode()))
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	for _, ck := range cookies {
		req.AddCookie(ck)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func loginAs(t *testing.T, db *gorm.DB, router *gin.Engine, username string) []*http.Cookie {
	require.NoError(t, db.Create(&models.User{Username: username, PasswordHash: "hash"}).Error)
	w := send(router, http.MethodGet, "/test-login/"+username, nil, nil)
	require.Equal(t, http.StatusNoContent, w.Code)
	return w.Result().Cookies()
}

func TestAccessControl(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(t, db)

	w := send(router, http.MethodGet, "/backoffice/groups/", nil, nil)
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/auth/login/?next=%2Fbackoffice%2Fgroups%2F", w.Header().Get("Location"))

	w = send(router, http.MethodGet, "/backoffice/groups/", nil, loginAs(t, db, router, "leo"))
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = send(router, http.MethodGet, "/backoffice/groups/", nil, loginAs(t, db, router, "admin"))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCreateAndListGroups(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(t, db)
	cookies := loginAs(t, db, router, "admin")

	w := send(router, http.MethodPost, "/backoffice/groups/", url.Values{
		"title":       {"Cats"},
		"slug":        {"cats"},
		"description": {"All about cats"},
	}, cookies)
	require.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/backoffice/groups/", w.Header().Get("Location"))

	w = send(router, http.MethodPost, "/backoffice/groups/", url.Values{
		"title":       {"More cats"},
		"slug":        {"cats"},
		"description": {"again"},
	}, cookies)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Group with this Slug already exists.")

	w = send(router, http.MethodGet, "/backoffice/groups/", nil, cookies)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "/backoffice/groups/cats/delete/")
}

func TestListGroups_CountsPosts(t *testing.T) {
	db := setupTestDB(t)
	author := models.User{Username: "leo", PasswordHash: "hash"}
	require.NoError(t, db.Create(&author).Error)

	cats, err := CreateGroup(db, forms.GroupForm{Title: "Cats", Slug: "cats", Description: "d"})
	require.NoError(t, err)
	_, err = CreateGroup(db, forms.GroupForm{Title: "Dogs", Slug: "dogs", Description: "d"})
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		post := models.Post{Text: "meow", AuthorID: author.ID, GroupID: &cats.ID}
		require.NoError(t, db.Omit(clause.Associations).Create(&post).Error)
	}

	groups, err := ListGroups(db)
	require.NoError(t, err)
	require.Len(t, groups, 2)
	assert.Equal(t, "cats", groups[0].Group.Slug)
	assert.Equal(t, int64(3), groups[0].PostCount)
	assert.Equal(t, int64(0), groups[1].PostCount)
}

func TestCreateGroup_Validation(t *testing.T) {
	db := setupTestDB(t)

	_, err := CreateGroup(db, forms.GroupForm{Title: "Cats", Slug: "not a slug", Description: "d"})
	assert.Contains(t, forms.Messages(err), "slug")

	_, err = CreateGroup(db, forms.GroupForm{Title: "  ", Slug: "cats", Description: "d"})
	assert.Contains(t, forms.Messages(err), "title")
}

func TestDeleteGroup_KeepsPosts(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(t, db)
	cookies := loginAs(t, db, router, "admin")

	cats, err := CreateGroup(db, forms.GroupForm{Title: "Cats", Slug: "cats", Description: "d"})
	require.NoError(t, err)
	post := models.Post{Text: "meow", AuthorID: 1, GroupID: &cats.ID}
	require.NoError(t, db.Omit(clause.Associations).Create(&post).Error)

	w := send(router, http.MethodPost, "/backoffice/groups/cats/delete/", url.Values{}, cookies)
	assert.Equal(t, http.StatusFound, w.Code)

	var stored models.Post
	require.NoError(t, db.First(&stored, post.ID).Error)
	assert.Nil(t, stored.GroupID)

	w = send(router, http.MethodPost, "/backoffice/groups/cats/delete/", url.Values{}, cookies)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.ErrorIs(t, DeleteGroup(db, "cats"), ErrGroupNotFound)
}
