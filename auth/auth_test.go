package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"yatube/common"
	"yatube/config"
	"yatube/database"
	"yatube/models"
)

func init() {
	PasswordCost = bcrypt.MinCost
}

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := common.ConnectDb(&config.Config{DBDriver: "sqlite", DatabaseDSN: ":memory:"}, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, database.RunMigrations(db, zap.NewNop()))
	return db
}

func setupTestRouter(db *gorm.DB) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(sessions.Sessions("test-session", cookie.NewStore([]byte("secret"))))
	router.Use(LoadViewer(db))

	router.GET("/login/:id", func(c *gin.Context) {
		var user models.User
		if err := db.First(&user, c.Param("id")).Error; err != nil {
			c.Status(http.StatusNotFound)
			return
		}
		_ = Login(c, &user)
		c.Status(http.StatusNoContent)
	})
	router.GET("/whoami", Public(func(c *gin.Context, viewer *models.User) {
		if viewer == nil {
			c.String(http.StatusOK, "anonymous")
			return
		}
		c.String(http.StatusOK, viewer.Username)
	}))
	router.GET("/private", RequireAuth(func(c *gin.Context, viewer *models.User) {
		c.String(http.StatusOK, "hello "+viewer.Username)
	}))
	return router
}

func do(router *gin.Engine, path string, cookies []*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for _, ck := range cookies {
		req.AddCookie(ck)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestRequireAuth_RedirectsAnonymous(t *testing.T) {
	router := setupTestRouter(setupTestDB(t))

	w := do(router, "/private?x=1", nil)

	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/auth/login/?next=%2Fprivate%3Fx%3D1", w.Header().Get("Location"))
}

func TestLoadViewer_FromSession(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db)
	user := &models.User{Username: "leo", PasswordHash: "x"}
	require.NoError(t, db.Create(user).Error)

	login := do(router, "/login/1", nil)
	require.Equal(t, http.StatusNoContent, login.Code)
	cookies := login.Result().Cookies()

	assert.Equal(t, "leo", do(router, "/whoami", cookies).Body.String())
	assert.Equal(t, "hello leo", do(router, "/private", cookies).Body.String())
	assert.Equal(t, "anonymous", do(router, "/whoami", nil).Body.String())
}

func TestLoadViewer_DeletedUserIsAnonymous(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db)
	user := &models.User{Username: "gone", PasswordHash: "x"}
	require.NoError(t, db.Create(user).Error)

	cookies := do(router, "/login/1", nil).Result().Cookies()
	require.NoError(t, db.Delete(user).Error)

	assert.Equal(t, "anonymous", do(router, "/whoami", cookies).Body.String())
}

func TestSafeNext(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"", "/"},
		{"/create/", "/create/"},
		{"https://evil.example/", "/"},
		{"//evil.example/", "/"},
		{"/\\evil.example", "/"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, SafeNext(tt.input))
		})
	}
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("testpassword")
	require.NoError(t, err)

	assert.NotEqual(t, "testpassword", hash)
	assert.True(t, CheckPasswordHash("testpassword", hash))
	assert.False(t, CheckPasswordHash("wrongpassword", hash))
}
