// Package auth resolves the current viewer from the session and guards
// routes that need one.
package auth

import (
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"yatube/models"
)

const (
	SessionKey = "user_id"
	LoginURL   = "/auth/login/"

	viewerKey = "viewer"
)

// PasswordCost is the bcrypt cost for new hashes.
var PasswordCost = 12

// HandlerFunc is a gin handler that receives the current viewer explicitly.
// viewer is nil for anonymous requests.
type HandlerFunc func(c *gin.Context, viewer *models.User)

// LoadViewer reads the user id stored in the session and attaches the user
// to the request. Sessions pointing at deleted users are cleared.
func LoadViewer(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		session := sessions.Default(c)
		id, ok := sessionUserID(session.Get(SessionKey))
		if !ok {
			c.Next()
			return
		}

		var user models.User
		if err := db.WithContext(c.Request.Context()).First(&user, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				session.Delete(SessionKey)
				_ = session.Save()
			} else {
				_ = c.Error(err)
			}
			c.Next()
			return
		}

		c.Set(viewerKey, &user)
		c.Next()
	}
}

func sessionUserID(v interface{}) (uint, bool) {
	switch id := v.(type) {
	case uint:
		return id, true
	case int:
		return uint(id), id > 0
	case int64:
		return uint(id), id > 0
	default:
		return 0, false
	}
}

// Viewer returns the user loaded by LoadViewer, or nil.
func Viewer(c *gin.Context) *models.User {
	v, ok := c.Get(viewerKey)
	if !ok {
		return nil
	}
	user, _ := v.(*models.User)
	return user
}

// Public passes the viewer, possibly nil, to h.
func Public(h HandlerFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		h(c, Viewer(c))
	}
}

// RequireAuth redirects anonymous requests to the login page and passes the
// authenticated viewer to h otherwise.
func RequireAuth(h HandlerFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		viewer := Viewer(c)
		if viewer == nil {
			c.Redirect(http.StatusFound, LoginRedirect(c.Request.URL.RequestURI()))
			c.Abort()
			return
		}
		h(c, viewer)
	}
}

func LoginRedirect(next string) string {
	return LoginURL + "?next=" + url.QueryEscape(next)
}

// SafeNext keeps only local absolute paths, falling back to "/".
func SafeNext(next string) string {
	if !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return "/"
	}
	return next
}

func Login(c *gin.Context, user *models.User) error {
	session := sessions.Default(c)
	session.Clear()
	session.Set(SessionKey, user.ID)
	return session.Save()
}

func Logout(c *gin.Context) error {
	session := sessions.Default(c)
	session.Clear()
	return session.Save()
}

func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), PasswordCost)
	return string(bytes), err
}

func CheckPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}
