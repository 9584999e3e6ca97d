package users

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"yatube/auth"
	"yatube/forms"
	"yatube/models"
	"yatube/templates"
)

const badCredentials = "Please enter a correct username and password. Note that both fields may be case-sensitive."

var ErrUsernameTaken = errors.New("username already taken")

type UsersModule struct {
	db     *gorm.DB
	logger *zap.Logger
}

func NewUsersModule(db *gorm.DB, logger *zap.Logger) *UsersModule {
	return &UsersModule{db: db, logger: logger}
}

func (u *UsersModule) RegisterRoutes(router *gin.Engine) {
	accounts := router.Group("/auth")
	{
		accounts.GET("/signup/", auth.Public(u.signupPage))
		accounts.POST("/signup/", auth.Public(u.signupPost))
		accounts.GET("/login/", auth.Public(u.loginPage))
		accounts.POST("/login/", auth.Public(u.loginPost))
		accounts.GET("/logout/", auth.Public(u.logout))
	}
}

// Register creates an account. The password is stored only as a bcrypt hash.
func (u *UsersModule) Register(form forms.SignupForm) (*models.User, error) {
	var existing int64
	if err := u.db.Model(&models.User{}).Where("username = ?", form.Username).Count(&existing).Error; err != nil {
		return nil, fmt.Errorf("check username: %w", err)
	}
	if existing > 0 {
		return nil, ErrUsernameTaken
	}

	hash, err := auth.HashPassword(form.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := models.User{
		Username:     form.Username,
		Email:        form.Email,
		PasswordHash: hash,
	}
	if err := u.db.Create(&user).Error; err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	return &user, nil
}

// Authenticate returns the user matching the credentials, or nil.
func (u *UsersModule) Authenticate(username, password string) (*models.User, error) {
	var user models.User
	err := u.db.Where("username = ?", username).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	if !auth.CheckPasswordHash(password, user.PasswordHash) {
		return nil, nil
	}
	return &user, nil
}

func (u *UsersModule) signupPage(c *gin.Context, viewer *models.User) {
	if viewer != nil {
		c.Redirect(http.StatusFound, "/")
		return
	}

	c.HTML(http.StatusOK, "signup.html", gin.H{
		"title": "Sign up",
		"form":  forms.SignupForm{},
	})
}

func (u *UsersModule) signupPost(c *gin.Context, viewer *models.User) {
	var form forms.SignupForm
	if err := forms.Bind(c, &form); err != nil {
		u.renderSignup(c, viewer, form, forms.Messages(err))
		return
	}

	user, err := u.Register(form)
	if errors.Is(err, ErrUsernameTaken) {
		u.renderSignup(c, viewer, form, map[string]string{
			"username": "A user with that username already exists.",
		})
		return
	}
	if err != nil {
		u.logger.Error("signup failed", zap.String("username", form.Username), zap.Error(err))
		templates.ServerError(c, viewer)
		return
	}

	if err := auth.Login(c, user); err != nil {
		u.logger.Error("could not start session", zap.Error(err))
	}
	u.logger.Info("user signed up", zap.String("username", user.Username))
	c.Redirect(http.StatusFound, "/")
}

func (u *UsersModule) renderSignup(c *gin.Context, viewer *models.User, form forms.SignupForm, errs map[string]string) {
	if errs == nil {
		errs = map[string]string{"username": "Enter a valid value."}
	}
	// passwords are never echoed back
	form.Password = ""
	form.PasswordConfirm = ""

	c.HTML(http.StatusBadRequest, "signup.html", gin.H{
		"title":  "Sign up",
		"viewer": viewer,
		"form":   form,
		"errors": errs,
	})
}

func (u *UsersModule) loginPage(c *gin.Context, viewer *models.User) {
	next := c.Query("next")
	if viewer != nil {
		c.Redirect(http.StatusFound, auth.SafeNext(next))
		return
	}

	c.HTML(http.StatusOK, "login.html", gin.H{
		"title": "Log in",
		"next":  next,
	})
}

func (u *UsersModule) loginPost(c *gin.Context, viewer *models.User) {
	next := c.PostForm("next")

	var form forms.LoginForm
	if err := forms.Bind(c, &form); err != nil {
		u.renderLoginError(c, form.Username, next)
		return
	}

	user, err := u.Authenticate(form.Username, form.Password)
	if err != nil {
		u.logger.Error("login failed", zap.String("username", form.Username), zap.Error(err))
		templates.ServerError(c, viewer)
		return
	}
	if user == nil {
		u.renderLoginError(c, form.Username, next)
		return
	}

	if err := auth.Login(c, user); err != nil {
		u.logger.Error("could not start session", zap.Error(err))
		templates.ServerError(c, viewer)
		return
	}
	c.Redirect(http.StatusFound, auth.SafeNext(next))
}

func (u *UsersModule) renderLoginError(c *gin.Context, username, next string) {
	c.HTML(http.StatusUnauthorized, "login.html", gin.H{
		"title":    "Log in",
		"error":    badCredentials,
		"username": username,
		"next":     next,
	})
}

func (u *UsersModule) logout(c *gin.Context, viewer *models.User) {
	if err := auth.Logout(c); err != nil {
		u.logger.Warn("could not clear session", zap.Error(err))
	}
	c.Redirect(http.StatusFound, "/")
}
