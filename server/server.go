package server

import (
	"fmt"
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"yatube/auth"
	"yatube/backoffice"
	"yatube/config"
	"yatube/logging"
	"yatube/media"
	"yatube/posts"
	"yatube/site"
	"yatube/templates"
	"yatube/users"
)

const sessionName = "yatube-session"

// New assembles the engine with every module mounted.
func New(cfg *config.Config, db *gorm.DB, logger *zap.Logger) (*gin.Engine, error) {
	if err := cfg.RequireSessionSecret(); err != nil {
		return nil, err
	}
	if cfg.GinMode != "" {
		gin.SetMode(cfg.GinMode)
	}

	router := gin.New()
	router.Use(logging.Middleware(logger))

	store := cookie.NewStore([]byte(cfg.SessionSecret))
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   86400 * 14,
		HttpOnly: true,
		Secure:   false,
		SameSite: http.SameSiteLaxMode,
	})
	router.Use(sessions.Sessions(sessionName, store))
	router.Use(auth.LoadViewer(db))

	tmpl, err := templates.Load()
	if err != nil {
		return nil, fmt.Errorf("load templates: %w", err)
	}
	router.SetHTMLTemplate(tmpl)

	mediaStore := media.NewStore(cfg.MediaRoot)
	router.Static(media.URLPrefix, mediaStore.Root())

	postsModule := posts.NewPostsModule(posts.NewService(db, mediaStore, logger), logger)
	postsModule.RegisterRoutes(router)

	usersModule := users.NewUsersModule(db, logger)
	usersModule.RegisterRoutes(router)

	backofficeModule := backoffice.NewBackofficeModule(db, cfg.BackofficeUsers, logger)
	backofficeModule.RegisterRoutes(router)

	siteModule := site.NewSiteModule(db, cfg.Domain, logger)
	siteModule.RegisterRoutes(router)

	router.NoRoute(func(c *gin.Context) {
		templates.NotFound(c, auth.Viewer(c))
	})

	return router, nil
}
