package templates

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"yatube/models"
)

// Error renders the shared error page and stops the handler chain.
func Error(c *gin.Context, status int, viewer *models.User, title, message string) {
	c.HTML(status, "error.html", gin.H{
		"title":  title,
		"error":  message,
		"viewer": viewer,
	})
	c.Abort()
}

func NotFound(c *gin.Context, viewer *models.User) {
	Error(c, http.StatusNotFound, viewer, "Page not found", "The page you requested does not exist.")
}

func Forbidden(c *gin.Context, viewer *models.User) {
	Error(c, http.StatusForbidden, viewer, "Access denied", "You are not allowed to open this page.")
}

func ServerError(c *gin.Context, viewer *models.User) {
	Error(c, http.StatusInternalServerError, viewer, "Server error", "Something went wrong. Please try again later.")
}
