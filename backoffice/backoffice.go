package backoffice

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
	"yatube/paginator"
	"yatube/templates"
)

var (
	ErrSlugTaken     = errors.New("group slug already taken")
	ErrGroupNotFound = errors.New("group not found")
)

type GroupWithStats struct {
	Group     models.Group
	PostCount int64
}

// ListGroups returns every group with the number of posts tagged to it.
func ListGroups(db *gorm.DB) ([]GroupWithStats, error) {
	var groups []models.Group
	if err := db.Order("title ASC").Find(&groups).Error; err != nil {
		return nil, fmt.Errorf("list groups: %w", err)
	}

	var counts []struct {
		GroupID uint
		N       int64
	}
	err := db.Model(&models.Post{}).
		Select("group_id, count(*) AS n").
		Where("group_id IS NOT NULL").
		Group("group_id").
		Scan(&counts).Error
	if err != nil {
		return nil, fmt.Errorf("count group posts: %w", err)
	}

	byGroup := make(map[uint]int64, len(counts))
	for _, row := range counts {
		byGroup[row.GroupID] = row.N
	}

	out := make([]GroupWithStats, len(groups))
	for i, g := range groups {
		out[i] = GroupWithStats{Group: g, PostCount: byGroup[g.ID]}
	}
	return out, nil
}

// CreateGroup validates form and stores the group. Slugs are unique.
func CreateGroup(db *gorm.DB, form forms.GroupForm) (*models.Group, error) {
	if err := forms.Validate(&form); err != nil {
		return nil, err
	}

	var existing int64
	if err := db.Model(&models.Group{}).Where("slug = ?", form.Slug).Count(&existing).Error; err != nil {
		return nil, fmt.Errorf("check slug: %w", err)
	}
	if existing > 0 {
		return nil, ErrSlugTaken
	}

	group := models.Group{
		Title:       form.Title,
		Slug:        form.Slug,
		Description: form.Description,
	}
	if err := db.Create(&group).Error; err != nil {
		return nil, fmt.Errorf("create group: %w", err)
	}
	return &group, nil
}

// DeleteGroup removes the group; its posts stay with no group.
func DeleteGroup(db *gorm.DB, slug string) error {
	res := db.Where("slug = ?", slug).Delete(&models.Group{})
	if res.Error != nil {
		return fmt.Errorf("delete group %s: %w", slug, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrGroupNotFound
	}
	return nil
}

type BackofficeModule struct {
	db     *gorm.DB
	admins map[string]bool
	logger *zap.Logger
}

func NewBackofficeModule(db *gorm.DB, admins []string, logger *zap.Logger) *BackofficeModule {
	set := make(map[string]bool, len(admins))
	for _, name := range admins {
		set[name] = true
	}
	return &BackofficeModule{db: db, admins: set, logger: logger}
}

func (b *BackofficeModule) RegisterRoutes(router *gin.Engine) {
	backofficeGroup := router.Group("/backoffice", b.requireBackofficeAuth)
	{
		backofficeGroup.GET("/groups/", b.index)
		backofficeGroup.POST("/groups/", b.createGroup)
		backofficeGroup.POST("/groups/:slug/delete/", b.deleteGroup)
	}
}

// requireBackofficeAuth lets through only viewers listed in BACKOFFICE_USERS.
func (b *BackofficeModule) requireBackofficeAuth(c *gin.Context) {
	viewer := auth.Viewer(c)
	if viewer == nil {
		c.Redirect(http.StatusFound, auth.LoginRedirect(c.Request.URL.RequestURI()))
		c.Abort()
		return
	}

	if !b.admins[viewer.Username] {
		b.logger.Warn("backoffice access denied", zap.String("username", viewer.Username))
		templates.Forbidden(c, viewer)
		return
	}

	c.Next()
}

func (b *BackofficeModule) index(c *gin.Context) {
	b.render(c, http.StatusOK, forms.GroupForm{}, nil)
}

func (b *BackofficeModule) render(c *gin.Context, status int, form forms.GroupForm, errs map[string]string) {
	viewer := auth.Viewer(c)
	groups, err := ListGroups(b.db.WithContext(c.Request.Context()))
	if err != nil {
		b.logger.Error("backoffice listing failed", zap.Error(err))
		templates.ServerError(c, viewer)
		return
	}

	c.HTML(status, "backoffice_groups.html", gin.H{
		"title":  "Groups",
		"viewer": viewer,
		"page":   paginator.FromSlice(groups, paginator.PerPage, c.Query("page")),
		"form":   form,
		"errors": errs,
	})
}

func (b *BackofficeModule) createGroup(c *gin.Context) {
	var form forms.GroupForm
	if err := forms.Bind(c, &form); err != nil {
		b.render(c, http.StatusBadRequest, form, forms.Messages(err))
		return
	}

	group, err := CreateGroup(b.db.WithContext(c.Request.Context()), form)
	switch {
	case errors.Is(err, ErrSlugTaken):
		b.render(c, http.StatusBadRequest, form, map[string]string{
			"slug": "Group with this Slug already exists.",
		})
		return
	case forms.Messages(err) != nil:
		b.render(c, http.StatusBadRequest, form, forms.Messages(err))
		return
	case err != nil:
		b.logger.Error("create group failed", zap.Error(err))
		templates.ServerError(c, auth.Viewer(c))
		return
	}

	b.logger.Info("group created", zap.String("slug", group.Slug))
	c.Redirect(http.StatusFound, "/backoffice/groups/")
}

func (b *BackofficeModule) deleteGroup(c *gin.Context) {
	slug := c.Param("slug")
	err := DeleteGroup(b.db.WithContext(c.Request.Context()), slug)
	if errors.Is(err, ErrGroupNotFound) {
		templates.NotFound(c, auth.Viewer(c))
		return
	}
	if err != nil {
		b.logger.Error("delete group failed", zap.String("slug", slug), zap.Error(err))
		templates.ServerError(c, auth.Viewer(c))
		return
	}

	b.logger.Info("group deleted", zap.String("slug", slug))
	c.Redirect(http.StatusFound, "/backoffice/groups/")
}
