package site

import (
	"fmt"
	"html"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"yatube/models"
)

type SiteModule struct {
	db     *gorm.DB
	domain string
	logger *zap.Logger
}

func NewSiteModule(db *gorm.DB, domain string, logger *zap.Logger) *SiteModule {
	return &SiteModule{
		db:     db,
		domain: strings.TrimSuffix(domain, "/"),
		logger: logger,
	}
}

func (s *SiteModule) RegisterRoutes(router *gin.Engine) {
	router.GET("/sitemap.xml", s.sitemap)
}

type sitemapWriter struct {
	strings.Builder
	domain string
}

func (w *sitemapWriter) url(path string, lastmod time.Time, changefreq, priority string) {
	w.WriteString("  <url>\n")
	w.WriteString("    <loc>" + html.EscapeString(w.domain+path) + "</loc>\n")
	if !lastmod.IsZero() {
		w.WriteString("    <lastmod>" + lastmod.UTC().Format(time.RFC3339) + "</lastmod>\n")
	}
	w.WriteString("    <changefreq>" + changefreq + "</changefreq>\n")
	w.WriteString("    <priority>" + priority + "</priority>\n")
	w.WriteString("  </url>\n")
}

// Build renders the sitemap: the index, every group, every author with at
// least one post and every post.
func (s *SiteModule) Build(db *gorm.DB) (string, error) {
	var groups []models.Group
	if err := db.Order("slug ASC").Find(&groups).Error; err != nil {
		return "", fmt.Errorf("list groups: %w", err)
	}

	var authors []string
	err := db.Model(&models.User{}).
		Where("id IN (?)", db.Model(&models.Post{}).Select("author_id")).
		Order("username ASC").
		Pluck("username", &authors).Error
	if err != nil {
		return "", fmt.Errorf("list authors: %w", err)
	}

	var posts []models.Post
	if err := db.Select("id", "pub_date").Order("pub_date DESC").Order("id DESC").Find(&posts).Error; err != nil {
		return "", fmt.Errorf("list posts: %w", err)
	}

	w := &sitemapWriter{domain: s.domain}
	w.WriteString(`<?xml version="1.0" encoding="UTF-8"?>` + "\n")
	w.WriteString(`<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">` + "\n")

	w.url("/", time.Time{}, "daily", "1.0")
	for _, g := range groups {
		w.url("/group/"+url.PathEscape(g.Slug)+"/", time.Time{}, "daily", "0.8")
	}
	for _, username := range authors {
		w.url("/profile/"+url.PathEscape(username)+"/", time.Time{}, "weekly", "0.6")
	}
	for _, p := range posts {
		w.url(fmt.Sprintf("/posts/%d/", p.ID), p.PubDate, "monthly", "0.5")
	}

	w.WriteString("</urlset>\n")
	return w.String(), nil
}

func (s *SiteModule) sitemap(c *gin.Context) {
	body, err := s.Build(s.db.WithContext(c.Request.Context()))
	if err != nil {
		s.logger.Error("sitemap failed", zap.Error(err))
		c.Status(http.StatusInternalServerError)
		return
	}

	c.Header("Content-Type", "application/xml; charset=utf-8")
	c.String(http.StatusOK, body)
}
