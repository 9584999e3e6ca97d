package posts

import (
	"errors"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"yatube/auth"
	"yatube/forms"
	"yatube/models"
	"yatube/templates"
)

// commentErrorKey holds the message of a rejected comment until the detail
// page has shown it once.
const commentErrorKey = "comment_error"

type PostsModule struct {
	posts  *Service
	logger *zap.Logger
}

func NewPostsModule(posts *Service, logger *zap.Logger) *PostsModule {
	return &PostsModule{posts: posts, logger: logger}
}

func (m *PostsModule) RegisterRoutes(router *gin.Engine) {
	router.GET("/", auth.Public(m.index))
	router.GET("/group/:slug/", auth.Public(m.groupPosts))
	router.GET("/follow/", auth.RequireAuth(m.followIndex))

	router.GET("/create/", auth.RequireAuth(m.createPost))
	router.POST("/create/", auth.RequireAuth(m.createPost))

	profile := router.Group("/profile/:username")
	{
		profile.GET("/", auth.Public(m.profile))
		profile.GET("/follow/", auth.RequireAuth(m.follow))
		profile.GET("/unfollow/", auth.RequireAuth(m.unfollow))
	}

	post := router.Group("/posts/:id")
	{
		post.GET("/", auth.Public(m.postDetail))
		post.GET("/edit/", auth.RequireAuth(m.editPost))
		post.POST("/edit/", auth.RequireAuth(m.editPost))
		post.POST("/comment/", auth.RequireAuth(m.addComment))
	}
}

// fail renders the page matching err. Unknown errors are logged and become a
// 500.
func (m *PostsModule) fail(c *gin.Context, viewer *models.User, err error) {
	if errors.Is(err, ErrNotFound) {
		templates.NotFound(c, viewer)
		return
	}
	m.logger.Error("request failed",
		zap.String("path", c.Request.URL.Path),
		zap.Error(err),
	)
	templates.ServerError(c, viewer)
}

func postID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

func profileURL(username string) string {
	return "/profile/" + url.PathEscape(username) + "/"
}

func detailURL(id uint) string {
	return "/posts/" + strconv.FormatUint(uint64(id), 10) + "/"
}

// uploadedImage returns the image part of a multipart request, or nil.
func uploadedImage(c *gin.Context) *multipart.FileHeader {
	fh, err := c.FormFile("image")
	if err != nil {
		return nil
	}
	return fh
}

func (m *PostsModule) index(c *gin.Context, viewer *models.User) {
	page, err := m.posts.ListAll(c.Request.Context(), c.Query("page"))
	if err != nil {
		m.fail(c, viewer, err)
		return
	}

	c.HTML(http.StatusOK, "index.html", gin.H{
		"title":  "Latest posts",
		"viewer": viewer,
		"page":   page,
	})
}

func (m *PostsModule) groupPosts(c *gin.Context, viewer *models.User) {
	group, page, err := m.posts.GroupPosts(c.Request.Context(), c.Param("slug"), c.Query("page"))
	if err != nil {
		m.fail(c, viewer, err)
		return
	}

	c.HTML(http.StatusOK, "group_list.html", gin.H{
		"title":  group.Title,
		"viewer": viewer,
		"group":  group,
		"page":   page,
	})
}

func (m *PostsModule) profile(c *gin.Context, viewer *models.User) {
	p, err := m.posts.Profile(c.Request.Context(), viewer, c.Param("username"), c.Query("page"))
	if err != nil {
		m.fail(c, viewer, err)
		return
	}

	c.HTML(http.StatusOK, "profile.html", gin.H{
		"title":     p.Author.Username,
		"viewer":    viewer,
		"author":    p.Author,
		"count":     p.Count,
		"page":      p.Page,
		"following": p.Following,
		"canFollow": viewer != nil && viewer.ID != p.Author.ID,
	})
}

func (m *PostsModule) followIndex(c *gin.Context, viewer *models.User) {
	page, err := m.posts.FollowFeed(c.Request.Context(), viewer, c.Query("page"))
	if err != nil {
		m.fail(c, viewer, err)
		return
	}

	c.HTML(http.StatusOK, "follow.html", gin.H{
		"title":  "Following",
		"viewer": viewer,
		"page":   page,
	})
}

func (m *PostsModule) postDetail(c *gin.Context, viewer *models.User) {
	id, ok := postID(c)
	if !ok {
		templates.NotFound(c, viewer)
		return
	}

	d, err := m.posts.Detail(c.Request.Context(), id)
	if err != nil {
		m.fail(c, viewer, err)
		return
	}

	var commentErrors map[string]string
	session := sessions.Default(c)
	if msg, ok := session.Get(commentErrorKey).(string); ok {
		commentErrors = map[string]string{"text": msg}
		session.Delete(commentErrorKey)
		_ = session.Save()
	}

	c.HTML(http.StatusOK, "post_detail.html", gin.H{
		"title":         d.ShortPost,
		"viewer":        viewer,
		"post":          d.Post,
		"count":         d.Count,
		"shortPost":     d.ShortPost,
		"comments":      d.Comments,
		"form":          forms.CommentForm{},
		"commentErrors": commentErrors,
		"canEdit":       viewer != nil && viewer.ID == d.Post.AuthorID,
	})
}

func (m *PostsModule) renderPostForm(c *gin.Context, viewer *models.User, post *models.Post, form forms.PostForm, errs map[string]string) {
	groups, err := m.posts.Groups(c.Request.Context())
	if err != nil {
		m.fail(c, viewer, err)
		return
	}

	title := "New post"
	if post != nil {
		title = "Edit post"
	}

	c.HTML(http.StatusOK, "post_create.html", gin.H{
		"title":  title,
		"viewer": viewer,
		"isEdit": post != nil,
		"post":   post,
		"form":   form,
		"groups": groups,
		"errors": errs,
	})
}

func (m *PostsModule) createPost(c *gin.Context, viewer *models.User) {
	var form forms.PostForm
	if c.Request.Method != http.MethodPost {
		m.renderPostForm(c, viewer, nil, form, nil)
		return
	}

	err := forms.Bind(c, &form)
	if err == nil {
		_, err = m.posts.Create(c.Request.Context(), viewer, form, uploadedImage(c))
	}
	if err == nil {
		c.Redirect(http.StatusFound, profileURL(viewer.Username))
		return
	}

	if msgs := forms.Messages(err); msgs != nil {
		m.renderPostForm(c, viewer, nil, form, msgs)
		return
	}
	m.fail(c, viewer, err)
}

func (m *PostsModule) editPost(c *gin.Context, viewer *models.User) {
	id, ok := postID(c)
	if !ok {
		templates.NotFound(c, viewer)
		return
	}

	post, err := m.posts.EditablePost(c.Request.Context(), viewer, id)
	if errors.Is(err, ErrForbidden) {
		c.Redirect(http.StatusFound, detailURL(id))
		return
	}
	if err != nil {
		m.fail(c, viewer, err)
		return
	}

	if c.Request.Method != http.MethodPost {
		form := forms.PostForm{Text: post.Text}
		if post.GroupID != nil {
			form.Group = strconv.FormatUint(uint64(*post.GroupID), 10)
		}
		m.renderPostForm(c, viewer, post, form, nil)
		return
	}

	var form forms.PostForm
	err = forms.Bind(c, &form)
	if err == nil {
		err = m.posts.Update(c.Request.Context(), post, form, uploadedImage(c))
	}
	if err == nil {
		c.Redirect(http.StatusFound, detailURL(post.ID))
		return
	}

	if msgs := forms.Messages(err); msgs != nil {
		m.renderPostForm(c, viewer, post, form, msgs)
		return
	}
	m.fail(c, viewer, err)
}

// addComment always lands back on the post. Rejected comments are not
// saved; their message is flashed and shown once on the detail page.
func (m *PostsModule) addComment(c *gin.Context, viewer *models.User) {
	id, ok := postID(c)
	if !ok {
		templates.NotFound(c, viewer)
		return
	}

	post, err := m.posts.Post(c.Request.Context(), id)
	if err != nil {
		m.fail(c, viewer, err)
		return
	}

	var form forms.CommentForm
	err = forms.Bind(c, &form)
	if err == nil {
		_, err = m.posts.AddComment(c.Request.Context(), viewer, post, form)
	}
	if err != nil {
		msgs := forms.Messages(err)
		if msgs == nil {
			m.fail(c, viewer, err)
			return
		}
		session := sessions.Default(c)
		session.Set(commentErrorKey, msgs["text"])
		if err := session.Save(); err != nil {
			m.logger.Warn("could not save comment flash", zap.Error(err))
		}
	}

	c.Redirect(http.StatusFound, detailURL(post.ID))
}

func (m *PostsModule) follow(c *gin.Context, viewer *models.User) {
	author, err := m.posts.Follow(c.Request.Context(), viewer, c.Param("username"))
	if err != nil {
		m.fail(c, viewer, err)
		return
	}
	c.Redirect(http.StatusFound, profileURL(author.Username))
}

func (m *PostsModule) unfollow(c *gin.Context, viewer *models.User) {
	author, err := m.posts.Unfollow(c.Request.Context(), viewer, c.Param("username"))
	if err != nil {
		m.fail(c, viewer, err)
		return
	}
	c.Redirect(http.StatusFound, profileURL(author.Username))
}
