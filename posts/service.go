package posts

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"strconv"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"yatube/forms"
	"yatube/media"
	"yatube/models"
	"yatube/paginator"
)

const shortPostLen = 30

// Service holds the post queries and mutations. Every method that depends on
// who is asking takes the viewer explicitly; nil means anonymous.
type Service struct {
	db     *gorm.DB
	media  *media.Store
	logger *zap.Logger
}

func NewService(db *gorm.DB, store *media.Store, logger *zap.Logger) *Service {
	return &Service{db: db, media: store, logger: logger}
}

type ProfilePage struct {
	Author    models.User
	Count     int64
	Page      *paginator.Page[models.Post]
	Following bool
}

type PostDetail struct {
	Post      models.Post
	Count     int64
	ShortPost string
	Comments  []models.Comment
}

func newestFirst(db *gorm.DB) *gorm.DB {
	return db.Order("pub_date DESC").Order("id DESC")
}

func (s *Service) paginate(ctx context.Context, requested string, filter func(*gorm.DB) *gorm.DB) (*paginator.Page[models.Post], error) {
	var total int64
	if err := s.db.WithContext(ctx).Model(&models.Post{}).Scopes(filter).Count(&total).Error; err != nil {
		return nil, fmt.Errorf("count posts: %w", err)
	}

	page := paginator.New[models.Post](total, paginator.PerPage, requested)
	err := s.db.WithContext(ctx).
		Scopes(filter, newestFirst, page.Scope).
		Preload("Author").
		Preload("Group").
		Find(&page.Items).Error
	if err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	return page, nil
}

func allPosts(db *gorm.DB) *gorm.DB {
	return db
}

func byAuthor(authorID uint) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("author_id = ?", authorID)
	}
}

// ListAll pages through every post, newest first.
func (s *Service) ListAll(ctx context.Context, requested string) (*paginator.Page[models.Post], error) {
	return s.paginate(ctx, requested, allPosts)
}

func (s *Service) GroupPosts(ctx context.Context, slug, requested string) (*models.Group, *paginator.Page[models.Post], error) {
	var group models.Group
	if err := s.db.WithContext(ctx).Where("slug = ?", slug).First(&group).Error; err != nil {
		return nil, nil, lookupErr("group", err)
	}

	page, err := s.paginate(ctx, requested, func(db *gorm.DB) *gorm.DB {
		return db.Where("group_id = ?", group.ID)
	})
	if err != nil {
		return nil, nil, err
	}
	return &group, page, nil
}

func (s *Service) author(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Where("username = ?", username).First(&user).Error; err != nil {
		return nil, lookupErr("author", err)
	}
	return &user, nil
}

func (s *Service) countByAuthor(ctx context.Context, authorID uint) (int64, error) {
	var n int64
	if err := s.db.WithContext(ctx).Model(&models.Post{}).Scopes(byAuthor(authorID)).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count author posts: %w", err)
	}
	return n, nil
}

// Profile lists an author's posts. Following is always false for anonymous
// viewers.
func (s *Service) Profile(ctx context.Context, viewer *models.User, username, requested string) (*ProfilePage, error) {
	author, err := s.author(ctx, username)
	if err != nil {
		return nil, err
	}

	page, err := s.paginate(ctx, requested, byAuthor(author.ID))
	if err != nil {
		return nil, err
	}

	following := false
	if viewer != nil {
		following, err = s.IsFollowing(ctx, viewer, author)
		if err != nil {
			return nil, err
		}
	}

	return &ProfilePage{
		Author:    *author,
		Count:     page.Total,
		Page:      page,
		Following: following,
	}, nil
}

func (s *Service) Post(ctx context.Context, id uint) (*models.Post, error) {
	var post models.Post
	if err := s.db.WithContext(ctx).Preload("Author").Preload("Group").First(&post, id).Error; err != nil {
		return nil, lookupErr("post", err)
	}
	return &post, nil
}

func (s *Service) Detail(ctx context.Context, id uint) (*PostDetail, error) {
	post, err := s.Post(ctx, id)
	if err != nil {
		return nil, err
	}

	count, err := s.countByAuthor(ctx, post.AuthorID)
	if err != nil {
		return nil, err
	}

	var comments []models.Comment
	err = s.db.WithContext(ctx).
		Where("post_id = ?", post.ID).
		Preload("Author").
		Order("id ASC").
		Find(&comments).Error
	if err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}

	return &PostDetail{
		Post:      *post,
		Count:     count,
		ShortPost: models.Truncate(post.Text, shortPostLen),
		Comments:  comments,
	}, nil
}

// Groups returns every group for the post form's select box.
func (s *Service) Groups(ctx context.Context) ([]models.Group, error) {
	var groups []models.Group
	if err := s.db.WithContext(ctx).Order("title ASC").Find(&groups).Error; err != nil {
		return nil, fmt.Errorf("list groups: %w", err)
	}
	return groups, nil
}

// resolveGroup turns the submitted group id into a foreign key. Blank means
// no group.
func (s *Service) resolveGroup(ctx context.Context, raw string) (*uint, error) {
	if raw == "" {
		return nil, nil
	}

	invalid := forms.Invalid("group", "Select a valid choice. That choice is not one of the available choices.")
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return nil, invalid
	}

	var group models.Group
	if err := s.db.WithContext(ctx).Select("id").First(&group, uint(id)).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, invalid
		}
		return nil, fmt.Errorf("load group: %w", err)
	}
	return &group.ID, nil
}

func (s *Service) storeImage(image *multipart.FileHeader) (string, error) {
	if image == nil {
		return "", nil
	}
	return s.media.SavePostImage(image)
}

// Create stores a new post authored by viewer. The author always comes from
// the viewer, never from the form.
func (s *Service) Create(ctx context.Context, viewer *models.User, form forms.PostForm, image *multipart.FileHeader) (*models.Post, error) {
	groupID, err := s.resolveGroup(ctx, form.Group)
	if err != nil {
		return nil, err
	}

	path, err := s.storeImage(image)
	if err != nil {
		return nil, err
	}

	post := models.Post{
		Text:     form.Text,
		AuthorID: viewer.ID,
		GroupID:  groupID,
		Image:    path,
	}
	if err := s.db.WithContext(ctx).Omit(clause.Associations).Create(&post).Error; err != nil {
		return nil, fmt.Errorf("create post: %w", err)
	}

	s.logger.Info("post created", zap.Uint("post_id", post.ID), zap.String("author", viewer.Username))
	return &post, nil
}

// EditablePost loads a post for editing. ErrForbidden is returned when
// viewer is not its author.
func (s *Service) EditablePost(ctx context.Context, viewer *models.User, id uint) (*models.Post, error) {
	post, err := s.Post(ctx, id)
	if err != nil {
		return nil, err
	}
	if viewer == nil || post.AuthorID != viewer.ID {
		return nil, ErrForbidden
	}
	return post, nil
}

// Update applies form to post. Without a new upload the current image is
// kept.
func (s *Service) Update(ctx context.Context, post *models.Post, form forms.PostForm, image *multipart.FileHeader) error {
	groupID, err := s.resolveGroup(ctx, form.Group)
	if err != nil {
		return err
	}

	path := post.Image
	if image != nil {
		if path, err = s.storeImage(image); err != nil {
			return err
		}
	}

	err = s.db.WithContext(ctx).Model(&models.Post{ID: post.ID}).Updates(map[string]interface{}{
		"text":     form.Text,
		"group_id": groupID,
		"image":    path,
	}).Error
	if err != nil {
		return fmt.Errorf("update post %d: %w", post.ID, err)
	}

	post.Text = form.Text
	post.GroupID = groupID
	post.Image = path
	return nil
}

func (s *Service) AddComment(ctx context.Context, viewer *models.User, post *models.Post, form forms.CommentForm) (*models.Comment, error) {
	comment := models.Comment{
		PostID:   &post.ID,
		AuthorID: viewer.ID,
		Text:     form.Text,
	}
	if err := s.db.WithContext(ctx).Omit(clause.Associations).Create(&comment).Error; err != nil {
		return nil, fmt.Errorf("create comment: %w", err)
	}
	return &comment, nil
}

// FollowFeed pages through posts by authors the viewer follows.
func (s *Service) FollowFeed(ctx context.Context, viewer *models.User, requested string) (*paginator.Page[models.Post], error) {
	return s.paginate(ctx, requested, func(db *gorm.DB) *gorm.DB {
		followed := s.db.Model(&models.Follow{}).Select("author_id").Where("user_id = ?", viewer.ID)
		return db.Where("author_id IN (?)", followed)
	})
}

func (s *Service) IsFollowing(ctx context.Context, viewer, author *models.User) (bool, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&models.Follow{}).
		Where("user_id = ? AND author_id = ?", viewer.ID, author.ID).
		Count(&n).Error
	if err != nil {
		return false, fmt.Errorf("check follow: %w", err)
	}
	return n > 0, nil
}

// Follow makes viewer follow username. Following yourself or an author you
// already follow changes nothing.
func (s *Service) Follow(ctx context.Context, viewer *models.User, username string) (*models.User, error) {
	author, err := s.author(ctx, username)
	if err != nil {
		return nil, err
	}
	if author.ID == viewer.ID {
		return author, nil
	}

	edge := models.Follow{UserID: viewer.ID, AuthorID: author.ID}
	err = s.db.WithContext(ctx).
		Omit(clause.Associations).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&edge).Error
	if err != nil {
		return nil, fmt.Errorf("follow %s: %w", username, err)
	}
	return author, nil
}

// Unfollow removes the edge if there is one.
func (s *Service) Unfollow(ctx context.Context, viewer *models.User, username string) (*models.User, error) {
	author, err := s.author(ctx, username)
	if err != nil {
		return nil, err
	}

	err = s.db.WithContext(ctx).
		Where("user_id = ? AND author_id = ?", viewer.ID, author.ID).
		Delete(&models.Follow{}).Error
	if err != nil {
		return nil, fmt.Errorf("unfollow %s: %w", username, err)
	}
	return author, nil
}
