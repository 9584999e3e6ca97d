package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"yatube/common"
	"yatube/config"
	"yatube/models"
)

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := common.ConnectDb(&config.Config{DBDriver: "sqlite", DatabaseDSN: ":memory:"}, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, RunMigrations(db, zap.NewNop()))
	return db
}

func createUser(t *testing.T, db *gorm.DB, username string) *models.User {
	user := &models.User{Username: username, PasswordHash: "hash"}
	require.NoError(t, db.Create(user).Error)
	return user
}

func TestRunMigrations_CreatesTables(t *testing.T) {
	db := setupTestDB(t)

	for _, table := range []string{"users", "groups", "posts", "comments", "follows"} {
		assert.True(t, db.Migrator().HasTable(table), table)
	}
}

func TestDeletingGroupNullsPostGroup(t *testing.T) {
	db := setupTestDB(t)

	user := createUser(t, db, "leo")
	group := &models.Group{Title: "Cats", Slug: "cats", Description: "about cats"}
	require.NoError(t, db.Create(group).Error)
	post := &models.Post{Text: "meow", AuthorID: user.ID, GroupID: &group.ID}
	require.NoError(t, db.Omit("Author", "Group").Create(post).Error)

	require.NoError(t, db.Delete(group).Error)

	var reloaded models.Post
	require.NoError(t, db.First(&reloaded, post.ID).Error)
	assert.Nil(t, reloaded.GroupID)
	assert.Equal(t, "meow", reloaded.Text)
}

func TestDeletingUserCascadesPostsAndFollows(t *testing.T) {
	db := setupTestDB(t)

	author := createUser(t, db, "author")
	reader := createUser(t, db, "reader")
	require.NoError(t, db.Omit("Author").Create(&models.Post{Text: "one", AuthorID: author.ID}).Error)
	require.NoError(t, db.Omit("Author").Create(&models.Post{Text: "two", AuthorID: author.ID}).Error)
	require.NoError(t, db.Omit("User", "Author").Create(&models.Follow{UserID: reader.ID, AuthorID: author.ID}).Error)

	require.NoError(t, db.Delete(author).Error)

	var posts, follows int64
	db.Model(&models.Post{}).Count(&posts)
	db.Model(&models.Follow{}).Count(&follows)
	assert.Equal(t, int64(0), posts)
	assert.Equal(t, int64(0), follows)
}

func TestDeletingPostNullsComments(t *testing.T) {
	db := setupTestDB(t)

	user := createUser(t, db, "leo")
	post := &models.Post{Text: "hello", AuthorID: user.ID}
	require.NoError(t, db.Omit("Author").Create(post).Error)
	comment := &models.Comment{Text: "hi", AuthorID: user.ID, PostID: &post.ID}
	require.NoError(t, db.Omit("Author", "Post").Create(comment).Error)

	require.NoError(t, db.Delete(post).Error)

	var reloaded models.Comment
	require.NoError(t, db.First(&reloaded, comment.ID).Error)
	assert.Nil(t, reloaded.PostID)
}

func TestFollowPairIsUnique(t *testing.T) {
	db := setupTestDB(t)

	a := createUser(t, db, "a")
	b := createUser(t, db, "b")
	require.NoError(t, db.Omit("User", "Author").Create(&models.Follow{UserID: a.ID, AuthorID: b.ID}).Error)

	err := db.Omit("User", "Author").Create(&models.Follow{UserID: a.ID, AuthorID: b.ID}).Error
	assert.Error(t, err)
}

func TestGroupSlugIsUnique(t *testing.T) {
	db := setupTestDB(t)

	require.NoError(t, db.Create(&models.Group{Title: "One", Slug: "same"}).Error)
	assert.Error(t, db.Create(&models.Group{Title: "Two", Slug: "same"}).Error)
}
