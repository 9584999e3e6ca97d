package models

import "time"

const postDisplayLen = 15

type User struct {
	ID           uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Username     string    `gorm:"size:150;uniqueIndex;not null" json:"username"`
	Email        string    `gorm:"size:254" json:"email"`
	PasswordHash string    `gorm:"not null" json:"-"` // never exposed
	CreatedAt    time.Time `json:"created_at"`
}

// Group is created by administrators and referenced by posts.
type Group struct {
	ID          uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	Title       string `gorm:"size:200;not null" json:"title"`
	Slug        string `gorm:"size:50;uniqueIndex;not null" json:"slug"`
	Description string `gorm:"type:text" json:"description"`
}

func (g Group) String() string {
	return g.Title
}

type Post struct {
	ID       uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Text     string    `gorm:"type:text;not null" json:"text"`
	PubDate  time.Time `gorm:"autoCreateTime;index" json:"pub_date"`
	AuthorID uint      `gorm:"not null;index" json:"author_id"`
	Author   User      `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"author"`
	GroupID  *uint     `gorm:"index" json:"group_id"`
	Group    *Group    `gorm:"constraint:OnUpdate:CASCADE,OnDelete:SET NULL;" json:"group,omitempty"`
	Image    string    `gorm:"size:255" json:"image"` // media path relative to MEDIA_ROOT
}

func (p Post) String() string {
	return Truncate(p.Text, postDisplayLen)
}

type Comment struct {
	ID       uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	PostID   *uint     `gorm:"index" json:"post_id"`
	Post     *Post     `gorm:"constraint:OnUpdate:CASCADE,OnDelete:SET NULL;" json:"-"`
	AuthorID uint      `gorm:"not null;index" json:"author_id"`
	Author   User      `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"author"`
	Text     string    `gorm:"size:200;not null" json:"text"`
	Created  time.Time `gorm:"autoCreateTime" json:"created"`
}

func (c Comment) String() string {
	return c.Text
}

// Follow is a directed edge: User follows Author.
type Follow struct {
	ID       uint `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID   uint `gorm:"not null;uniqueIndex:idx_follow_user_author" json:"user_id"`
	User     User `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	AuthorID uint `gorm:"not null;uniqueIndex:idx_follow_user_author;index" json:"author_id"`
	Author   User `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
}

// All lists every table in dependency order for migrations.
func All() []interface{} {
	return []interface{}{
		&User{},
		&Group{},
		&Post{},
		&Comment{},
		&Follow{},
	}
}

// Truncate cuts s to at most n runes.
func Truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
