package models

import (
    "github.com/lib/pq"
    "gorm.io/gorm"
)

type Post struct {
    gorm.Model
    AuthorID  uint           `gorm:"column:author_id;not null" json:"author_id"`
    Title     string         `gorm:"column:title;size:100;not null" json:"title"`
    Body      string         `gorm:"column:body;type:text;not null" json:"body"`
    ImagePath string         `gorm:"column:image_path;size:255" json:"image_path,omitempty"`
    Tags      pq.StringArray `gorm:"column:tags;type:text[]" json:"tags,omitempty"`
    Author    *User          `gorm:"foreignKey:AuthorID" json:"author,omitempty"`
    Comments  []Comment      `gorm:"foreignKey:PostID" json:"comments,omitempty"`
}

type Comment struct {
    gorm.Model
    PostID          uint      `gorm:"column:post_id;not null;index" json:"post_id"`
    AuthorID        uint      `gorm:"column:author_id;not null" json:"author_id"`
    Content         string    `gorm:"column:content;type:text;not null" json:"content"`
    ParentCommentID *uint     `gorm:"column:parent_comment_id;index" json:"parent_comment_id,omitempty"`
    Author          *User     `gorm:"foreignKey:AuthorID" json:"author,omitempty"`
    Replies         []Comment `gorm:"foreignKey:ParentCommentID" json:"replies,omitempty"`
}
