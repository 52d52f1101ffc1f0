package models

import (
    "time"

    "gorm.io/gorm"
)

type Course struct {
    gorm.Model
    Title        string       `gorm:"column:title;size:255;not null" json:"title"`
    Description  string       `gorm:"column:description;type:text;not null" json:"description"`
    Instructor   string       `gorm:"column:instructor;size:255;not null" json:"instructor"`
    StartDate    time.Time    `gorm:"column:start_date;not null" json:"start_date"`
    EndDate      time.Time    `gorm:"column:end_date;not null" json:"end_date"`
    MaxAttendees int          `gorm:"column:max_attendees;not null;default:0" json:"max_attendees"`
    Enrollments  []Enrollment `gorm:"foreignKey:CourseID" json:"enrollments,omitempty"`
}

type Enrollment struct {
    gorm.Model
    CourseID   uint      `gorm:"column:course_id;not null;uniqueIndex:idx_course_user" json:"course_id"`
    UserID     uint      `gorm:"column:user_id;not null;uniqueIndex:idx_course_user" json:"user_id"`
    EnrolledAt time.Time `gorm:"column:enrolled_at;not null" json:"enrolled_at"`

    Course *Course `gorm:"foreignKey:CourseID" json:"course,omitempty"`
    User   *User   `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

func (Enrollment) TableName() string {
    return "enrollments"
}
