package course

import (
    "errors"
    "time"

    "github.com/ariannovin/community-server/cmd/models"
    "gorm.io/gorm"
    "gorm.io/gorm/clause"
)

var (
    // ErrCourseFull means every seat is taken.
    ErrCourseFull = errors.New("course is already full")

    // ErrAlreadyEnrolled means this user already holds a seat. Callers
    // treat it as an idempotent success, not a failure.
    ErrAlreadyEnrolled = errors.New("user is already enrolled in this course")
)

// checkAdmission is the seat admission rule, ordered: an existing
// enrollment wins over the capacity check so a repeat attempt never
// reports a full course.
func checkAdmission(alreadyEnrolled bool, enrolled int64, maxAttendees int) error {
    if alreadyEnrolled {
        return ErrAlreadyEnrolled
    }
    if enrolled >= int64(maxAttendees) {
        return ErrCourseFull
    }
    return nil
}

// TryEnroll admits userID into courseID if a seat is free. The check and
// the insert run in one transaction with the course row locked, so two
// racing attempts at the last seat serialize: one gets the seat, the
// other sees ErrCourseFull. Returns gorm.ErrRecordNotFound for an
// unknown course.
func TryEnroll(db *gorm.DB, courseID, userID uint) (*models.Enrollment, error) {
    var enrollment *models.Enrollment

    err := db.Transaction(func(tx *gorm.DB) error {
        var course models.Course
        if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
            First(&course, courseID).Error; err != nil {
            return err
        }

        var existing models.Enrollment
        alreadyEnrolled := tx.Where("course_id = ? AND user_id = ?", courseID, userID).
            First(&existing).Error == nil

        var enrolled int64
        if err := tx.Model(&models.Enrollment{}).
            Where("course_id = ?", courseID).Count(&enrolled).Error; err != nil {
            return err
        }

        if err := checkAdmission(alreadyEnrolled, enrolled, course.MaxAttendees); err != nil {
            return err
        }

        e := models.Enrollment{
            CourseID:   courseID,
            UserID:     userID,
            EnrolledAt: time.Now(),
        }
        if err := tx.Create(&e).Error; err != nil {
            return err
        }
        enrollment = &e
        return nil
    })
    if err != nil {
        return nil, err
    }
    return enrollment, nil
}
