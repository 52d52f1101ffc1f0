package course

import (
    "testing"

    "github.com/stretchr/testify/assert"
)

func TestCheckAdmission_SeatAvailable(t *testing.T) {
    assert.NoError(t, checkAdmission(false, 0, 1))
    assert.NoError(t, checkAdmission(false, 9, 10))
}

func TestCheckAdmission_CourseFull(t *testing.T) {
    err := checkAdmission(false, 1, 1)
    assert.ErrorIs(t, err, ErrCourseFull)

    // Over-subscribed data still reads as full
    err = checkAdmission(false, 5, 1)
    assert.ErrorIs(t, err, ErrCourseFull)
}

func TestCheckAdmission_ZeroCapacity(t *testing.T) {
    err := checkAdmission(false, 0, 0)
    assert.ErrorIs(t, err, ErrCourseFull)
}

func TestCheckAdmission_AlreadyEnrolledIsIdempotent(t *testing.T) {
    err := checkAdmission(true, 1, 10)
    assert.ErrorIs(t, err, ErrAlreadyEnrolled)

    // An existing seat wins over the capacity check: a repeat attempt on
    // a full course must not report CourseFull
    err = checkAdmission(true, 1, 1)
    assert.ErrorIs(t, err, ErrAlreadyEnrolled)
}

func TestCheckAdmission_LastSeatSerializes(t *testing.T) {
    // Two users race for the last seat. With the course row locked the
    // checks serialize: the first sees a free seat, the second sees the
    // first user's row already counted.
    const maxAttendees = 1

    var enrolled int64

    errA := checkAdmission(false, enrolled, maxAttendees)
    assert.NoError(t, errA)
    enrolled++ // A's insert commits before B's check runs

    errB := checkAdmission(false, enrolled, maxAttendees)
    assert.ErrorIs(t, errB, ErrCourseFull)
    assert.Equal(t, int64(1), enrolled)
}
