package forum

import (
    "testing"

    "github.com/ariannovin/community-server/cmd/models"
    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"
    "gorm.io/gorm"
)

func post(id uint, title string) models.Post {
    return models.Post{
        Model: gorm.Model{ID: id},
        Title: title,
    }
}

func TestComputeNavigation_DefaultsToNewestPost(t *testing.T) {
    posts := []models.Post{post(1, "A"), post(2, "B"), post(3, "C")}

    nav, err := ComputeNavigation(posts, nil)
    require.NoError(t, err)

    assert.Equal(t, uint(3), nav.Post.ID)
    require.NotNil(t, nav.PreviousPostID)
    assert.Equal(t, uint(2), *nav.PreviousPostID)
    assert.Nil(t, nav.NextPostID)
}

func TestComputeNavigation_MiddlePost(t *testing.T) {
    posts := []models.Post{post(1, "A"), post(2, "B"), post(3, "C")}

    nav, err := ComputeNavigation(posts, uintPtr(2))
    require.NoError(t, err)

    assert.Equal(t, uint(2), nav.Post.ID)
    require.NotNil(t, nav.PreviousPostID)
    assert.Equal(t, uint(1), *nav.PreviousPostID)
    require.NotNil(t, nav.NextPostID)
    assert.Equal(t, uint(3), *nav.NextPostID)
}

func TestComputeNavigation_FirstPostHasNoPrevious(t *testing.T) {
    posts := []models.Post{post(1, "A"), post(2, "B")}

    nav, err := ComputeNavigation(posts, uintPtr(1))
    require.NoError(t, err)

    assert.Nil(t, nav.PreviousPostID)
    require.NotNil(t, nav.NextPostID)
    assert.Equal(t, uint(2), *nav.NextPostID)
}

func TestComputeNavigation_SinglePost(t *testing.T) {
    posts := []models.Post{post(7, "only")}

    nav, err := ComputeNavigation(posts, nil)
    require.NoError(t, err)

    assert.Equal(t, uint(7), nav.Post.ID)
    assert.Nil(t, nav.PreviousPostID)
    assert.Nil(t, nav.NextPostID)
}

func TestComputeNavigation_UnknownID(t *testing.T) {
    posts := []models.Post{post(1, "A"), post(2, "B"), post(3, "C")}

    _, err := ComputeNavigation(posts, uintPtr(99))
    require.Error(t, err)
    assert.ErrorIs(t, err, ErrPostNotFound)
}

func TestComputeNavigation_NoPosts(t *testing.T) {
    _, err := ComputeNavigation(nil, nil)
    require.Error(t, err)
    assert.ErrorIs(t, err, ErrNoPosts)

    // An id against an empty list is still "no posts", not "not found"
    _, err = ComputeNavigation(nil, uintPtr(1))
    assert.ErrorIs(t, err, ErrNoPosts)
}

func TestComputeNavigation_Idempotent(t *testing.T) {
    posts := []models.Post{post(1, "A"), post(2, "B"), post(3, "C")}

    first, err := ComputeNavigation(posts, uintPtr(2))
    require.NoError(t, err)
    second, err := ComputeNavigation(posts, uintPtr(2))
    require.NoError(t, err)

    assert.Equal(t, first, second)
}
