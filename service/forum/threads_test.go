package forum

import (
    "testing"

    "github.com/ariannovin/community-server/cmd/models"
    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"
    "gorm.io/gorm"
)

func uintPtr(v uint) *uint {
    return &v
}

func comment(id, postID uint, parentID *uint) models.Comment {
    return models.Comment{
        Model:           gorm.Model{ID: id},
        PostID:          postID,
        ParentCommentID: parentID,
        Content:         "comment",
    }
}

func collectIDs(roots []models.Comment) map[uint]int {
    seen := make(map[uint]int)
    var walk func(cs []models.Comment)
    walk = func(cs []models.Comment) {
        for _, c := range cs {
            seen[c.ID]++
            walk(c.Replies)
        }
    }
    walk(roots)
    return seen
}

func TestBuildCommentTree_NestsReplies(t *testing.T) {
    flat := []models.Comment{
        comment(1, 10, nil),
        comment(2, 10, uintPtr(1)),
        comment(3, 10, nil),
        comment(4, 10, uintPtr(2)),
        comment(5, 10, uintPtr(1)),
    }

    roots, err := BuildCommentTree(flat)
    require.NoError(t, err)

    require.Len(t, roots, 2)
    assert.Equal(t, uint(1), roots[0].ID)
    assert.Equal(t, uint(3), roots[1].ID)

    require.Len(t, roots[0].Replies, 2)
    assert.Equal(t, uint(2), roots[0].Replies[0].ID)
    assert.Equal(t, uint(5), roots[0].Replies[1].ID)

    require.Len(t, roots[0].Replies[0].Replies, 1)
    assert.Equal(t, uint(4), roots[0].Replies[0].Replies[0].ID)
}

func TestBuildCommentTree_NodeConservation(t *testing.T) {
    flat := []models.Comment{
        comment(1, 10, nil),
        comment(2, 10, uintPtr(1)),
        comment(3, 10, uintPtr(2)),
        comment(4, 10, uintPtr(3)),
        comment(5, 10, nil),
        comment(6, 10, uintPtr(5)),
    }

    roots, err := BuildCommentTree(flat)
    require.NoError(t, err)

    assert.Equal(t, len(flat), CountTreeNodes(roots))

    seen := collectIDs(roots)
    for _, c := range flat {
        assert.Equal(t, 1, seen[c.ID], "comment %d should appear exactly once", c.ID)
    }
}

func TestBuildCommentTree_UnresolvedParentBecomesRoot(t *testing.T) {
    flat := []models.Comment{
        comment(1, 10, nil),
        comment(2, 10, uintPtr(99)), // parent was deleted out from under it
    }

    roots, err := BuildCommentTree(flat)
    require.NoError(t, err)

    require.Len(t, roots, 2)
    assert.Equal(t, uint(2), roots[1].ID)
}

func TestBuildCommentTree_Empty(t *testing.T) {
    roots, err := BuildCommentTree(nil)
    require.NoError(t, err)
    assert.Empty(t, roots)
}

func TestBuildCommentTree_RejectsForeignParent(t *testing.T) {
    flat := []models.Comment{
        comment(1, 10, nil),
        comment(2, 20, uintPtr(1)), // reply on a different post
    }

    _, err := BuildCommentTree(flat)
    require.Error(t, err)
    assert.ErrorIs(t, err, ErrForeignParent)
}

func TestBuildCommentTree_RejectsCycle(t *testing.T) {
    flat := []models.Comment{
        comment(1, 10, uintPtr(2)),
        comment(2, 10, uintPtr(1)),
    }

    _, err := BuildCommentTree(flat)
    require.Error(t, err)
    assert.ErrorIs(t, err, ErrCommentCycle)
}

func TestCollectSubtreeIDs_ChildrenBeforeParent(t *testing.T) {
    flat := []models.Comment{
        comment(1, 10, nil),
        comment(2, 10, uintPtr(1)),
        comment(3, 10, uintPtr(2)),
        comment(4, 10, uintPtr(1)),
    }

    roots, err := BuildCommentTree(flat)
    require.NoError(t, err)
    require.Len(t, roots, 1)

    ids := CollectSubtreeIDs(roots[0])
    require.Len(t, ids, 4) // N descendants plus the root itself

    position := make(map[uint]int, len(ids))
    for i, id := range ids {
        position[id] = i
    }
    assert.Less(t, position[3], position[2])
    assert.Less(t, position[2], position[1])
    assert.Less(t, position[4], position[1])
    assert.Equal(t, uint(1), ids[len(ids)-1])
}
