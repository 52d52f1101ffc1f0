package forum

import (
    "errors"
    "fmt"

    "github.com/ariannovin/community-server/cmd/models"
)

var (
    // ErrForeignParent means a comment references a parent that belongs
    // to a different post. The tree is never built from such input.
    ErrForeignParent = errors.New("comment parent belongs to a different post")

    // ErrCommentCycle means the parent chain loops back on itself.
    ErrCommentCycle = errors.New("comment parent chain contains a cycle")
)

// BuildCommentTree assembles a flat list of comments into root comments
// with their Replies populated recursively. Input order is preserved at
// every level. A comment whose parent id does not resolve to any comment
// in the input is kept as a root rather than dropped.
func BuildCommentTree(comments []models.Comment) ([]models.Comment, error) {
    if err := checkThreadIntegrity(comments); err != nil {
        return nil, err
    }

    children := make(map[uint][]models.Comment)
    known := make(map[uint]bool, len(comments))
    for _, c := range comments {
        known[c.ID] = true
    }

    var roots []models.Comment
    for _, c := range comments {
        c.Replies = nil
        if c.ParentCommentID != nil && known[*c.ParentCommentID] {
            children[*c.ParentCommentID] = append(children[*c.ParentCommentID], c)
        } else {
            roots = append(roots, c)
        }
    }

    for i := range roots {
        attachReplies(&roots[i], children)
    }
    return roots, nil
}

func attachReplies(c *models.Comment, children map[uint][]models.Comment) {
    c.Replies = children[c.ID]
    for i := range c.Replies {
        attachReplies(&c.Replies[i], children)
    }
}

// checkThreadIntegrity rejects input whose parent references cross posts
// or form a cycle. Both are data corruption, not tree-shape problems.
func checkThreadIntegrity(comments []models.Comment) error {
    byID := make(map[uint]*models.Comment, len(comments))
    for i := range comments {
        byID[comments[i].ID] = &comments[i]
    }

    for i := range comments {
        c := &comments[i]
        if c.ParentCommentID == nil {
            continue
        }
        parent, ok := byID[*c.ParentCommentID]
        if !ok {
            continue
        }
        if parent.PostID != c.PostID {
            return fmt.Errorf("comment %d: %w", c.ID, ErrForeignParent)
        }
    }

    for i := range comments {
        seen := map[uint]bool{comments[i].ID: true}
        cur := &comments[i]
        for cur.ParentCommentID != nil {
            next, ok := byID[*cur.ParentCommentID]
            if !ok {
                break
            }
            if seen[next.ID] {
                return fmt.Errorf("comment %d: %w", comments[i].ID, ErrCommentCycle)
            }
            seen[next.ID] = true
            cur = next
        }
    }
    return nil
}

// CountTreeNodes returns the total number of comments in a forest,
// replies included.
func CountTreeNodes(roots []models.Comment) int {
    total := 0
    for i := range roots {
        total += 1 + CountTreeNodes(roots[i].Replies)
    }
    return total
}

// CollectSubtreeIDs lists the ids of a comment and all its descendants
// in deletion order: replies first, the comment itself last.
func CollectSubtreeIDs(c models.Comment) []uint {
    var ids []uint
    for _, reply := range c.Replies {
        ids = append(ids, CollectSubtreeIDs(reply)...)
    }
    return append(ids, c.ID)
}
