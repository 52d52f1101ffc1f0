package forum

import (
    "errors"

    "github.com/ariannovin/community-server/cmd/models"
)

var (
    // ErrNoPosts means there is nothing to navigate at all.
    ErrNoPosts = errors.New("no posts available")

    // ErrPostNotFound means the requested post id is not in the sequence.
    ErrPostNotFound = errors.New("post not found")
)

// PostNavigation is the pager state for a single post: the post itself
// plus the neighbouring post ids in sequence order, when they exist.
type PostNavigation struct {
    Post           models.Post `json:"post"`
    PreviousPostID *uint       `json:"previous_post_id,omitempty"`
    NextPostID     *uint       `json:"next_post_id,omitempty"`
}

// ComputeNavigation resolves the pager for currentID within posts, which
// must already be in display order (creation order, ascending). A nil
// currentID selects the newest post. The function has no side effects.
func ComputeNavigation(posts []models.Post, currentID *uint) (*PostNavigation, error) {
    if len(posts) == 0 {
        return nil, ErrNoPosts
    }

    idx := len(posts) - 1
    if currentID != nil {
        idx = -1
        for i := range posts {
            if posts[i].ID == *currentID {
                idx = i
                break
            }
        }
        if idx < 0 {
            return nil, ErrPostNotFound
        }
    }

    nav := &PostNavigation{Post: posts[idx]}
    if idx > 0 {
        nav.PreviousPostID = &posts[idx-1].ID
    }
    if idx < len(posts)-1 {
        nav.NextPostID = &posts[idx+1].ID
    }
    return nav, nil
}
