package forum

import (
    "encoding/json"
    "errors"
    "fmt"
    "net/http"
    "strconv"
    "strings"

    "github.com/ariannovin/community-server/cmd/models"
    "github.com/ariannovin/community-server/cmd/utils"
    "github.com/ariannovin/community-server/service/live"
    "github.com/gorilla/mux"
    "github.com/lib/pq"
    "gorm.io/gorm"
)

type PostHandler struct {
    db  *gorm.DB
    hub *live.Hub
}

func NewPostHandler(db *gorm.DB, hub *live.Hub) *PostHandler {
    return &PostHandler{db: db, hub: hub}
}

func (h *PostHandler) RegisterRoutes(router *mux.Router) {
    // Post routes
    router.HandleFunc("/posts", utils.AuthMiddleware(h.CreatePost)).Methods("POST")
    router.HandleFunc("/posts", h.GetPosts).Methods("GET")
    router.HandleFunc("/posts/navigation", h.GetPostNavigation).Methods("GET")
    router.HandleFunc("/posts/{id}", h.GetPost).Methods("GET")
    router.HandleFunc("/posts/{id}", utils.AuthMiddleware(h.UpdatePost)).Methods("PUT")
    router.HandleFunc("/posts/{id}", utils.AuthMiddleware(h.DeletePost)).Methods("DELETE")

    // Comment routes
    router.HandleFunc("/posts/{id}/comments", utils.AuthMiddleware(h.AddComment)).Methods("POST")
    router.HandleFunc("/posts/{id}/comments", h.GetComments).Methods("GET")
    router.HandleFunc("/posts/{id}/comments/{commentId}", utils.AuthMiddleware(h.UpdateComment)).Methods("PUT")
    router.HandleFunc("/posts/{id}/comments/{commentId}", utils.AuthMiddleware(h.DeleteComment)).Methods("DELETE")
}

func validateTitle(title string) error {
    if strings.TrimSpace(title) == "" {
        return errors.New("title is required")
    }
    if len(title) > 100 {
        return errors.New("title must be 100 characters or fewer")
    }
    return nil
}

// CreatePost creates a new post, optionally with an uploaded image
func (h *PostHandler) CreatePost(w http.ResponseWriter, r *http.Request) {
    userID, err := utils.GetUserIDFromContext(r.Context())
    if err != nil {
        http.Error(w, "Unauthorized", http.StatusUnauthorized)
        return
    }

    err = r.ParseMultipartForm(50 << 20)
    if err != nil {
        http.Error(w, "Error parsing form", http.StatusBadRequest)
        return
    }

    title := r.FormValue("title")
    if err := validateTitle(title); err != nil {
        http.Error(w, err.Error(), http.StatusBadRequest)
        return
    }

    body := r.FormValue("body")
    if body == "" {
        http.Error(w, "Body is required", http.StatusBadRequest)
        return
    }

    post := models.Post{
        AuthorID: userID,
        Title:    title,
        Body:     body,
    }
    if tags := r.FormValue("tags"); tags != "" {
        post.Tags = pq.StringArray(strings.Split(tags, ","))
    }

    if file, header, err := r.FormFile("image"); err == nil {
        defer file.Close()
        imagePath, err := utils.SaveImage(file, header)
        if err != nil {
            http.Error(w, fmt.Sprintf("Error saving image: %v", err), http.StatusBadRequest)
            return
        }
        post.ImagePath = imagePath
    }

    if err := h.db.Create(&post).Error; err != nil {
        if post.ImagePath != "" {
            utils.DeleteImage(post.ImagePath)
        }
        http.Error(w, "Error creating post", http.StatusInternalServerError)
        return
    }

    h.db.Preload("Author").First(&post, post.ID)
    h.hub.Publish(live.Event{Type: live.EventPostCreated, PostID: post.ID, ActorID: userID})

    w.Header().Set("Content-Type", "application/json")
    json.NewEncoder(w).Encode(post)
}

// GetPosts retrieves all posts in creation order with pagination
func (h *PostHandler) GetPosts(w http.ResponseWriter, r *http.Request) {
    page, _ := strconv.Atoi(r.URL.Query().Get("page"))
    if page < 1 {
        page = 1
    }
    pageSize := 10

    var posts []models.Post
    var total int64

    query := h.db.Model(&models.Post{}).Preload("Author")
    query.Count(&total)

    if err := query.Order("created_at ASC").Offset((page - 1) * pageSize).Limit(pageSize).Find(&posts).Error; err != nil {
        http.Error(w, "Error retrieving posts", http.StatusInternalServerError)
        return
    }

    w.Header().Set("Content-Type", "application/json")
    json.NewEncoder(w).Encode(map[string]interface{}{
        "posts":       posts,
        "total":       total,
        "page":        page,
        "page_size":   pageSize,
        "total_pages": (total + int64(pageSize) - 1) / int64(pageSize),
    })
}

// GetPost retrieves a specific post with its threaded comments
func (h *PostHandler) GetPost(w http.ResponseWriter, r *http.Request) {
    vars := mux.Vars(r)
    postID, err := strconv.ParseUint(vars["id"], 10, 64)
    if err != nil {
        http.Error(w, "Invalid post ID", http.StatusBadRequest)
        return
    }

    var post models.Post
    if err := h.db.Preload("Author").First(&post, postID).Error; err != nil {
        http.Error(w, "Post not found", http.StatusNotFound)
        return
    }

    var comments []models.Comment
    if err := h.db.Where("post_id = ?", postID).Order("created_at ASC").
        Preload("Author").Find(&comments).Error; err != nil {
        http.Error(w, "Error retrieving comments", http.StatusInternalServerError)
        return
    }

    thread, err := BuildCommentTree(comments)
    if err != nil {
        http.Error(w, err.Error(), http.StatusUnprocessableEntity)
        return
    }
    post.Comments = thread

    w.Header().Set("Content-Type", "application/json")
    json.NewEncoder(w).Encode(post)
}

// GetPostNavigation resolves the previous/next pager for a post. Without
// a current query parameter the newest post is selected.
func (h *PostHandler) GetPostNavigation(w http.ResponseWriter, r *http.Request) {
    var currentID *uint
    if current := r.URL.Query().Get("current"); current != "" {
        parsed, err := strconv.ParseUint(current, 10, 64)
        if err != nil {
            http.Error(w, "Invalid post ID", http.StatusBadRequest)
            return
        }
        id := uint(parsed)
        currentID = &id
    }

    var posts []models.Post
    if err := h.db.Order("created_at ASC").Find(&posts).Error; err != nil {
        http.Error(w, "Error retrieving posts", http.StatusInternalServerError)
        return
    }

    nav, err := ComputeNavigation(posts, currentID)
    if err != nil {
        switch {
        case errors.Is(err, ErrNoPosts):
            w.Header().Set("Content-Type", "application/json")
            json.NewEncoder(w).Encode(map[string]interface{}{"posts": false})
        case errors.Is(err, ErrPostNotFound):
            http.Error(w, "Post not found", http.StatusNotFound)
        default:
            http.Error(w, "Error computing navigation", http.StatusInternalServerError)
        }
        return
    }

    w.Header().Set("Content-Type", "application/json")
    json.NewEncoder(w).Encode(nav)
}

// UpdatePost updates a post's title and body
func (h *PostHandler) UpdatePost(w http.ResponseWriter, r *http.Request) {
    vars := mux.Vars(r)
    postID, err := strconv.ParseUint(vars["id"], 10, 64)
    if err != nil {
        http.Error(w, "Invalid post ID", http.StatusBadRequest)
        return
    }

    userID, err := utils.GetUserIDFromContext(r.Context())
    if err != nil {
        http.Error(w, "Unauthorized", http.StatusUnauthorized)
        return
    }

    var updateData struct {
        Title string   `json:"title"`
        Body  string   `json:"body"`
        Tags  []string `json:"tags"`
    }
    if err := json.NewDecoder(r.Body).Decode(&updateData); err != nil {
        http.Error(w, "Invalid request body", http.StatusBadRequest)
        return
    }

    var post models.Post
    if err := h.db.First(&post, postID).Error; err != nil {
        http.Error(w, "Post not found", http.StatusNotFound)
        return
    }

    if post.AuthorID != userID && !utils.IsAdmin(r.Context()) {
        http.Error(w, "You are not the author of this post", http.StatusForbidden)
        return
    }

    if updateData.Title != "" {
        if err := validateTitle(updateData.Title); err != nil {
            http.Error(w, err.Error(), http.StatusBadRequest)
            return
        }
        post.Title = updateData.Title
    }
    if updateData.Body != "" {
        post.Body = updateData.Body
    }
    if updateData.Tags != nil {
        post.Tags = pq.StringArray(updateData.Tags)
    }

    if err := h.db.Save(&post).Error; err != nil {
        http.Error(w, "Error updating post", http.StatusInternalServerError)
        return
    }

    w.Header().Set("Content-Type", "application/json")
    json.NewEncoder(w).Encode(post)
}

// DeletePost deletes a post together with all of its comments
func (h *PostHandler) DeletePost(w http.ResponseWriter, r *http.Request) {
    vars := mux.Vars(r)
    postID, err := strconv.ParseUint(vars["id"], 10, 64)
    if err != nil {
        http.Error(w, "Invalid post ID", http.StatusBadRequest)
        return
    }

    userID, err := utils.GetUserIDFromContext(r.Context())
    if err != nil {
        http.Error(w, "Unauthorized", http.StatusUnauthorized)
        return
    }

    var post models.Post
    if err := h.db.First(&post, postID).Error; err != nil {
        http.Error(w, "Post not found", http.StatusNotFound)
        return
    }

    if post.AuthorID != userID && !utils.IsAdmin(r.Context()) {
        http.Error(w, "You are not the author of this post", http.StatusForbidden)
        return
    }

    tx := h.db.Begin()

    // Comments go first to keep referential integrity
    if err := tx.Where("post_id = ?", postID).Delete(&models.Comment{}).Error; err != nil {
        tx.Rollback()
        http.Error(w, "Error deleting comments", http.StatusInternalServerError)
        return
    }

    if err := tx.Delete(&post).Error; err != nil {
        tx.Rollback()
        http.Error(w, "Error deleting post", http.StatusInternalServerError)
        return
    }

    if err := tx.Commit().Error; err != nil {
        http.Error(w, "Error deleting post", http.StatusInternalServerError)
        return
    }

    if post.ImagePath != "" {
        utils.DeleteImage(post.ImagePath)
    }

    w.Header().Set("Content-Type", "application/json")
    json.NewEncoder(w).Encode(map[string]string{
        "message": "Post deleted successfully",
    })
}

// AddComment adds a comment to a post, optionally as a reply
func (h *PostHandler) AddComment(w http.ResponseWriter, r *http.Request) {
    vars := mux.Vars(r)
    postID, err := strconv.ParseUint(vars["id"], 10, 64)
    if err != nil {
        http.Error(w, "Invalid post ID", http.StatusBadRequest)
        return
    }

    userID, err := utils.GetUserIDFromContext(r.Context())
    if err != nil {
        http.Error(w, "Unauthorized", http.StatusUnauthorized)
        return
    }

    var commentRequest struct {
        Content         string `json:"content"`
        ParentCommentID *uint  `json:"parent_comment_id"`
    }
    if err := json.NewDecoder(r.Body).Decode(&commentRequest); err != nil {
        http.Error(w, "Invalid request body", http.StatusBadRequest)
        return
    }

    if strings.TrimSpace(commentRequest.Content) == "" {
        http.Error(w, "Content is required", http.StatusBadRequest)
        return
    }

    var post models.Post
    if err := h.db.First(&post, postID).Error; err != nil {
        http.Error(w, "Post not found", http.StatusNotFound)
        return
    }

    // A reply's parent has to live on the same post
    if commentRequest.ParentCommentID != nil {
        var parent models.Comment
        if err := h.db.First(&parent, *commentRequest.ParentCommentID).Error; err != nil {
            http.Error(w, "Parent comment not found", http.StatusNotFound)
            return
        }
        if parent.PostID != uint(postID) {
            http.Error(w, ErrForeignParent.Error(), http.StatusUnprocessableEntity)
            return
        }
    }

    comment := models.Comment{
        PostID:          uint(postID),
        AuthorID:        userID,
        Content:         commentRequest.Content,
        ParentCommentID: commentRequest.ParentCommentID,
    }

    if err := h.db.Create(&comment).Error; err != nil {
        http.Error(w, "Error creating comment", http.StatusInternalServerError)
        return
    }

    h.db.Preload("Author").First(&comment, comment.ID)
    h.hub.Publish(live.Event{Type: live.EventCommentAdded, PostID: uint(postID), ActorID: userID})

    w.Header().Set("Content-Type", "application/json")
    json.NewEncoder(w).Encode(comment)
}

// GetComments retrieves a post's comments as a threaded tree
func (h *PostHandler) GetComments(w http.ResponseWriter, r *http.Request) {
    vars := mux.Vars(r)
    postID, err := strconv.ParseUint(vars["id"], 10, 64)
    if err != nil {
        http.Error(w, "Invalid post ID", http.StatusBadRequest)
        return
    }

    var comments []models.Comment
    if err := h.db.Where("post_id = ?", postID).Order("created_at ASC").
        Preload("Author").Find(&comments).Error; err != nil {
        http.Error(w, "Error retrieving comments", http.StatusInternalServerError)
        return
    }

    thread, err := BuildCommentTree(comments)
    if err != nil {
        http.Error(w, err.Error(), http.StatusUnprocessableEntity)
        return
    }

    w.Header().Set("Content-Type", "application/json")
    json.NewEncoder(w).Encode(map[string]interface{}{
        "comments": thread,
        "total":    len(comments),
    })
}

// UpdateComment updates a comment's content
func (h *PostHandler) UpdateComment(w http.ResponseWriter, r *http.Request) {
    vars := mux.Vars(r)
    commentID, err := strconv.ParseUint(vars["commentId"], 10, 64)
    if err != nil {
        http.Error(w, "Invalid comment ID", http.StatusBadRequest)
        return
    }

    userID, err := utils.GetUserIDFromContext(r.Context())
    if err != nil {
        http.Error(w, "Unauthorized", http.StatusUnauthorized)
        return
    }

    var updateData struct {
        Content string `json:"content"`
    }
    if err := json.NewDecoder(r.Body).Decode(&updateData); err != nil {
        http.Error(w, "Invalid request body", http.StatusBadRequest)
        return
    }

    if strings.TrimSpace(updateData.Content) == "" {
        http.Error(w, "Content is required", http.StatusBadRequest)
        return
    }

    var comment models.Comment
    if err := h.db.First(&comment, commentID).Error; err != nil {
        http.Error(w, "Comment not found", http.StatusNotFound)
        return
    }

    if comment.AuthorID != userID && !utils.IsAdmin(r.Context()) {
        http.Error(w, "You are not the author of this comment", http.StatusForbidden)
        return
    }

    comment.Content = updateData.Content
    if err := h.db.Save(&comment).Error; err != nil {
        http.Error(w, "Error updating comment", http.StatusInternalServerError)
        return
    }

    w.Header().Set("Content-Type", "application/json")
    json.NewEncoder(w).Encode(comment)
}

// DeleteComment deletes a comment and all of its replies, transitively,
// in a single transaction
func (h *PostHandler) DeleteComment(w http.ResponseWriter, r *http.Request) {
    vars := mux.Vars(r)
    commentID, err := strconv.ParseUint(vars["commentId"], 10, 64)
    if err != nil {
        http.Error(w, "Invalid comment ID", http.StatusBadRequest)
        return
    }

    userID, err := utils.GetUserIDFromContext(r.Context())
    if err != nil {
        http.Error(w, "Unauthorized", http.StatusUnauthorized)
        return
    }

    var comment models.Comment
    if err := h.db.First(&comment, commentID).Error; err != nil {
        http.Error(w, "Comment not found", http.StatusNotFound)
        return
    }

    if comment.AuthorID != userID && !utils.IsAdmin(r.Context()) {
        http.Error(w, "You are not the author of this comment", http.StatusForbidden)
        return
    }

    deleted := 0
    err = h.db.Transaction(func(tx *gorm.DB) error {
        deleted, err = deleteCommentSubtree(tx, uint(commentID))
        return err
    })
    if err != nil {
        http.Error(w, "Error deleting comment", http.StatusInternalServerError)
        return
    }

    w.Header().Set("Content-Type", "application/json")
    json.NewEncoder(w).Encode(map[string]interface{}{
        "message": "Comment deleted successfully",
        "deleted": deleted,
    })
}

// deleteCommentSubtree removes a comment and its descendants depth-first,
// replies before their parent, and reports how many rows went away.
func deleteCommentSubtree(tx *gorm.DB, commentID uint) (int, error) {
    var replies []models.Comment
    if err := tx.Where("parent_comment_id = ?", commentID).Order("created_at ASC").
        Find(&replies).Error; err != nil {
        return 0, err
    }

    deleted := 0
    for _, reply := range replies {
        n, err := deleteCommentSubtree(tx, reply.ID)
        if err != nil {
            return deleted, err
        }
        deleted += n
    }

    if err := tx.Delete(&models.Comment{}, commentID).Error; err != nil {
        return deleted, err
    }
    return deleted + 1, nil
}
