package course

import (
    "encoding/json"
    "errors"
    "net/http"
    "strconv"
    "strings"
    "time"

    "github.com/ariannovin/community-server/cmd/models"
    "github.com/ariannovin/community-server/cmd/utils"
    "github.com/ariannovin/community-server/service/live"
    "github.com/gorilla/mux"
    "gorm.io/gorm"
)

type CourseHandler struct {
    db  *gorm.DB
    hub *live.Hub
}

func NewCourseHandler(db *gorm.DB, hub *live.Hub) *CourseHandler {
    return &CourseHandler{db: db, hub: hub}
}

func (h *CourseHandler) RegisterRoutes(router *mux.Router) {
    router.HandleFunc("/courses", utils.AdminMiddleware(h.CreateCourse)).Methods("POST")
    router.HandleFunc("/courses", h.GetCourses).Methods("GET")
    router.HandleFunc("/courses/{id}", h.GetCourse).Methods("GET")
    router.HandleFunc("/courses/{id}", utils.AdminMiddleware(h.UpdateCourse)).Methods("PUT")
    router.HandleFunc("/courses/{id}", utils.AdminMiddleware(h.DeleteCourse)).Methods("DELETE")

    router.HandleFunc("/courses/{id}/enroll", utils.AuthMiddleware(h.Enroll)).Methods("POST")
    router.HandleFunc("/enrollments", utils.AuthMiddleware(h.GetMyEnrollments)).Methods("GET")
}

type courseRequest struct {
    Title        string    `json:"title"`
    Description  string    `json:"description"`
    Instructor   string    `json:"instructor"`
    StartDate    time.Time `json:"start_date"`
    EndDate      time.Time `json:"end_date"`
    MaxAttendees int       `json:"max_attendees"`
}

func (req *courseRequest) validate() error {
    if strings.TrimSpace(req.Title) == "" {
        return errors.New("title is required")
    }
    if strings.TrimSpace(req.Instructor) == "" {
        return errors.New("instructor is required")
    }
    if req.MaxAttendees < 0 {
        return errors.New("max_attendees must not be negative")
    }
    if req.EndDate.Before(req.StartDate) {
        return errors.New("end_date must not precede start_date")
    }
    return nil
}

// CreateCourse creates a new course (admin only)
func (h *CourseHandler) CreateCourse(w http.ResponseWriter, r *http.Request) {
    var req courseRequest
    if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
        http.Error(w, "Invalid request body", http.StatusBadRequest)
        return
    }
    if err := req.validate(); err != nil {
        http.Error(w, err.Error(), http.StatusBadRequest)
        return
    }

    course := models.Course{
        Title:        req.Title,
        Description:  req.Description,
        Instructor:   req.Instructor,
        StartDate:    req.StartDate,
        EndDate:      req.EndDate,
        MaxAttendees: req.MaxAttendees,
    }

    if err := h.db.Create(&course).Error; err != nil {
        http.Error(w, "Error creating course", http.StatusInternalServerError)
        return
    }

    w.Header().Set("Content-Type", "application/json")
    w.WriteHeader(http.StatusCreated)
    json.NewEncoder(w).Encode(course)
}

// GetCourses lists all courses with their seat usage
func (h *CourseHandler) GetCourses(w http.ResponseWriter, r *http.Request) {
    var courses []models.Course
    if err := h.db.Preload("Enrollments").Order("start_date ASC").Find(&courses).Error; err != nil {
        http.Error(w, "Error retrieving courses", http.StatusInternalServerError)
        return
    }

    result := make([]map[string]interface{}, 0, len(courses))
    for _, course := range courses {
        result = append(result, map[string]interface{}{
            "course":     course,
            "enrolled":   len(course.Enrollments),
            "seats_left": course.MaxAttendees - len(course.Enrollments),
        })
    }

    w.Header().Set("Content-Type", "application/json")
    json.NewEncoder(w).Encode(map[string]interface{}{
        "courses": result,
        "total":   len(courses),
    })
}

// GetCourse retrieves a course with its enrollments and their users
func (h *CourseHandler) GetCourse(w http.ResponseWriter, r *http.Request) {
    vars := mux.Vars(r)
    courseID, err := strconv.ParseUint(vars["id"], 10, 64)
    if err != nil {
        http.Error(w, "Invalid course ID", http.StatusBadRequest)
        return
    }

    var course models.Course
    if err := h.db.Preload("Enrollments.User").First(&course, courseID).Error; err != nil {
        http.Error(w, "Course not found", http.StatusNotFound)
        return
    }

    w.Header().Set("Content-Type", "application/json")
    json.NewEncoder(w).Encode(course)
}

// UpdateCourse updates course fields (admin only)
func (h *CourseHandler) UpdateCourse(w http.ResponseWriter, r *http.Request) {
    vars := mux.Vars(r)
    courseID, err := strconv.ParseUint(vars["id"], 10, 64)
    if err != nil {
        http.Error(w, "Invalid course ID", http.StatusBadRequest)
        return
    }

    var course models.Course
    if err := h.db.First(&course, courseID).Error; err != nil {
        http.Error(w, "Course not found", http.StatusNotFound)
        return
    }

    var req courseRequest
    if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
        http.Error(w, "Invalid request body", http.StatusBadRequest)
        return
    }

    if req.Title != "" {
        course.Title = req.Title
    }
    if req.Description != "" {
        course.Description = req.Description
    }
    if req.Instructor != "" {
        course.Instructor = req.Instructor
    }
    if !req.StartDate.IsZero() {
        course.StartDate = req.StartDate
    }
    if !req.EndDate.IsZero() {
        course.EndDate = req.EndDate
    }
    if req.MaxAttendees > 0 {
        course.MaxAttendees = req.MaxAttendees
    }
    if course.EndDate.Before(course.StartDate) {
        http.Error(w, "end_date must not precede start_date", http.StatusBadRequest)
        return
    }

    if err := h.db.Save(&course).Error; err != nil {
        http.Error(w, "Error updating course", http.StatusInternalServerError)
        return
    }

    w.Header().Set("Content-Type", "application/json")
    json.NewEncoder(w).Encode(course)
}

// DeleteCourse deletes a course and its enrollments (admin only)
func (h *CourseHandler) DeleteCourse(w http.ResponseWriter, r *http.Request) {
    vars := mux.Vars(r)
    courseID, err := strconv.ParseUint(vars["id"], 10, 64)
    if err != nil {
        http.Error(w, "Invalid course ID", http.StatusBadRequest)
        return
    }

    var course models.Course
    if err := h.db.First(&course, courseID).Error; err != nil {
        http.Error(w, "Course not found", http.StatusNotFound)
        return
    }

    tx := h.db.Begin()

    if err := tx.Where("course_id = ?", courseID).Delete(&models.Enrollment{}).Error; err != nil {
        tx.Rollback()
        http.Error(w, "Error deleting enrollments", http.StatusInternalServerError)
        return
    }

    if err := tx.Delete(&course).Error; err != nil {
        tx.Rollback()
        http.Error(w, "Error deleting course", http.StatusInternalServerError)
        return
    }

    if err := tx.Commit().Error; err != nil {
        http.Error(w, "Error deleting course", http.StatusInternalServerError)
        return
    }

    w.Header().Set("Content-Type", "application/json")
    json.NewEncoder(w).Encode(map[string]string{
        "message": "Course deleted successfully",
    })
}

// Enroll admits the authenticated user into a course if a seat is free
func (h *CourseHandler) Enroll(w http.ResponseWriter, r *http.Request) {
    vars := mux.Vars(r)
    courseID, err := strconv.ParseUint(vars["id"], 10, 64)
    if err != nil {
        http.Error(w, "Invalid course ID", http.StatusBadRequest)
        return
    }

    userID, err := utils.GetUserIDFromContext(r.Context())
    if err != nil {
        http.Error(w, "Unauthorized", http.StatusUnauthorized)
        return
    }

    enrollment, err := TryEnroll(h.db, uint(courseID), userID)
    if err != nil {
        switch {
        case errors.Is(err, ErrAlreadyEnrolled):
            // Repeat attempts succeed without a second row
            w.Header().Set("Content-Type", "application/json")
            json.NewEncoder(w).Encode(map[string]string{
                "message": "Already enrolled in this course",
            })
        case errors.Is(err, ErrCourseFull):
            http.Error(w, ErrCourseFull.Error(), http.StatusConflict)
        case errors.Is(err, gorm.ErrRecordNotFound):
            http.Error(w, "Course not found", http.StatusNotFound)
        default:
            http.Error(w, "Error enrolling in course", http.StatusInternalServerError)
        }
        return
    }

    h.hub.Publish(live.Event{Type: live.EventEnrollmentAccepted, CourseID: uint(courseID), ActorID: userID})

    w.Header().Set("Content-Type", "application/json")
    w.WriteHeader(http.StatusCreated)
    json.NewEncoder(w).Encode(enrollment)
}

// GetMyEnrollments lists the authenticated user's enrollments
func (h *CourseHandler) GetMyEnrollments(w http.ResponseWriter, r *http.Request) {
    userID, err := utils.GetUserIDFromContext(r.Context())
    if err != nil {
        http.Error(w, "Unauthorized", http.StatusUnauthorized)
        return
    }

    var enrollments []models.Enrollment
    if err := h.db.Where("user_id = ?", userID).Preload("Course").
        Order("enrolled_at DESC").Find(&enrollments).Error; err != nil {
        http.Error(w, "Error retrieving enrollments", http.StatusInternalServerError)
        return
    }

    w.Header().Set("Content-Type", "application/json")
    json.NewEncoder(w).Encode(map[string]interface{}{
        "enrollments": enrollments,
        "total":       len(enrollments),
    })
}
