package user

import (
    "crypto/rand"
    "encoding/hex"
    "encoding/json"
    "fmt"
    "log"
    "net/http"
    "os"
    "strconv"
    "time"

    "github.com/golang-jwt/jwt/v4"
    "github.com/google/uuid"
    "gopkg.in/gomail.v2"

    "github.com/ariannovin/community-server/cmd/models"
    "github.com/ariannovin/community-server/cmd/utils"
    "github.com/gorilla/mux"
    "golang.org/x/crypto/bcrypt"
    "gorm.io/gorm"
)

const (
    accessTokenTTL  = 24 * time.Hour
    refreshTokenTTL = 7 * 24 * time.Hour
    resetTokenTTL   = time.Hour
)

type Handler struct {
    db *gorm.DB
}

func NewHandler(db *gorm.DB) *Handler {
    return &Handler{db: db}
}

// RegisterRoutes sets up all user-related routes
func (h *Handler) RegisterRoutes(router *mux.Router) {
    router.HandleFunc("/login", h.handleLogin).Methods("POST")
    router.HandleFunc("/register", h.HandleRegister).Methods("POST")
    router.HandleFunc("/refresh", h.handleRefreshToken).Methods("POST")
    router.HandleFunc("/reset-password", h.handlePasswordResetRequest).Methods("POST")
    router.HandleFunc("/reset-password/{userId}/confirm", h.handlePasswordReset).Methods("POST")

    router.HandleFunc("/users", utils.AdminMiddleware(h.GetUsers)).Methods("GET")
    router.HandleFunc("/users/{id}", h.GetUser).Methods("GET")
    router.HandleFunc("/users/{id}", utils.AuthMiddleware(h.UpdateUser)).Methods("PUT")
    router.HandleFunc("/users/{id}", utils.AuthMiddleware(h.DeleteUser)).Methods("DELETE")
    router.HandleFunc("/users/{id}/role", utils.AdminMiddleware(h.UpdateUserRole)).Methods("PUT")
}

func generateAccessToken(user *models.User) (string, error) {
    claims := utils.AccessClaims{
        Role: user.Role,
        RegisteredClaims: jwt.RegisteredClaims{
            Subject:   strconv.FormatUint(uint64(user.ID), 10),
            ExpiresAt: jwt.NewNumericDate(time.Now().Add(accessTokenTTL)),
            IssuedAt:  jwt.NewNumericDate(time.Now()),
        },
    }
    token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
    return token.SignedString([]byte(os.Getenv("SECRET_KEY")))
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
    var loginRequest struct {
        Email    string `json:"email"`
        Password string `json:"password"`
    }
    if err := json.NewDecoder(r.Body).Decode(&loginRequest); err != nil {
        http.Error(w, "Invalid request body", http.StatusBadRequest)
        return
    }

    var user models.User
    if err := h.db.Where("email = ?", loginRequest.Email).First(&user).Error; err != nil {
        http.Error(w, "Invalid email or password", http.StatusUnauthorized)
        return
    }

    if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(loginRequest.Password)); err != nil {
        http.Error(w, "Invalid email or password", http.StatusUnauthorized)
        return
    }

    accessToken, err := generateAccessToken(&user)
    if err != nil {
        http.Error(w, "Error generating token", http.StatusInternalServerError)
        return
    }

    refreshToken := uuid.New().String()
    user.Refresh = refreshToken
    user.RefreshTokenExpiredAt = time.Now().Add(refreshTokenTTL)
    if err := h.db.Save(&user).Error; err != nil {
        http.Error(w, "Error saving refresh token", http.StatusInternalServerError)
        return
    }

    w.Header().Set("Content-Type", "application/json")
    json.NewEncoder(w).Encode(map[string]interface{}{
        "access_token":  accessToken,
        "refresh_token": refreshToken,
        "user":          user,
    })
}

// HandleRegister creates a new member account
func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
    var registerRequest struct {
        FullName string `json:"full_name"`
        Email    string `json:"email"`
        Password string `json:"password"`
        Phone    string `json:"phone"`
    }
    if err := json.NewDecoder(r.Body).Decode(&registerRequest); err != nil {
        http.Error(w, "Invalid request body", http.StatusBadRequest)
        return
    }

    if registerRequest.FullName == "" || registerRequest.Email == "" {
        http.Error(w, "Full name and email are required", http.StatusBadRequest)
        return
    }
    if len(registerRequest.Password) < 8 {
        http.Error(w, "Password must be at least 8 characters", http.StatusBadRequest)
        return
    }

    var existing models.User
    if err := h.db.Where("email = ?", registerRequest.Email).First(&existing).Error; err == nil {
        http.Error(w, "Email is already registered", http.StatusConflict)
        return
    }

    passwordHash, err := bcrypt.GenerateFromPassword([]byte(registerRequest.Password), bcrypt.DefaultCost)
    if err != nil {
        http.Error(w, "Error processing password", http.StatusInternalServerError)
        return
    }

    user := models.User{
        FullName:     registerRequest.FullName,
        Email:        registerRequest.Email,
        PasswordHash: string(passwordHash),
        Phone:        registerRequest.Phone,
        Role:         models.RoleMember,
    }

    if err := h.db.Create(&user).Error; err != nil {
        http.Error(w, "Error creating user", http.StatusInternalServerError)
        return
    }

    w.Header().Set("Content-Type", "application/json")
    w.WriteHeader(http.StatusCreated)
    json.NewEncoder(w).Encode(user)
}

func (h *Handler) handleRefreshToken(w http.ResponseWriter, r *http.Request) {
    var refreshRequest struct {
        RefreshToken string `json:"refresh_token"`
    }
    if err := json.NewDecoder(r.Body).Decode(&refreshRequest); err != nil {
        http.Error(w, "Invalid request body", http.StatusBadRequest)
        return
    }

    var user models.User
    if err := h.db.Where("refresh_token = ?", refreshRequest.RefreshToken).First(&user).Error; err != nil {
        http.Error(w, "Invalid refresh token", http.StatusUnauthorized)
        return
    }

    if time.Now().After(user.RefreshTokenExpiredAt) {
        http.Error(w, "Refresh token expired", http.StatusUnauthorized)
        return
    }

    accessToken, err := generateAccessToken(&user)
    if err != nil {
        http.Error(w, "Error generating token", http.StatusInternalServerError)
        return
    }

    w.Header().Set("Content-Type", "application/json")
    json.NewEncoder(w).Encode(map[string]string{
        "access_token": accessToken,
    })
}

func sendPasswordResetEmail(to string, userID uint, token string) error {
    m := gomail.NewMessage()
    m.SetHeader("From", os.Getenv("SMTP_FROM"))
    m.SetHeader("To", to)
    m.SetHeader("Subject", "Password Reset Request")
    m.SetBody("text/plain", fmt.Sprintf(
        "A password reset was requested for your account.\n\n"+
            "Reset token: %s\n"+
            "Confirm at: /api/v1/reset-password/%d/confirm\n\n"+
            "The token expires in one hour. If you did not request this, ignore this email.",
        token, userID,
    ))

    port, err := strconv.Atoi(os.Getenv("SMTP_PORT"))
    if err != nil {
        port = 587
    }
    d := gomail.NewDialer(os.Getenv("SMTP_HOST"), port, os.Getenv("SMTP_USER"), os.Getenv("SMTP_PASS"))
    return d.DialAndSend(m)
}

func (h *Handler) handlePasswordResetRequest(w http.ResponseWriter, r *http.Request) {
    var resetRequest struct {
        Email string `json:"email"`
    }
    if err := json.NewDecoder(r.Body).Decode(&resetRequest); err != nil {
        http.Error(w, "Invalid request body", http.StatusBadRequest)
        return
    }

    var user models.User
    if err := h.db.Where("email = ?", resetRequest.Email).First(&user).Error; err != nil {
        // Do not reveal whether the address exists
        w.Header().Set("Content-Type", "application/json")
        json.NewEncoder(w).Encode(map[string]string{
            "message": "If the email exists, a reset link has been sent",
        })
        return
    }

    buf := make([]byte, 32)
    if _, err := rand.Read(buf); err != nil {
        http.Error(w, "Error generating reset token", http.StatusInternalServerError)
        return
    }
    token := hex.EncodeToString(buf)

    h.db.Where("user_id = ?", user.ID).Delete(&models.PasswordResetToken{})
    resetToken := models.PasswordResetToken{
        UserID:    user.ID,
        Token:     token,
        ExpiresAt: time.Now().Add(resetTokenTTL),
    }
    if err := h.db.Create(&resetToken).Error; err != nil {
        http.Error(w, "Error creating reset token", http.StatusInternalServerError)
        return
    }

    if err := sendPasswordResetEmail(user.Email, user.ID, token); err != nil {
        log.Printf("Error sending reset email to user %d: %v", user.ID, err)
        http.Error(w, "Error sending reset email", http.StatusInternalServerError)
        return
    }

    w.Header().Set("Content-Type", "application/json")
    json.NewEncoder(w).Encode(map[string]string{
        "message": "If the email exists, a reset link has been sent",
    })
}

func (h *Handler) handlePasswordReset(w http.ResponseWriter, r *http.Request) {
    vars := mux.Vars(r)
    userID, err := strconv.ParseUint(vars["userId"], 10, 64)
    if err != nil {
        http.Error(w, "Invalid user ID", http.StatusBadRequest)
        return
    }

    var resetRequest struct {
        Token    string `json:"token"`
        Password string `json:"password"`
    }
    if err := json.NewDecoder(r.Body).Decode(&resetRequest); err != nil {
        http.Error(w, "Invalid request body", http.StatusBadRequest)
        return
    }

    if len(resetRequest.Password) < 8 {
        http.Error(w, "Password must be at least 8 characters", http.StatusBadRequest)
        return
    }

    var resetToken models.PasswordResetToken
    if err := h.db.Where("user_id = ? AND token = ?", userID, resetRequest.Token).
        First(&resetToken).Error; err != nil {
        http.Error(w, "Invalid reset token", http.StatusUnauthorized)
        return
    }

    if time.Now().After(resetToken.ExpiresAt) {
        h.db.Delete(&resetToken)
        http.Error(w, "Reset token expired", http.StatusUnauthorized)
        return
    }

    passwordHash, err := bcrypt.GenerateFromPassword([]byte(resetRequest.Password), bcrypt.DefaultCost)
    if err != nil {
        http.Error(w, "Error processing password", http.StatusInternalServerError)
        return
    }

    if err := h.db.Model(&models.User{}).Where("id = ?", userID).
        Update("password_hash", string(passwordHash)).Error; err != nil {
        http.Error(w, "Error updating password", http.StatusInternalServerError)
        return
    }

    h.db.Delete(&resetToken)

    w.Header().Set("Content-Type", "application/json")
    json.NewEncoder(w).Encode(map[string]string{
        "message": "Password reset successfully",
    })
}

// GetUsers lists all users (admin only)
func (h *Handler) GetUsers(w http.ResponseWriter, r *http.Request) {
    var users []models.User
    if err := h.db.Order("created_at ASC").Find(&users).Error; err != nil {
        http.Error(w, "Error retrieving users", http.StatusInternalServerError)
        return
    }

    w.Header().Set("Content-Type", "application/json")
    json.NewEncoder(w).Encode(users)
}

func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
    vars := mux.Vars(r)
    userID, err := strconv.ParseUint(vars["id"], 10, 64)
    if err != nil {
        http.Error(w, "Invalid user ID", http.StatusBadRequest)
        return
    }

    var user models.User
    if err := h.db.First(&user, userID).Error; err != nil {
        http.Error(w, "User not found", http.StatusNotFound)
        return
    }

    w.Header().Set("Content-Type", "application/json")
    json.NewEncoder(w).Encode(user)
}

// UpdateUser updates profile fields; only the account owner or an admin may call it
func (h *Handler) UpdateUser(w http.ResponseWriter, r *http.Request) {
    vars := mux.Vars(r)
    targetID, err := strconv.ParseUint(vars["id"], 10, 64)
    if err != nil {
        http.Error(w, "Invalid user ID", http.StatusBadRequest)
        return
    }

    actorID, err := utils.GetUserIDFromContext(r.Context())
    if err != nil {
        http.Error(w, "Unauthorized", http.StatusUnauthorized)
        return
    }
    if actorID != uint(targetID) && !utils.IsAdmin(r.Context()) {
        http.Error(w, "You may only update your own account", http.StatusForbidden)
        return
    }

    var updateData struct {
        FullName string `json:"full_name"`
        Phone    string `json:"phone"`
    }
    if err := json.NewDecoder(r.Body).Decode(&updateData); err != nil {
        http.Error(w, "Invalid request body", http.StatusBadRequest)
        return
    }

    var user models.User
    if err := h.db.First(&user, targetID).Error; err != nil {
        http.Error(w, "User not found", http.StatusNotFound)
        return
    }

    if updateData.FullName != "" {
        user.FullName = updateData.FullName
    }
    if updateData.Phone != "" {
        user.Phone = updateData.Phone
    }

    if err := h.db.Save(&user).Error; err != nil {
        http.Error(w, "Error updating user", http.StatusInternalServerError)
        return
    }

    w.Header().Set("Content-Type", "application/json")
    json.NewEncoder(w).Encode(user)
}

// DeleteUser removes an account; only the account owner or an admin may call it
func (h *Handler) DeleteUser(w http.ResponseWriter, r *http.Request) {
    vars := mux.Vars(r)
    targetID, err := strconv.ParseUint(vars["id"], 10, 64)
    if err != nil {
        http.Error(w, "Invalid user ID", http.StatusBadRequest)
        return
    }

    actorID, err := utils.GetUserIDFromContext(r.Context())
    if err != nil {
        http.Error(w, "Unauthorized", http.StatusUnauthorized)
        return
    }
    if actorID != uint(targetID) && !utils.IsAdmin(r.Context()) {
        http.Error(w, "You may only delete your own account", http.StatusForbidden)
        return
    }

    var user models.User
    if err := h.db.First(&user, targetID).Error; err != nil {
        http.Error(w, "User not found", http.StatusNotFound)
        return
    }

    if err := h.db.Delete(&user).Error; err != nil {
        http.Error(w, "Error deleting user", http.StatusInternalServerError)
        return
    }

    w.Header().Set("Content-Type", "application/json")
    json.NewEncoder(w).Encode(map[string]string{
        "message": "User deleted successfully",
    })
}

// UpdateUserRole promotes or demotes a user (admin only)
func (h *Handler) UpdateUserRole(w http.ResponseWriter, r *http.Request) {
    vars := mux.Vars(r)
    targetID, err := strconv.ParseUint(vars["id"], 10, 64)
    if err != nil {
        http.Error(w, "Invalid user ID", http.StatusBadRequest)
        return
    }

    var roleRequest struct {
        Role string `json:"role"`
    }
    if err := json.NewDecoder(r.Body).Decode(&roleRequest); err != nil {
        http.Error(w, "Invalid request body", http.StatusBadRequest)
        return
    }
    if roleRequest.Role != models.RoleMember && roleRequest.Role != models.RoleAdmin {
        http.Error(w, "Unknown role", http.StatusBadRequest)
        return
    }

    var user models.User
    if err := h.db.First(&user, targetID).Error; err != nil {
        http.Error(w, "User not found", http.StatusNotFound)
        return
    }

    user.Role = roleRequest.Role
    if err := h.db.Save(&user).Error; err != nil {
        http.Error(w, "Error updating role", http.StatusInternalServerError)
        return
    }

    w.Header().Set("Content-Type", "application/json")
    json.NewEncoder(w).Encode(user)
}
