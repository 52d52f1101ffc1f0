package utils

import (
    "context"
    "errors"
    "net/http"
    "os"
    "strconv"
    "strings"

    "github.com/ariannovin/community-server/cmd/models"
    "github.com/golang-jwt/jwt/v4"
)

type contextKey string

const (
    UserIDKey contextKey = "userID"
    RoleKey   contextKey = "role"
)

// AccessClaims is what goes into an access token: the standard claims
// with the user id as subject, plus the user's role so handlers never
// re-derive permissions from the database.
type AccessClaims struct {
    Role string `json:"role"`
    jwt.RegisteredClaims
}

func GetUserIDFromContext(ctx context.Context) (uint, error) {
    userID, ok := ctx.Value(UserIDKey).(uint)
    if !ok {
        return 0, errors.New("user ID not found in context")
    }
    return userID, nil
}

func GetRoleFromContext(ctx context.Context) (string, error) {
    role, ok := ctx.Value(RoleKey).(string)
    if !ok {
        return "", errors.New("role not found in context")
    }
    return role, nil
}

// IsAdmin reports whether the authenticated actor carries the admin role.
func IsAdmin(ctx context.Context) bool {
    role, err := GetRoleFromContext(ctx)
    return err == nil && role == models.RoleAdmin
}

func parseAccessToken(r *http.Request) (*AccessClaims, error) {
    authHeader := r.Header.Get("Authorization")
    if authHeader == "" {
        return nil, errors.New("authorization header required")
    }
    tokenString := strings.Replace(authHeader, "Bearer ", "", 1)

    claims := &AccessClaims{}
    token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
        return []byte(os.Getenv("SECRET_KEY")), nil
    })
    if err != nil || !token.Valid {
        return nil, errors.New("invalid token")
    }
    return claims, nil
}

// AuthMiddleware validates the bearer token and stores the actor's id
// and role in the request context.
func AuthMiddleware(next http.HandlerFunc) http.HandlerFunc {
    return func(w http.ResponseWriter, r *http.Request) {
        claims, err := parseAccessToken(r)
        if err != nil {
            http.Error(w, err.Error(), http.StatusUnauthorized)
            return
        }

        userID, err := strconv.ParseUint(claims.Subject, 10, 64)
        if err != nil {
            http.Error(w, "Invalid user ID in token", http.StatusUnauthorized)
            return
        }

        ctx := context.WithValue(r.Context(), UserIDKey, uint(userID))
        ctx = context.WithValue(ctx, RoleKey, claims.Role)
        next.ServeHTTP(w, r.WithContext(ctx))
    }
}

// AdminMiddleware is AuthMiddleware plus an admin role requirement.
func AdminMiddleware(next http.HandlerFunc) http.HandlerFunc {
    return AuthMiddleware(func(w http.ResponseWriter, r *http.Request) {
        if !IsAdmin(r.Context()) {
            http.Error(w, "Admin access required", http.StatusForbidden)
            return
        }
        next.ServeHTTP(w, r)
    })
}
