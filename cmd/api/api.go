package api

import (
    "log"
    "net/http"

    "github.com/ariannovin/community-server/service/course"
    "github.com/ariannovin/community-server/service/forum"
    "github.com/ariannovin/community-server/service/live"
    "github.com/ariannovin/community-server/service/user"
    "github.com/gorilla/handlers"
    "github.com/gorilla/mux"
    "gorm.io/gorm"
)

type APIServer struct {
    address string
    db      *gorm.DB
}

func NewApiServer(address string, db *gorm.DB) *APIServer {
    return &APIServer{
        address: address,
        db:      db,
    }
}

func (s *APIServer) Run() error {
    router := mux.NewRouter()
    subrouter := router.PathPrefix("/api/v1").Subrouter()

    hub := live.NewHub()
    go hub.Run()

    userHandler := user.NewHandler(s.db)
    userHandler.RegisterRoutes(subrouter)

    forumHandler := forum.NewPostHandler(s.db, hub)
    forumHandler.RegisterRoutes(subrouter)

    courseHandler := course.NewCourseHandler(s.db, hub)
    courseHandler.RegisterRoutes(subrouter)

    liveHandler := live.NewHandler(hub)
    liveHandler.RegisterRoutes(router)

    fileServer := http.FileServer(http.Dir("uploads/images"))
    router.PathPrefix("/images/").Handler(http.StripPrefix("/images/", fileServer))

    cors := handlers.CORS(
        handlers.AllowedOrigins([]string{"*"}),
        handlers.AllowedMethods([]string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
        handlers.AllowedHeaders([]string{"Content-Type", "Authorization"}),
    )

    log.Println("Server running at", s.address)
    return http.ListenAndServe(s.address, cors(router))
}
