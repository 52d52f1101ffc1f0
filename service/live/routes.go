package live

import (
    "log"
    "net/http"
    "time"

    "github.com/ariannovin/community-server/cmd/utils"
    "github.com/gorilla/mux"
    "github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
    ReadBufferSize:  1024,
    WriteBufferSize: 1024,
    CheckOrigin: func(r *http.Request) bool {
        return true
    },
}

// Client is one websocket subscriber of the activity feed.
type Client struct {
    UserID uint
    Conn   *websocket.Conn
    Send   chan []byte
    hub    *Hub
}

type Handler struct {
    hub *Hub
}

func NewHandler(hub *Hub) *Handler {
    return &Handler{hub: hub}
}

func (h *Handler) RegisterRoutes(router *mux.Router) {
    router.HandleFunc("/ws/activity", utils.AuthMiddleware(h.HandleActivityFeed))
}

// HandleActivityFeed upgrades the connection and subscribes the caller
// to the activity broadcast.
func (h *Handler) HandleActivityFeed(w http.ResponseWriter, r *http.Request) {
    userID, err := utils.GetUserIDFromContext(r.Context())
    if err != nil {
        http.Error(w, "Unauthorized", http.StatusUnauthorized)
        return
    }

    conn, err := upgrader.Upgrade(w, r, nil)
    if err != nil {
        log.Printf("live: websocket upgrade failed: %v", err)
        return
    }

    client := &Client{
        UserID: userID,
        Conn:   conn,
        Send:   make(chan []byte, 256),
        hub:    h.hub,
    }
    h.hub.Register <- client

    go client.writePump()
    go client.readPump()
}

func (c *Client) writePump() {
    ticker := time.NewTicker(30 * time.Second)
    defer func() {
        ticker.Stop()
        c.Conn.Close()
    }()

    for {
        select {
        case msg, ok := <-c.Send:
            if !ok {
                c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
                return
            }
            if err := c.Conn.WriteMessage(websocket.TextMessage, msg); err != nil {
                return
            }
        case <-ticker.C:
            if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
                return
            }
        }
    }
}

// readPump discards inbound frames; the feed is one-way. It exists to
// notice the close handshake and unregister the client.
func (c *Client) readPump() {
    defer func() {
        c.hub.Unregister <- c
        c.Conn.Close()
    }()

    for {
        if _, _, err := c.Conn.ReadMessage(); err != nil {
            if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
                log.Printf("live: unexpected close for user %d: %v", c.UserID, err)
            }
            return
        }
    }
}
