package live

import (
    "encoding/json"
    "log"
    "sync"
    "time"
)

const (
    EventPostCreated        = "post.created"
    EventCommentAdded       = "comment.added"
    EventEnrollmentAccepted = "enrollment.accepted"
)

// Event is one activity notification fanned out to connected clients.
type Event struct {
    Type     string    `json:"type"`
    PostID   uint      `json:"post_id,omitempty"`
    CourseID uint      `json:"course_id,omitempty"`
    ActorID  uint      `json:"actor_id"`
    At       time.Time `json:"at"`
}

// Hub fans activity events out to every connected websocket client.
type Hub struct {
    Register   chan *Client
    Unregister chan *Client
    Broadcast  chan Event

    clients map[*Client]bool
    mu      sync.RWMutex
}

func NewHub() *Hub {
    return &Hub{
        Register:   make(chan *Client),
        Unregister: make(chan *Client),
        Broadcast:  make(chan Event, 64),
        clients:    make(map[*Client]bool),
    }
}

// Publish queues an event for broadcast. Safe to call from handlers; a
// nil hub or a full queue drops the event rather than blocking a request.
func (h *Hub) Publish(event Event) {
    if h == nil {
        return
    }
    event.At = time.Now()
    select {
    case h.Broadcast <- event:
    default:
        log.Printf("live: dropping %s event, broadcast queue full", event.Type)
    }
}

func (h *Hub) Run() {
    for {
        select {
        case client := <-h.Register:
            h.mu.Lock()
            h.clients[client] = true
            h.mu.Unlock()

        case client := <-h.Unregister:
            h.mu.Lock()
            if _, ok := h.clients[client]; ok {
                delete(h.clients, client)
                close(client.Send)
            }
            h.mu.Unlock()

        case event := <-h.Broadcast:
            msg, err := json.Marshal(event)
            if err != nil {
                log.Printf("live: error encoding event: %v", err)
                continue
            }

            h.mu.Lock()
            for client := range h.clients {
                select {
                case client.Send <- msg:
                default:
                    delete(h.clients, client)
                    close(client.Send)
                }
            }
            h.mu.Unlock()
        }
    }
}
