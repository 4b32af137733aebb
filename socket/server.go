package socket

import (
	"context"
	"log"

	"skillswap_server/services"

	socketio "github.com/googollee/go-socket.io"
)

// NewSocketServer initializes the Socket.IO server that relays chat
// messages inside a room. Joining validates the room against the
// session broker so expired or deleted rooms reject new listeners.
func NewSocketServer(sessionService *services.SessionService) *socketio.Server {
	server := socketio.NewServer(nil)

	server.OnConnect("/", func(s socketio.Conn) error {
		log.Println("✅ Socket connected:", s.ID())
		return nil
	})

	server.OnEvent("/", "join", func(s socketio.Conn, roomID string) {
		if roomID == "" {
			log.Println("❌ Invalid roomId in join request")
			return
		}

		session, err := sessionService.GetSession(context.Background(), roomID)
		if err != nil {
			log.Printf("❌ Join rejected, room %s not found", roomID)
			s.Emit("roomError", "room not found")
			return
		}
		if services.IsExpired(session, sessionService.Now()) {
			log.Printf("❌ Join rejected, room %s expired", roomID)
			s.Emit("roomError", "room expired")
			return
		}

		log.Printf("👥 Socket %s joined room %s\n", s.ID(), roomID)
		s.Join(roomID)
	})

	server.OnEvent("/", "sendMessage", func(s socketio.Conn, message map[string]interface{}) {
		roomID, _ := message["roomId"].(string)
		if roomID == "" {
			log.Println("❌ sendMessage without roomId")
			return
		}
		server.BroadcastToRoom("/", roomID, "newMessage", message)
	})

	server.OnError("/", func(s socketio.Conn, err error) {
		log.Println("❌ Socket error:", err)
	})

	server.OnDisconnect("/", func(s socketio.Conn, reason string) {
		log.Println("👋 Socket disconnected:", reason)
	})

	return server
}
