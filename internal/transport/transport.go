// Package transport talks to the game server: session grants over HTTP,
// gameplay traffic over one websocket per session. The Dialer/Conn
// interfaces exist so the session manager can be tested against fakes.
package transport

import (
	"context"
	"encoding/json"

	"example.com/crew-client/internal/wire"
)

// Grant is the result of a successful create/join/reconnect request.
// ReconnectToken is opaque and single-use; the server rotates it on every
// successful (re)connection.
type Grant struct {
	RoomID         string `json:"roomId"`
	SessionID      string `json:"sessionId"`
	ReconnectToken string `json:"reconnectToken"`
}

// RoomInfo is a row of the read-only room listing.
type RoomInfo struct {
	RoomID     string          `json:"roomId"`
	Clients    int             `json:"clients"`
	MaxClients int             `json:"maxClients"`
	Metadata   json.RawMessage `json:"metadata,omitempty"`
}

// Conn is a live gameplay connection.
type Conn interface {
	Send(env wire.Envelope) error
	Read() (wire.Envelope, error)
	Close() error
}

// Dialer covers everything the session layer needs from the network.
type Dialer interface {
	CreateRoom(ctx context.Context, displayName string) (Grant, error)
	JoinRoom(ctx context.Context, roomCode, displayName string) (Grant, error)
	Reconnect(ctx context.Context, roomID, token string) (Grant, error)
	Attach(ctx context.Context, g Grant) (Conn, error)
	ListRooms(ctx context.Context) ([]RoomInfo, error)
}
