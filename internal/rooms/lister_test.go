package rooms

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"example.com/crew-client/internal/transport"
)

type listOnlyDialer struct {
	calls atomic.Int64
	rooms []transport.RoomInfo
	err   error
}

func (d *listOnlyDialer) ListRooms(ctx context.Context) ([]transport.RoomInfo, error) {
	d.calls.Add(1)
	return d.rooms, d.err
}

func (d *listOnlyDialer) CreateRoom(ctx context.Context, displayName string) (transport.Grant, error) {
	return transport.Grant{}, errors.New("not implemented")
}
func (d *listOnlyDialer) JoinRoom(ctx context.Context, roomCode, displayName string) (transport.Grant, error) {
	return transport.Grant{}, errors.New("not implemented")
}
func (d *listOnlyDialer) Reconnect(ctx context.Context, roomID, token string) (transport.Grant, error) {
	return transport.Grant{}, errors.New("not implemented")
}
func (d *listOnlyDialer) Attach(ctx context.Context, g transport.Grant) (transport.Conn, error) {
	return nil, errors.New("not implemented")
}

func TestLister_DeliversUpdates(t *testing.T) {
	d := &listOnlyDialer{rooms: []transport.RoomInfo{{RoomID: "R1", Clients: 1, MaxClients: 5}}}

	got := make(chan []transport.RoomInfo, 4)
	l := NewLister(d, 10*time.Millisecond, func(rs []transport.RoomInfo) { got <- rs }, nil)
	l.Start(context.Background())
	defer l.Stop()

	select {
	case rs := <-got:
		require.Len(t, rs, 1)
		assert.Equal(t, "R1", rs[0].RoomID)
	case <-time.After(time.Second):
		t.Fatal("no room update delivered")
	}
}

func TestLister_ErrorsAreSilent(t *testing.T) {
	d := &listOnlyDialer{err: errors.New("server down")}

	l := NewLister(d, 5*time.Millisecond, func([]transport.RoomInfo) {
		t.Error("callback must not fire on poll errors")
	}, nil)
	l.Start(context.Background())

	require.Eventually(t, func() bool { return d.calls.Load() >= 2 },
		time.Second, time.Millisecond, "polls keep going after an error")

	l.Stop()
	l.Stop() // idempotent
}
