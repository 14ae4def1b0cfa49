package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"example.com/crew-client/internal/auth"
)

const joinTokenTTL = 2 * time.Minute

// APIError is a non-2xx response body: {"code":"...","message":"..."}.
type APIError struct {
	Status  int
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("server: %s (%s, http %d)", e.Message, e.Code, e.Status)
}

// Client is the real Dialer.
type Client struct {
	baseURL string // e.g. http://localhost:8080
	secret  []byte // shared application secret
	hc      *http.Client
	ws      websocket.Dialer
}

func NewClient(baseURL string, secret []byte, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		secret:  secret,
		hc:      &http.Client{Timeout: timeout},
		ws:      websocket.Dialer{HandshakeTimeout: timeout},
	}
}

func (c *Client) CreateRoom(ctx context.Context, displayName string) (Grant, error) {
	return c.grantRequest(ctx, "/api/rooms", displayName, map[string]string{
		"displayName": displayName,
	})
}

func (c *Client) JoinRoom(ctx context.Context, roomCode, displayName string) (Grant, error) {
	return c.grantRequest(ctx, "/api/rooms/"+roomCode+"/join", displayName, map[string]string{
		"displayName": displayName,
	})
}

func (c *Client) Reconnect(ctx context.Context, roomID, token string) (Grant, error) {
	return c.grantRequest(ctx, "/api/rooms/"+roomID+"/reconnect", "", map[string]string{
		"reconnectToken": token,
	})
}

func (c *Client) ListRooms(ctx context.Context) ([]RoomInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/rooms", nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("list rooms: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, decodeAPIError(resp)
	}

	var rooms []RoomInfo
	if err := json.NewDecoder(resp.Body).Decode(&rooms); err != nil {
		return nil, fmt.Errorf("list rooms: decode: %w", err)
	}
	return rooms, nil
}

// Attach upgrades the granted session to a websocket.
func (c *Client) Attach(ctx context.Context, g Grant) (Conn, error) {
	u := c.wsURL("/ws/" + g.RoomID + "?session=" + g.SessionID)

	ws, resp, err := c.ws.DialContext(ctx, u, nil)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("ws dial: http %d: %w", resp.StatusCode, err)
		}
		return nil, fmt.Errorf("ws dial: %w", err)
	}
	return newWSConn(ws), nil
}

func (c *Client) grantRequest(ctx context.Context, path, displayName string, body map[string]string) (Grant, error) {
	b, err := json.Marshal(body)
	if err != nil {
		return Grant{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(b))
	if err != nil {
		return Grant{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	// create/join prove knowledge of the shared secret; reconnect is
	// authorized by the token in the body alone
	if displayName != "" {
		tok, err := auth.SignJoin(c.secret, displayName, joinTokenTTL)
		if err != nil {
			return Grant{}, fmt.Errorf("sign join token: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	req.Header.Set("X-Request-ID", uuid.NewString())

	resp, err := c.hc.Do(req)
	if err != nil {
		return Grant{}, fmt.Errorf("POST %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return Grant{}, decodeAPIError(resp)
	}

	var g Grant
	if err := json.NewDecoder(resp.Body).Decode(&g); err != nil {
		return Grant{}, fmt.Errorf("POST %s: decode: %w", path, err)
	}
	if g.RoomID == "" || g.SessionID == "" {
		return Grant{}, fmt.Errorf("POST %s: incomplete grant", path)
	}
	return g, nil
}

func (c *Client) wsURL(path string) string {
	return "ws" + strings.TrimPrefix(c.baseURL, "http") + path
}

func decodeAPIError(resp *http.Response) error {
	apiErr := &APIError{Status: resp.StatusCode, Code: "unknown"}
	if err := json.NewDecoder(resp.Body).Decode(apiErr); err != nil || apiErr.Message == "" {
		apiErr.Message = http.StatusText(resp.StatusCode)
	}
	return apiErr
}
