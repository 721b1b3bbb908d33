package proto

// Wire messages shared by the HTTP, WebSocket and NATS transports.

// CreateSessionRequest POST /api/sessions
type CreateSessionRequest struct {
	Player string `json:"player"`
	// Start deals the configured board right away, default true
	Start *bool `json:"start"`
}

// ShouldStart reports whether a game should be dealt on creation
func (r *CreateSessionRequest) ShouldStart() bool {
	if r == nil || r.Start == nil {
		return true
	}
	return *r.Start
}

// NewGameRequest zero dimensions fall back to the configured board
type NewGameRequest struct {
	Rows int `json:"rows" binding:"min=0,max=64"`
	Cols int `json:"cols" binding:"min=0,max=64"`
}

// RestartRequest random layout bounds, all zero means the configured range
type RestartRequest struct {
	MinRows int `json:"minRows" binding:"min=0"`
	MaxRows int `json:"maxRows" binding:"min=0"`
	MinCols int `json:"minCols" binding:"min=0"`
	MaxCols int `json:"maxCols" binding:"min=0"`
}

// IsZero reports whether no bound was supplied
func (r *RestartRequest) IsZero() bool {
	return r == nil || (r.MinRows == 0 && r.MaxRows == 0 && r.MinCols == 0 && r.MaxCols == 0)
}

// FlipRequest row-major tile position
type FlipRequest struct {
	Position *int `json:"position" binding:"required,min=0"`
}

// FlipResponse Accepted is false when the flip was ignored by the rules
type FlipResponse struct {
	Position int  `json:"position"`
	Accepted bool `json:"accepted"`
}

// TokenRequest issues a token pair for a player name
type TokenRequest struct {
	Player string `json:"player" binding:"required,max=64"`
}

// RefreshRequest exchanges a refresh token for a new pair
type RefreshRequest struct {
	RefreshToken string `json:"refreshToken" binding:"required"`
}

// Action command verbs accepted on the WebSocket and the NATS command subject
type Action string

const (
	ActionFlip     Action = "flip"
	ActionNewGame  Action = "new_game"
	ActionRestart  Action = "restart"
	ActionSnapshot Action = "snapshot"
)

// Command player command. SessionID is implied on a session's WebSocket.
type Command struct {
	ID        string          `json:"id,omitempty"`
	SessionID string          `json:"sessionId,omitempty"`
	Action    Action          `json:"action"`
	Position  int             `json:"position,omitempty"`
	Rows      int             `json:"rows,omitempty"`
	Cols      int             `json:"cols,omitempty"`
	Range     *RestartRequest `json:"range,omitempty"`
}

// Reply answer to a Command
type Reply struct {
	ID       string `json:"id,omitempty"`
	Code     int    `json:"code"`
	Message  string `json:"message"`
	Accepted bool   `json:"accepted,omitempty"`
	Data     any    `json:"data,omitempty"`
}

// Frame WebSocket frame: exactly one of Event and Reply is set
type Frame struct {
	Type  string `json:"type"`
	Event any    `json:"event,omitempty"`
	Reply *Reply `json:"reply,omitempty"`
}

const (
	FrameEvent = "event"
	FrameReply = "reply"
)
