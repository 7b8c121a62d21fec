package api

// API response types for REST endpoints and WebSocket messages

// ErrorResponse is the uniform REST error body.
type ErrorResponse struct {
	Error string `json:"error"`
}

// HealthResponse reports process liveness.
type HealthResponse struct {
	Status    string `json:"status"`
	Pipelines int    `json:"pipelines"`
}

// WSSubscribeRequest is a client's subscribe/unsubscribe frame.
type WSSubscribeRequest struct {
	Op       string   `json:"op"` // "subscribe" or "unsubscribe"
	Channels []string `json:"channels"`
}

// WSMessage wraps every broadcast frame with its channel.
type WSMessage struct {
	Channel string      `json:"channel"`
	Data    interface{} `json:"data"`
}
