// internal/handlers/ws_codes.go
package handlers

// Custom WebSocket close codes used by the room feed.
// These provide more specific reasons for closure than standard codes.
const (
	InvalidRoomIDError   = 3003 // Target room in the WS URL does not exist.
	StoreUnavailableCode = 3004 // The feed could not be opened on the room store.
)
