package api

type (
	// SubscribeRequest is sent by clients to subscribe to run events
	SubscribeRequest struct {
		Type string             `json:"type"`
		Data ClientSubscription `json:"data"`
	}

	// ClientSubscription configures which run events a WebSocket client
	// receives. Empty lists match everything
	ClientSubscription struct {
		RunIDs     []string `json:"run_ids,omitempty"`
		EventTypes []string `json:"event_types,omitempty"`
	}

	// SubscribedResult acknowledges a subscription back to the client
	SubscribedResult struct {
		Type string             `json:"type"`
		Data ClientSubscription `json:"data"`
	}
)

const (
	// MessageTypeSubscribe identifies a client subscription request
	MessageTypeSubscribe = "subscribe"

	// MessageTypeSubscribed identifies a subscription acknowledgment
	MessageTypeSubscribed = "subscribed"
)
