package cometd

// Message is one Bayeux message, inbound or outbound. Only the fields
// the channels we support actually use are typed; everything else comes
// through Data/Ext untouched.
type Message struct {
	Channel          string         `json:"channel"`
	ID               string         `json:"id,omitempty"`
	ClientID         string         `json:"clientId,omitempty"`
	Successful       *bool          `json:"successful,omitempty"`
	Error            string         `json:"error,omitempty"`
	Subscription     string         `json:"subscription,omitempty"`
	Data             map[string]any `json:"data,omitempty"`
	Version          string         `json:"version,omitempty"`
	SupportedConnTypes []string     `json:"supportedConnectionTypes,omitempty"`
	ConnectionType   string         `json:"connectionType,omitempty"`
	Advice           *Advice        `json:"advice,omitempty"`
}

// Advice is Bayeux's client-behavior hint block.
type Advice struct {
	Timeout   int    `json:"timeout,omitempty"`
	Interval  int    `json:"interval,omitempty"`
	Reconnect string `json:"reconnect,omitempty"`
}

func boolPtr(b bool) *bool { return &b }

func successResponse(channel, clientID, id string) Message {
	return Message{Channel: channel, Successful: boolPtr(true), ClientID: clientID, ID: id}
}

func failureResponse(channel, id, errMsg string) Message {
	return Message{
		Channel:    channel,
		Successful: boolPtr(false),
		Error:      errMsg,
		ID:         id,
		Advice:     &Advice{Reconnect: "handshake"},
	}
}
