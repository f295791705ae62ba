package cometd

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"
)

const (
	longPollTimeout  = 60 * time.Second
	streamLoopCap    = 300 * time.Second
	streamHeartbeat  = 30 * time.Second
	streamWaitPeriod = 1 * time.Second
)

// inboundMessage is the loosely-typed shape of one request element; we
// decode by hand rather than into Message because field presence
// (subscription vs subscriptions, data.response vs data.request) varies
// by device.
type inboundMessage struct {
	Channel      string         `json:"channel"`
	ID           string         `json:"id"`
	ClientID     string         `json:"clientId"`
	ConnectionType string       `json:"connectionType"`
	Subscription   json.RawMessage `json:"subscription"`
	Subscriptions  []string        `json:"subscriptions"`
	Data           map[string]any  `json:"data"`
}

func (im inboundMessage) subscriptionList() []string {
	if len(im.Subscriptions) > 0 {
		return im.Subscriptions
	}
	if len(im.Subscription) == 0 {
		return nil
	}
	var single string
	if json.Unmarshal(im.Subscription, &single) == nil {
		return []string{single}
	}
	var many []string
	if json.Unmarshal(im.Subscription, &many) == nil {
		return many
	}
	return nil
}

func (im inboundMessage) responseChannel() string {
	if v, ok := im.Data["response"].(string); ok {
		return v
	}
	return ""
}

func (im inboundMessage) requestCommand() (string, []any) {
	raw, ok := im.Data["request"].([]any)
	if !ok || len(raw) < 2 {
		return "", nil
	}
	playerID, _ := raw[0].(string)
	cmd, _ := raw[1].([]any)
	return playerID, cmd
}

// ServeHTTP implements the single POST /cometd endpoint: decode a JSON
// array of Bayeux messages, dispatch each by channel, and write back a
// JSON array of responses (or switch to chunked streaming mode for a
// /meta/connect with connectionType=streaming).
func (m *Manager) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var batch []inboundMessage
	if err := json.NewDecoder(r.Body).Decode(&batch); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}

	var responses []Message
	for _, im := range batch {
		switch im.Channel {
		case "/meta/handshake":
			responses = append(responses, m.Handshake(im.ID))

		case "/meta/connect", "/meta/reconnect":
			if im.ConnectionType == "streaming" {
				m.serveStreamingConnect(w, im)
				return
			}
			responses = append(responses, m.Connect(im.ClientID, im.ID, longPollTimeout)...)

		case "/meta/subscribe":
			responses = append(responses, m.Subscribe(im.ClientID, im.ID, im.subscriptionList())...)

		case "/meta/unsubscribe":
			responses = append(responses, m.Unsubscribe(im.ClientID, im.ID, im.subscriptionList())...)

		case "/meta/disconnect":
			responses = append(responses, m.Disconnect(im.ClientID, im.ID))

		case "/slim/subscribe":
			playerID, cmd := im.requestCommand()
			responses = append(responses, m.SlimSubscribe(im.ClientID, im.ID, im.responseChannel(), playerID, cmd))

		case "/slim/unsubscribe":
			responses = append(responses, m.SlimUnsubscribe(im.ClientID, im.ID, im.responseChannel()))

		case "/slim/request":
			playerID, cmd := im.requestCommand()
			responses = append(responses, m.SlimRequest(im.ClientID, im.ID, im.responseChannel(), playerID, cmd))

		default:
			slog.Debug("cometd: unhandled channel", "channel", im.Channel)
		}
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(responses)
}

// serveStreamingConnect upgrades a /meta/connect(streaming) into a
// chunked HTTP response that pushes event batches as they arrive,
// heartbeating every 30s, for up to 300s before the client must
// reconnect.
func (m *Manager) serveStreamingConnect(w http.ResponseWriter, im inboundMessage) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	s, ok := m.getSession(im.ClientID)
	if !ok {
		s = m.createSession(im.ClientID)
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Transfer-Encoding", "chunked")
	w.WriteHeader(http.StatusOK)

	writeBatch := func(msgs []Message) {
		data, err := json.Marshal(msgs)
		if err != nil {
			return
		}
		_, _ = w.Write(data)
		_, _ = w.Write([]byte("\r\n"))
		flusher.Flush()
	}

	writeBatch(append([]Message{successResponse("/meta/connect", im.ClientID, im.ID)}, s.drain()...))

	deadline := time.NewTimer(streamLoopCap)
	defer deadline.Stop()
	lastActivity := time.Now()

	for {
		select {
		case <-deadline.C:
			return
		case <-s.wake:
			if pending := s.drain(); len(pending) > 0 {
				writeBatch(pending)
				lastActivity = time.Now()
			}
		case <-time.After(streamWaitPeriod):
			if _, stillConnected := m.getSession(im.ClientID); !stillConnected {
				return
			}
			if time.Since(lastActivity) >= streamHeartbeat {
				writeBatch([]Message{{Channel: "/meta/ping", Successful: boolPtr(true)}})
				lastActivity = time.Now()
			}
		}
	}
}
