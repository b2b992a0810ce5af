package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/finchdesk/finch/internal/chatlog"
)

// messageSendCategory is the only webhook category that triggers a reply.
const messageSendCategory = "group_channel:message_send"

// sendTimeout bounds the detached outbound reply after the webhook has
// already been acknowledged.
const sendTimeout = 30 * time.Second

// Responder produces the agent's reply for one customer message.
// *agent.Agent satisfies it.
type Responder interface {
	Answer(ctx context.Context, sessionID, question string) (string, error)
}

// Sender posts the reply back into the originating channel.
// *platform.Client satisfies it.
type Sender interface {
	SendMessage(ctx context.Context, channelURL, text string) error
}

// webhookEvent is the subset of the platform webhook body we consume.
type webhookEvent struct {
	Category string `json:"category"`
	Sender   struct {
		UserID string `json:"user_id"`
	} `json:"sender"`
	Payload struct {
		Message string `json:"message"`
	} `json:"payload"`
	Channel struct {
		ChannelURL string `json:"channel_url"`
	} `json:"channel"`
}

// webhookHandler turns inbound message events into agent replies.
type webhookHandler struct {
	agent     Responder
	sender    Sender
	logs      *chatlog.Store
	botUserID string
	logger    *slog.Logger

	// sends tracks detached outbound replies so shutdown can drain them.
	sends *sync.WaitGroup
}

// receive handles POST /webhook.
//
// The platform retries webhooks that are not acknowledged, so every
// request is answered 200 regardless of what happens inside: undecodable
// bodies, foreign categories, bot echoes, and agent failures are all
// acknowledged. Only the reply delivery runs after the ack.
func (h *webhookHandler) receive(w http.ResponseWriter, r *http.Request) {
	var event webhookEvent
	if err := json.NewDecoder(r.Body).Decode(&event); err != nil {
		h.logger.Warn("undecodable webhook body, acknowledging anyway", "error", err)
		WriteJSON(w, http.StatusOK, map[string]string{"status": "ignored"})
		return
	}

	if !h.shouldProcess(event) {
		WriteJSON(w, http.StatusOK, map[string]string{"status": "ignored"})
		return
	}

	sessionID := event.Sender.UserID
	question := event.Payload.Message

	start := time.Now()
	answer, err := h.agent.Answer(r.Context(), sessionID, question)
	latency := time.Since(start)
	if err != nil {
		// answer already carries the customer-safe fallback text.
		h.logger.Error("agent turn failed", "session_id", sessionID, "error", err)
	}

	entry := h.logs.Append(sessionID, question, answer, latency)
	h.logger.Info("turn answered",
		"session_id", sessionID,
		"log_id", entry.ID,
		"latency", latency,
	)

	h.dispatch(event.Channel.ChannelURL, answer)

	WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// shouldProcess filters the event stream down to human messages.
func (h *webhookHandler) shouldProcess(event webhookEvent) bool {
	switch {
	case event.Category != messageSendCategory:
		h.logger.Debug("skipping webhook category", "category", event.Category)
		return false
	case event.Sender.UserID == h.botUserID:
		// Our own reply echoed back; answering it would loop forever.
		return false
	case event.Sender.UserID == "" || event.Payload.Message == "":
		h.logger.Warn("message event missing sender or text")
		return false
	}
	return true
}

// dispatch sends the reply in the background. Failures are logged and
// dropped: the platform has already been acknowledged and there is no
// retry contract for outbound sends.
func (h *webhookHandler) dispatch(channelURL, text string) {
	if channelURL == "" {
		h.logger.Warn("message event missing channel URL, dropping reply")
		return
	}

	h.sends.Add(1)
	go func() {
		defer h.sends.Done()

		// Detached from the request context, which dies with the ack.
		ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
		defer cancel()

		if err := h.sender.SendMessage(ctx, channelURL, text); err != nil {
			h.logger.Error("outbound send failed, dropping reply",
				"channel_url", channelURL,
				"error", err,
			)
		}
	}()
}
