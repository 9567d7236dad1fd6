package delivery

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	integrationdomain "flowdesk-backend/internal/integration/domain"
	"flowdesk-backend/internal/integration/usecase"

	"github.com/gin-gonic/gin"
)

// IntegrationHandler exposes the integration command surface to the
// presentation layer. Every operation returns a structured result with a
// success flag, a message and a count or payload; the OAuth callback
// returns a redirect instead of JSON.
type IntegrationHandler struct {
	oauthFlow    *usecase.OAuthFlow
	calendarSync *usecase.CalendarSync
	inboxIngest  *usecase.InboxIngest
	channels     *usecase.ChannelGateway
}

// NewIntegrationHandler creates a new IntegrationHandler
func NewIntegrationHandler(
	oauthFlow *usecase.OAuthFlow,
	calendarSync *usecase.CalendarSync,
	inboxIngest *usecase.InboxIngest,
	channels *usecase.ChannelGateway,
) *IntegrationHandler {
	return &IntegrationHandler{
		oauthFlow:    oauthFlow,
		calendarSync: calendarSync,
		inboxIngest:  inboxIngest,
		channels:     channels,
	}
}

// GET /api/integrations/:provider/connect
func (h *IntegrationHandler) Connect(c *gin.Context) {
	provider, ok := integrationdomain.ParseProvider(c.Param("provider"))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "unknown provider"})
		return
	}

	var scopes []string
	if q := c.QueryArray("scope"); len(q) > 0 {
		scopes = q
	}

	authURL, err := h.oauthFlow.Initiate(c.GetString("userID"), provider, scopes)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":           true,
		"message":           "authorization started",
		"authorization_url": authURL,
	})
}

// GET /api/integrations/callback/:provider
// The provider redirects the browser here; the response is itself a
// redirect back to the frontend, never JSON.
func (h *IntegrationHandler) Callback(c *gin.Context) {
	redirect := h.oauthFlow.HandleCallback(
		c.Request.Context(),
		c.Query("code"),
		c.Query("state"),
		c.Query("error"),
	)
	c.Redirect(http.StatusTemporaryRedirect, redirect)
}

// DELETE /api/integrations/:provider
func (h *IntegrationHandler) Disconnect(c *gin.Context) {
	userID := c.GetString("userID")

	if c.Param("provider") == "all" {
		if err := h.oauthFlow.DisconnectAll(c.Request.Context(), userID); err != nil {
			respondError(c, err)
			return
		}
		h.channels.InvalidateChannels(userID)
		c.JSON(http.StatusOK, gin.H{"success": true, "message": "all providers disconnected"})
		return
	}

	provider, ok := integrationdomain.ParseProvider(c.Param("provider"))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "unknown provider"})
		return
	}

	if err := h.oauthFlow.Disconnect(c.Request.Context(), userID, provider); err != nil {
		respondError(c, err)
		return
	}
	if provider == integrationdomain.ProviderSlack {
		// A stale channel cache must not outlive the credential.
		h.channels.InvalidateChannels(userID)
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "provider disconnected"})
}

// POST /api/integrations/google/calendar/sync
func (h *IntegrationHandler) CalendarSync(c *gin.Context) {
	pullRun, pushRun, err := h.calendarSync.Sync(c.Request.Context(), c.GetString("userID"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "calendar synchronized",
		"pull":    pullRun,
		"push":    pushRun,
	})
}

// POST /api/integrations/google/calendar/push
func (h *IntegrationHandler) CalendarPush(c *gin.Context) {
	run, err := h.calendarSync.SyncToRemote(c.Request.Context(), c.GetString("userID"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "push completed", "run": run})
}

// POST /api/integrations/google/calendar/pull
func (h *IntegrationHandler) CalendarPull(c *gin.Context) {
	run, err := h.calendarSync.SyncFromRemote(c.Request.Context(), c.GetString("userID"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "pull completed", "run": run})
}

// SummarizeInboxRequest represents the request body
type SummarizeInboxRequest struct {
	MaxResults int `json:"max_results"`
}

// POST /api/integrations/google/inbox/summarize
func (h *IntegrationHandler) SummarizeInbox(c *gin.Context) {
	var req SummarizeInboxRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": err.Error()})
		return
	}
	if req.MaxResults == 0 {
		req.MaxResults = 10
	}

	run, err := h.inboxIngest.Ingest(c.Request.Context(), c.GetString("userID"), req.MaxResults)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "inbox ingested", "run": run})
}

// GET /api/integrations/messages
func (h *IntegrationHandler) ListMessages(c *gin.Context) {
	limit := 20
	if raw := c.Query("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil {
			limit = parsed
		}
	}

	messages, err := h.inboxIngest.Recent(c.GetString("userID"), limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"message":  "messages listed",
		"count":    len(messages),
		"messages": messages,
	})
}

// SendDraftRequest represents the request body
type SendDraftRequest struct {
	To               string `json:"to" binding:"required"`
	Subject          string `json:"subject" binding:"required"`
	Body             string `json:"body"`
	ReplyToMessageID string `json:"reply_to_message_id"`
	// Generate asks the AI collaborator to draft the body from Instruction
	// when Body is empty.
	Generate    bool   `json:"generate"`
	Instruction string `json:"instruction"`
	Tone        string `json:"tone"`
}

// POST /api/integrations/google/inbox/send
func (h *IntegrationHandler) SendDraft(c *gin.Context) {
	var req SendDraftRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": err.Error()})
		return
	}

	body := req.Body
	if req.Generate && body == "" {
		if req.Instruction == "" {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "instruction required to generate a draft"})
			return
		}
		drafted, err := h.inboxIngest.Compose(c.Request.Context(), req.Instruction, "", req.Tone)
		if err != nil {
			respondError(c, err)
			return
		}
		body = drafted
	}
	if body == "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "body required"})
		return
	}

	messageID, err := h.inboxIngest.SendDraft(c.Request.Context(), c.GetString("userID"), &integrationdomain.OutgoingMail{
		To:               req.To,
		Subject:          req.Subject,
		Body:             body,
		ReplyToMessageID: req.ReplyToMessageID,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "mail sent", "message_id": messageID})
}

// GET /api/integrations/slack/channels
func (h *IntegrationHandler) ListChannels(c *gin.Context) {
	channels, err := h.channels.ListChannels(c.Request.Context(), c.GetString("userID"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"message":  "channels listed",
		"count":    len(channels),
		"channels": channels,
	})
}

// SendChannelMessageRequest represents the request body
type SendChannelMessageRequest struct {
	ChannelID string `json:"channel_id" binding:"required"`
	Text      string `json:"text" binding:"required"`
}

// POST /api/integrations/slack/message
func (h *IntegrationHandler) SendChannelMessage(c *gin.Context) {
	var req SendChannelMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": err.Error()})
		return
	}

	ts, err := h.channels.SendMessage(c.Request.Context(), c.GetString("userID"), req.ChannelID, req.Text)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "message posted", "timestamp": ts})
}

// SummarizeChannelRequest represents the request body
type SummarizeChannelRequest struct {
	ChannelID      string `json:"channel_id" binding:"required"`
	NumMessages    int    `json:"num_messages"`
	TimeframeHours int    `json:"timeframe_hours"`
}

// POST /api/integrations/slack/summarize
func (h *IntegrationHandler) SummarizeChannel(c *gin.Context) {
	var req SummarizeChannelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": err.Error()})
		return
	}

	summary, err := h.channels.SummarizeChannel(
		c.Request.Context(),
		c.GetString("userID"),
		req.ChannelID,
		req.NumMessages,
		time.Duration(req.TimeframeHours)*time.Hour,
	)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "channel summarized", "summary": summary})
}

// respondError maps the integration error taxonomy to HTTP statuses while
// keeping the structured envelope.
func respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError

	var rejected *integrationdomain.ProviderRejectedError
	switch {
	case errors.Is(err, integrationdomain.ErrNotConnected),
		errors.Is(err, integrationdomain.ErrReauthorizationRequired):
		status = http.StatusBadRequest
	case errors.Is(err, integrationdomain.ErrSyncAlreadyInProgress):
		status = http.StatusConflict
	case errors.Is(err, integrationdomain.ErrProviderUnavailable):
		status = http.StatusServiceUnavailable
	case errors.As(err, &rejected):
		status = http.StatusUnprocessableEntity
	}

	c.JSON(status, gin.H{"success": false, "message": err.Error()})
}
