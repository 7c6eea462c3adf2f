package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"wachat-service/internal/delivery"
	"wachat-service/internal/middleware"
	"wachat-service/internal/mocks"
	"wachat-service/internal/models"
	"wachat-service/internal/repositories"
)

type coordinatorMock struct {
	mock.Mock
}

func (m *coordinatorMock) Send(ctx context.Context, senderID, senderName string, req delivery.SendRequest) (models.Message, error) {
	args := m.Called(ctx, senderID, senderName, req)
	return args.Get(0).(models.Message), args.Error(1)
}

func (m *coordinatorMock) UpdateStatus(ctx context.Context, actorID, messageID, status string) (models.Message, error) {
	args := m.Called(ctx, actorID, messageID, status)
	return args.Get(0).(models.Message), args.Error(1)
}

func (m *coordinatorMock) DeleteMessage(ctx context.Context, actorID, messageID string, forEveryone bool) error {
	args := m.Called(ctx, actorID, messageID, forEveryone)
	return args.Error(0)
}

func (m *coordinatorMock) Forward(ctx context.Context, actorID, actorName, messageID string, recipients []string) (int, error) {
	args := m.Called(ctx, actorID, actorName, messageID, recipients)
	return args.Int(0), args.Error(1)
}

func (m *coordinatorMock) MarkConversationRead(ctx context.Context, conversationID, readerID string) (int64, error) {
	args := m.Called(ctx, conversationID, readerID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *coordinatorMock) DeleteConversation(ctx context.Context, conversationID, actorID string) error {
	args := m.Called(ctx, conversationID, actorID)
	return args.Error(0)
}

func (m *coordinatorMock) ClearConversation(ctx context.Context, conversationID, actorID string) error {
	args := m.Called(ctx, conversationID, actorID)
	return args.Error(0)
}

func (m *coordinatorMock) ExportConversation(ctx context.Context, conversationID, viewerID string) (string, error) {
	args := m.Called(ctx, conversationID, viewerID)
	return args.String(0), args.Error(1)
}

type env struct {
	users    *mocks.UserRepository
	messages *mocks.MessageRepository
	convs    *mocks.ConversationRepository
	blocks   *mocks.BlockRepository
	coord    *coordinatorMock
	router   *gin.Engine
}

func newEnv(waID, name string) *env {
	gin.SetMode(gin.TestMode)

	e := &env{
		users:    new(mocks.UserRepository),
		messages: new(mocks.MessageRepository),
		convs:    new(mocks.ConversationRepository),
		blocks:   new(mocks.BlockRepository),
		coord:    new(coordinatorMock),
	}
	h := New(e.users, e.messages, e.convs, e.blocks, e.coord)

	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set(middleware.ContextWaID, waID)
		c.Set(middleware.ContextUserName, name)
	})
	api := r.Group("/api")
	api.GET("/conversations", h.ListConversations)
	api.GET("/conversations/archived", h.ListArchivedConversations)
	api.GET("/conversations/:id/messages", h.ListMessages)
	api.GET("/conversations/:id/export", h.ExportConversation)
	api.POST("/conversations/:id/read", h.MarkConversationRead)
	api.POST("/conversations/:id/archive", h.SetArchived)
	api.POST("/conversations/:id/mute", h.SetMuted)
	api.POST("/conversations/:id/clear", h.ClearConversation)
	api.DELETE("/conversations/:id", h.DeleteConversation)
	api.POST("/messages", h.SendMessage)
	api.GET("/messages/search", h.SearchMessages)
	api.GET("/messages/:id/info", h.MessageInfo)
	api.PUT("/messages/:id/status", h.UpdateMessageStatus)
	api.POST("/messages/:id/forward", h.ForwardMessage)
	api.DELETE("/messages/:id", h.DeleteMessage)
	api.POST("/blocks", h.BlockUser)
	api.GET("/blocks", h.ListBlocked)
	api.DELETE("/blocks/:waID", h.UnblockUser)
	e.router = r
	return e
}

func (e *env) do(method, path string, body any) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		raw, _ := json.Marshal(body)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func TestSendMessageCreated(t *testing.T) {
	e := newEnv("919000000001", "Alice")

	e.coord.On("Send", mock.Anything, "919000000001", "Alice", mock.Anything).
		Return(models.Message{MessageID: "msg_1_abc", Status: models.StatusSent}, nil)

	w := e.do(http.MethodPost, "/api/messages", gin.H{"to": "919000000002", "body": "hi"})
	assert.Equal(t, http.StatusCreated, w.Code)

	var got models.Message
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, "msg_1_abc", got.MessageID)
}

func TestSendMessageRequiresBodyOrMedia(t *testing.T) {
	e := newEnv("919000000001", "Alice")

	w := e.do(http.MethodPost, "/api/messages", gin.H{"to": "919000000002"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	e.coord.AssertNotCalled(t, "Send", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestSendMessageBlockedMapsTo403(t *testing.T) {
	e := newEnv("919000000001", "Alice")

	e.coord.On("Send", mock.Anything, "919000000001", "Alice", mock.Anything).
		Return(models.Message{}, delivery.ErrBlocked)

	w := e.do(http.MethodPost, "/api/messages", gin.H{"to": "919000000002", "body": "hi"})
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestSendMessageUnknownRecipientMapsTo404(t *testing.T) {
	e := newEnv("919000000001", "Alice")

	e.coord.On("Send", mock.Anything, "919000000001", "Alice", mock.Anything).
		Return(models.Message{}, delivery.ErrRecipientNotFound)

	w := e.do(http.MethodPost, "/api/messages", gin.H{"to": "919000000099", "body": "hi"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestUpdateStatusInvalidMapsTo400(t *testing.T) {
	e := newEnv("919000000002", "Bob")

	e.coord.On("UpdateStatus", mock.Anything, "919000000002", "msg_1_abc", "seen").
		Return(models.Message{}, delivery.ErrInvalidStatus)

	w := e.do(http.MethodPut, "/api/messages/msg_1_abc/status", gin.H{"status": "seen"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDeleteMessageWindowExpiredMapsTo400(t *testing.T) {
	e := newEnv("919000000001", "Alice")

	e.coord.On("DeleteMessage", mock.Anything, "919000000001", "msg_1_abc", true).
		Return(delivery.ErrWindowExpired)

	w := e.do(http.MethodDelete, "/api/messages/msg_1_abc?for_everyone=true", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDeleteMessageForMe(t *testing.T) {
	e := newEnv("919000000002", "Bob")

	e.coord.On("DeleteMessage", mock.Anything, "919000000002", "msg_1_abc", false).Return(nil)

	w := e.do(http.MethodDelete, "/api/messages/msg_1_abc", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	e.coord.AssertExpectations(t)
}

func TestListMessagesOutsiderForbidden(t *testing.T) {
	e := newEnv("919000000009", "Eve")

	e.convs.On("Get", mock.Anything, "919000000001_919000000002").Return(models.Conversation{
		ConversationID: "919000000001_919000000002",
		ParticipantOne: "919000000001",
		ParticipantTwo: "919000000002",
	}, nil)

	w := e.do(http.MethodGet, "/api/conversations/919000000001_919000000002/messages", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	e.messages.AssertNotCalled(t, "ListByConversation",
		mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestListMessagesMarksReadFirst(t *testing.T) {
	e := newEnv("919000000002", "Bob")
	convID := "919000000001_919000000002"

	e.convs.On("Get", mock.Anything, convID).Return(models.Conversation{
		ConversationID: convID,
		ParticipantOne: "919000000001",
		ParticipantTwo: "919000000002",
	}, nil)
	e.coord.On("MarkConversationRead", mock.Anything, convID, "919000000002").Return(int64(2), nil)
	e.messages.On("ListByConversation", mock.Anything, convID, "919000000002", 1, 50).
		Return([]models.Message{{MessageID: "msg_1_abc"}}, 1, nil)

	w := e.do(http.MethodGet, "/api/conversations/"+convID+"/messages", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	e.coord.AssertExpectations(t)
	e.messages.AssertExpectations(t)
}

func TestMessageInfoParticipantOnly(t *testing.T) {
	e := newEnv("919000000009", "Eve")

	e.messages.On("GetMessage", mock.Anything, "msg_1_abc").Return(models.Message{
		MessageID:  "msg_1_abc",
		FromNumber: "919000000001",
		ToNumber:   "919000000002",
	}, nil)

	w := e.do(http.MethodGet, "/api/messages/msg_1_abc/info", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestBlockUserSelfRejected(t *testing.T) {
	e := newEnv("919000000001", "Alice")

	w := e.do(http.MethodPost, "/api/blocks", gin.H{"wa_id": "919000000001"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	e.blocks.AssertNotCalled(t, "Block", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestBlockUserAlreadyBlockedMapsTo409(t *testing.T) {
	e := newEnv("919000000001", "Alice")

	e.users.On("GetByWaID", mock.Anything, "919000000002").Return(models.User{WaID: "919000000002"}, nil)
	e.blocks.On("Block", mock.Anything, "919000000001", "919000000002", "").
		Return(repositories.ErrAlreadyBlocked)

	w := e.do(http.MethodPost, "/api/blocks", gin.H{"wa_id": "919000000002"})
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestUnblockNotBlockedMapsTo404(t *testing.T) {
	e := newEnv("919000000001", "Alice")

	e.blocks.On("Unblock", mock.Anything, "919000000001", "919000000002").
		Return(repositories.ErrNotBlocked)

	w := e.do(http.MethodDelete, "/api/blocks/919000000002", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestExportConversationPlainText(t *testing.T) {
	e := newEnv("919000000001", "Alice")
	convID := "919000000001_919000000002"

	e.coord.On("ExportConversation", mock.Anything, convID, "919000000001").
		Return("[2025-03-01 10:00:00] You: hey\n", nil)

	w := e.do(http.MethodGet, "/api/conversations/"+convID+"/export", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/plain")
	assert.Equal(t, "[2025-03-01 10:00:00] You: hey\n", w.Body.String())
}

func TestMarkConversationReadReturnsCount(t *testing.T) {
	e := newEnv("919000000002", "Bob")
	convID := "919000000001_919000000002"

	e.coord.On("MarkConversationRead", mock.Anything, convID, "919000000002").Return(int64(3), nil)

	w := e.do(http.MethodPost, "/api/conversations/"+convID+"/read", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	var body map[string]int64
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, int64(3), body["marked_read"])
}

func TestArchiveConversationCreatesRowLazily(t *testing.T) {
	e := newEnv("919000000001", "Alice")
	convID := "919000000001_919000000002"

	e.convs.On("Get", mock.Anything, convID).Return(models.Conversation{}, repositories.ErrConversationNotFound)
	e.convs.On("GetOrCreate", mock.Anything, convID,
		"919000000001", "919000000002", "919000000001", mock.Anything).
		Return(models.Conversation{
			ConversationID: convID,
			ParticipantOne: "919000000001",
			ParticipantTwo: "919000000002",
		}, nil)
	e.convs.On("SetArchived", mock.Anything, convID, "919000000001", true, mock.Anything).Return(nil)

	w := e.do(http.MethodPost, "/api/conversations/"+convID+"/archive", gin.H{"archived": true})
	assert.Equal(t, http.StatusOK, w.Code)
	e.convs.AssertExpectations(t)
}

func TestMuteConversationCreatesRowLazily(t *testing.T) {
	e := newEnv("919000000002", "Bob")
	convID := "919000000001_919000000002"

	e.convs.On("Get", mock.Anything, convID).Return(models.Conversation{}, repositories.ErrConversationNotFound)
	e.convs.On("GetOrCreate", mock.Anything, convID,
		"919000000001", "919000000002", "919000000002", mock.Anything).
		Return(models.Conversation{
			ConversationID: convID,
			ParticipantOne: "919000000001",
			ParticipantTwo: "919000000002",
		}, nil)
	e.convs.On("SetMuted", mock.Anything, convID, "919000000002", true, (*time.Time)(nil), mock.Anything).Return(nil)

	w := e.do(http.MethodPost, "/api/conversations/"+convID+"/mute", gin.H{"muted": true})
	assert.Equal(t, http.StatusOK, w.Code)
	e.convs.AssertExpectations(t)
}

func TestArchiveConversationOutsiderCannotCreate(t *testing.T) {
	e := newEnv("919000000009", "Eve")
	convID := "919000000001_919000000002"

	e.convs.On("Get", mock.Anything, convID).Return(models.Conversation{}, repositories.ErrConversationNotFound)

	w := e.do(http.MethodPost, "/api/conversations/"+convID+"/archive", gin.H{"archived": true})
	assert.Equal(t, http.StatusForbidden, w.Code)
	e.convs.AssertNotCalled(t, "GetOrCreate",
		mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	e.convs.AssertNotCalled(t, "SetArchived",
		mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestArchiveConversation(t *testing.T) {
	e := newEnv("919000000001", "Alice")
	convID := "919000000001_919000000002"

	e.convs.On("Get", mock.Anything, convID).Return(models.Conversation{
		ConversationID: convID,
		ParticipantOne: "919000000001",
		ParticipantTwo: "919000000002",
	}, nil)
	e.convs.On("SetArchived", mock.Anything, convID, "919000000001", true, mock.Anything).Return(nil)

	w := e.do(http.MethodPost, "/api/conversations/"+convID+"/archive", gin.H{"archived": true})
	assert.Equal(t, http.StatusOK, w.Code)
	e.convs.AssertExpectations(t)
}
