package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"wachat-service/internal/models"
	"wachat-service/internal/repositories"
)

// UserRepository is a testify mock of repositories.UserRepository.
type UserRepository struct {
	mock.Mock
}

var _ repositories.UserRepository = (*UserRepository)(nil)

func (m *UserRepository) GetByWaID(ctx context.Context, waID string) (models.User, error) {
	args := m.Called(ctx, waID)
	return args.Get(0).(models.User), args.Error(1)
}

func (m *UserRepository) Upsert(ctx context.Context, waID, name string, at time.Time) (models.User, error) {
	args := m.Called(ctx, waID, name, at)
	return args.Get(0).(models.User), args.Error(1)
}

func (m *UserRepository) SetOnline(ctx context.Context, waID string, online bool, at time.Time) error {
	args := m.Called(ctx, waID, online, at)
	return args.Error(0)
}

// MessageRepository is a testify mock of repositories.MessageRepository.
type MessageRepository struct {
	mock.Mock
}

var _ repositories.MessageRepository = (*MessageRepository)(nil)

func (m *MessageRepository) Create(ctx context.Context, msg models.Message) (models.Message, error) {
	args := m.Called(ctx, msg)
	return args.Get(0).(models.Message), args.Error(1)
}

func (m *MessageRepository) GetMessage(ctx context.Context, messageID string) (models.Message, error) {
	args := m.Called(ctx, messageID)
	return args.Get(0).(models.Message), args.Error(1)
}

func (m *MessageRepository) AppendStatus(ctx context.Context, messageID string, status string, at time.Time) error {
	args := m.Called(ctx, messageID, status, at)
	return args.Error(0)
}

func (m *MessageRepository) SoftDeleteForViewer(ctx context.Context, messageID string, viewerID string) error {
	args := m.Called(ctx, messageID, viewerID)
	return args.Error(0)
}

func (m *MessageRepository) MarkDeletedForEveryone(ctx context.Context, messageID string, at time.Time) error {
	args := m.Called(ctx, messageID, at)
	return args.Error(0)
}

func (m *MessageRepository) ListByConversation(ctx context.Context, conversationID string, viewerID string, page, pageSize int) ([]models.Message, int, error) {
	args := m.Called(ctx, conversationID, viewerID, page, pageSize)
	return args.Get(0).([]models.Message), args.Int(1), args.Error(2)
}

func (m *MessageRepository) ListChronological(ctx context.Context, conversationID string) ([]models.Message, error) {
	args := m.Called(ctx, conversationID)
	return args.Get(0).([]models.Message), args.Error(1)
}

func (m *MessageRepository) Search(ctx context.Context, viewerID string, query string, conversationID string, page, pageSize int) ([]models.Message, int, error) {
	args := m.Called(ctx, viewerID, query, conversationID, page, pageSize)
	return args.Get(0).([]models.Message), args.Int(1), args.Error(2)
}

func (m *MessageRepository) MarkConversationDelivered(ctx context.Context, conversationID string, viewerID string, at time.Time) (int64, error) {
	args := m.Called(ctx, conversationID, viewerID, at)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MessageRepository) MarkConversationRead(ctx context.Context, conversationID string, viewerID string, at time.Time) (int64, error) {
	args := m.Called(ctx, conversationID, viewerID, at)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MessageRepository) HasConversationAccess(ctx context.Context, conversationID string, viewerID string) (bool, error) {
	args := m.Called(ctx, conversationID, viewerID)
	return args.Bool(0), args.Error(1)
}

func (m *MessageRepository) DeleteByConversation(ctx context.Context, conversationID string) error {
	args := m.Called(ctx, conversationID)
	return args.Error(0)
}

func (m *MessageRepository) ListConversationSummaries(ctx context.Context, viewerID string) ([]models.ConversationSummary, error) {
	args := m.Called(ctx, viewerID)
	return args.Get(0).([]models.ConversationSummary), args.Error(1)
}

func (m *MessageRepository) LatestVisibleMessage(ctx context.Context, conversationID string, viewerID string) (models.Message, error) {
	args := m.Called(ctx, conversationID, viewerID)
	return args.Get(0).(models.Message), args.Error(1)
}

func (m *MessageRepository) UnreadCount(ctx context.Context, conversationID string, viewerID string) (int, error) {
	args := m.Called(ctx, conversationID, viewerID)
	return args.Int(0), args.Error(1)
}

// ConversationRepository is a testify mock of repositories.ConversationRepository.
type ConversationRepository struct {
	mock.Mock
}

var _ repositories.ConversationRepository = (*ConversationRepository)(nil)

func (m *ConversationRepository) GetOrCreate(ctx context.Context, conversationID string, participantOne, participantTwo, createdBy string, at time.Time) (models.Conversation, error) {
	args := m.Called(ctx, conversationID, participantOne, participantTwo, createdBy, at)
	return args.Get(0).(models.Conversation), args.Error(1)
}

func (m *ConversationRepository) Get(ctx context.Context, conversationID string) (models.Conversation, error) {
	args := m.Called(ctx, conversationID)
	return args.Get(0).(models.Conversation), args.Error(1)
}

func (m *ConversationRepository) SetArchived(ctx context.Context, conversationID string, userID string, archived bool, at time.Time) error {
	args := m.Called(ctx, conversationID, userID, archived, at)
	return args.Error(0)
}

func (m *ConversationRepository) SetMuted(ctx context.Context, conversationID string, userID string, muted bool, until *time.Time, at time.Time) error {
	args := m.Called(ctx, conversationID, userID, muted, until, at)
	return args.Error(0)
}

func (m *ConversationRepository) IsMuted(ctx context.Context, conversationID string, userID string, now time.Time) (bool, error) {
	args := m.Called(ctx, conversationID, userID, now)
	return args.Bool(0), args.Error(1)
}

func (m *ConversationRepository) ListArchived(ctx context.Context, userID string) ([]repositories.ArchivedConversation, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).([]repositories.ArchivedConversation), args.Error(1)
}

func (m *ConversationRepository) Delete(ctx context.Context, conversationID string) error {
	args := m.Called(ctx, conversationID)
	return args.Error(0)
}

// BlockRepository is a testify mock of repositories.BlockRepository.
type BlockRepository struct {
	mock.Mock
}

var _ repositories.BlockRepository = (*BlockRepository)(nil)

func (m *BlockRepository) Block(ctx context.Context, by, target, reason string) error {
	args := m.Called(ctx, by, target, reason)
	return args.Error(0)
}

func (m *BlockRepository) Unblock(ctx context.Context, by, target string) error {
	args := m.Called(ctx, by, target)
	return args.Error(0)
}

func (m *BlockRepository) IsBlockedEitherDirection(ctx context.Context, a, b string) (bool, error) {
	args := m.Called(ctx, a, b)
	return args.Bool(0), args.Error(1)
}

func (m *BlockRepository) ListBlocked(ctx context.Context, by string) ([]models.BlockRelation, error) {
	args := m.Called(ctx, by)
	return args.Get(0).([]models.BlockRelation), args.Error(1)
}

// PayloadRepository is a testify mock of repositories.PayloadRepository.
type PayloadRepository struct {
	mock.Mock
}

var _ repositories.PayloadRepository = (*PayloadRepository)(nil)

func (m *PayloadRepository) Insert(ctx context.Context, payloadID, payloadType string) (bool, error) {
	args := m.Called(ctx, payloadID, payloadType)
	return args.Bool(0), args.Error(1)
}

func (m *PayloadRepository) MarkProcessed(ctx context.Context, payloadID string, at time.Time) error {
	args := m.Called(ctx, payloadID, at)
	return args.Error(0)
}
