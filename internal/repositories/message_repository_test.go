package repositories

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wachat-service/internal/models"
)

var messageRowColumns = []string{
	"id", "message_id", "conversation_id", "wa_id", "from_number", "to_number", "sender_name",
	"message_type", "body", "media_url", "caption", "filename", "size", "reply_to", "status",
	"delivered_at", "read_at", "deleted_for_everyone", "deleted_for_everyone_at", "from_api", "created_at",
}

func newMessageRepo(t *testing.T) (*MessageRepo, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewMessageRepo(sqlx.NewDb(db, "sqlmock")), mock
}

func addMessageRow(rows *sqlmock.Rows, id int, messageID string, deletedForEveryone bool, createdAt time.Time) {
	rows.AddRow(id, messageID, "a_b", "a", "a", "b", "Alice",
		"text", "hello", nil, nil, nil, nil, nil, "sent",
		nil, nil, deletedForEveryone, nil, false, createdAt)
}

func TestListByConversationFiltersViewerDeletionsKeepsForEveryone(t *testing.T) {
	repo, mock := newMessageRepo(t)
	base := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	// Storage order is newest first; the viewer filter joins the viewer's
	// deletion entries and keeps for-everyone-deleted rows regardless.
	rows := sqlmock.NewRows(messageRowColumns)
	addMessageRow(rows, 2, "msg_2", true, base.Add(time.Minute))
	addMessageRow(rows, 1, "msg_1", false, base)
	mock.ExpectQuery(`LEFT JOIN message_deletions d ON d.message_id = m.message_id AND d.user_id = \$2`).
		WithArgs("a_b", "b", 50, 0).
		WillReturnRows(rows)
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM messages WHERE conversation_id=\$1`).
		WithArgs("a_b").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(5))

	msgs, total, err := repo.ListByConversation(context.Background(), "a_b", "b", 1, 50)
	require.NoError(t, err)
	assert.Equal(t, 5, total)
	require.Len(t, msgs, 2)
	// Returned chronologically despite reverse-chronological storage order.
	assert.Equal(t, "msg_1", msgs[0].MessageID)
	assert.Equal(t, "msg_2", msgs[1].MessageID)
	assert.True(t, msgs[1].DeletedForEveryone)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSoftDeleteForViewerRepeatIsNoOp(t *testing.T) {
	repo, mock := newMessageRepo(t)

	mock.ExpectExec(`INSERT INTO message_deletions \(message_id, user_id\) VALUES \(\$1, \$2\)`).
		WithArgs("msg_1", "b").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO message_deletions \(message_id, user_id\) VALUES \(\$1, \$2\)`).
		WithArgs("msg_1", "b").
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.SoftDeleteForViewer(context.Background(), "msg_1", "b"))
	require.NoError(t, repo.SoftDeleteForViewer(context.Background(), "msg_1", "b"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAppendStatusNonForwardIsSilentNoOp(t *testing.T) {
	repo, mock := newMessageRepo(t)

	// The conditional update matches no row; the message exists, so the
	// call reports success without changing anything.
	mock.ExpectExec(`UPDATE messages SET`).
		WithArgs("msg_1", models.StatusDelivered, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT EXISTS\(SELECT 1 FROM messages WHERE message_id=\$1\)`).
		WithArgs("msg_1").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	err := repo.AppendStatus(context.Background(), "msg_1", models.StatusDelivered, time.Now())
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAppendStatusUnknownMessage(t *testing.T) {
	repo, mock := newMessageRepo(t)

	mock.ExpectExec(`UPDATE messages SET`).
		WithArgs("msg_missing", models.StatusRead, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT EXISTS\(SELECT 1 FROM messages WHERE message_id=\$1\)`).
		WithArgs("msg_missing").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

	err := repo.AppendStatus(context.Background(), "msg_missing", models.StatusRead, time.Now())
	assert.ErrorIs(t, err, ErrMessageNotFound)
}

func TestCreateDuplicateExternalID(t *testing.T) {
	repo, mock := newMessageRepo(t)

	mock.ExpectQuery(`INSERT INTO messages`).
		WillReturnError(&pq.Error{Code: "23505"})

	_, err := repo.Create(context.Background(), models.Message{MessageID: "msg_1"})
	assert.ErrorIs(t, err, ErrDuplicateMessage)
}
