package repositories

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newConversationRepo(t *testing.T) (*ConversationRepo, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewConversationRepo(sqlx.NewDb(db, "sqlmock")), mock
}

func TestSetArchivedRepeatKeepsOriginalEntry(t *testing.T) {
	repo, mock := newConversationRepo(t)
	at := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	mock.ExpectExec(`INSERT INTO conversation_archives \(conversation_id, user_id, archived_at\)`).
		WithArgs("a_b", "a", at).
		WillReturnResult(sqlmock.NewResult(0, 1))
	// The conflict target swallows the second insert; the original
	// archived_at survives.
	mock.ExpectExec(`INSERT INTO conversation_archives \(conversation_id, user_id, archived_at\)`).
		WithArgs("a_b", "a", at.Add(time.Hour)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.SetArchived(context.Background(), "a_b", "a", true, at))
	require.NoError(t, repo.SetArchived(context.Background(), "a_b", "a", true, at.Add(time.Hour)))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSetArchivedUnarchiveAbsentIsNoOp(t *testing.T) {
	repo, mock := newConversationRepo(t)

	mock.ExpectExec(`DELETE FROM conversation_archives WHERE conversation_id=\$1 AND user_id=\$2`).
		WithArgs("a_b", "a").
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.SetArchived(context.Background(), "a_b", "a", false, time.Now()))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetUnknownConversation(t *testing.T) {
	repo, mock := newConversationRepo(t)

	mock.ExpectQuery(`SELECT .+ FROM conversations WHERE conversation_id=\$1`).
		WithArgs("a_b").
		WillReturnRows(sqlmock.NewRows([]string{"conversation_id"}))

	_, err := repo.Get(context.Background(), "a_b")
	assert.ErrorIs(t, err, ErrConversationNotFound)
}
