package dbmysql

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTestDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	gormDB, err := gorm.Open(mysql.New(mysql.Config{
		Conn:                      db,
		SkipInitializeWithVersion: true,
	}), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	cleanup := func() {
		db.Close()
	}

	return gormDB, mock, cleanup
}

func TestMessageRepository_Save(t *testing.T) {
	gormDB, mock, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewMessageRepository(gormDB)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO `messages`").
		WithArgs("msg_1", "u1", "u2", "hello", "", sqlmock.AnyArg(), nil).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	err := repo.Save(context.Background(), &Message{
		MessageID:  "msg_1",
		SenderID:   "u1",
		ReceiverID: "u2",
		Text:       "hello",
		CreatedAt:  time.Now().UTC(),
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMessageRepository_HistoryCoversBothDirections(t *testing.T) {
	gormDB, mock, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewMessageRepository(gormDB)

	rows := sqlmock.NewRows([]string{"message_id", "sender_id", "receiver_id", "text", "image_url", "created_at", "deleted_at"}).
		AddRow("m1", "u1", "u2", "hi", "", time.Now(), nil).
		AddRow("m2", "u2", "u1", "hey", "", time.Now(), nil)

	mock.ExpectQuery("SELECT (.+) FROM `messages`").
		WithArgs("u1", "u2", "u2", "u1").
		WillReturnRows(rows)

	history, err := repo.History(context.Background(), "u1", "u2")
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "m1", history[0].MessageID)
	assert.Equal(t, "u2", history[1].SenderID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMessageRepository_SoftDelete(t *testing.T) {
	gormDB, mock, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewMessageRepository(gormDB)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE `messages` SET `deleted_at`").
		WithArgs(sqlmock.AnyArg(), "m1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.SoftDelete(context.Background(), "m1"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMessageRepository_SoftDeleteUnknownIDIsNoOp(t *testing.T) {
	gormDB, mock, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewMessageRepository(gormDB)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE `messages` SET `deleted_at`").
		WithArgs(sqlmock.AnyArg(), "ghost").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	require.NoError(t, repo.SoftDelete(context.Background(), "ghost"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFollowRepository_ToggleSequence(t *testing.T) {
	gormDB, mock, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewFollowRepository(gormDB)
	ctx := context.Background()

	mock.ExpectQuery("SELECT count(.+) FROM `follows`").
		WithArgs("u1", "u7").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	exists, err := repo.Exists(ctx, "u1", "u7")
	require.NoError(t, err)
	assert.False(t, exists)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO `follows`").
		WithArgs("u1", "u7", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.Create(ctx, &Follow{UserID: "u1", TargetUserID: "u7"}))

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM `follows`").
		WithArgs("u1", "u7").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.Delete(ctx, "u1", "u7"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFollowRepository_ListFollowing(t *testing.T) {
	gormDB, mock, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewFollowRepository(gormDB)

	mock.ExpectQuery("SELECT `target_user_id` FROM `follows`").
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows([]string{"target_user_id"}).AddRow("u7").AddRow("u9"))

	ids, err := repo.ListFollowing(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{"u7", "u9"}, ids)
}

func TestUserRepository_CheckUserExists(t *testing.T) {
	gormDB, mock, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewUserRepository(gormDB)

	mock.ExpectQuery("SELECT count(.+) FROM `users`").
		WithArgs("alice").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	exists, err := repo.CheckUserExists(context.Background(), "alice")
	require.NoError(t, err)
	assert.True(t, exists)
}
