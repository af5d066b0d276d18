package store

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	mcpxerrors "github.com/sweetpotato0/mcpx-agents/errors"
	"github.com/sweetpotato0/mcpx-agents/message"
)

func newMockPostgresStore(t *testing.T) (*PostgresStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS conversation_items").
		WillReturnResult(sqlmock.NewResult(0, 0))

	s, err := NewPostgresStoreWithDB(context.Background(), db, "")
	if err != nil {
		t.Fatalf("NewPostgresStoreWithDB: %v", err)
	}
	return s, mock
}

func TestPostgresStoreAppend(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO conversation_items").
		WithArgs("conv", "user", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO conversation_items").
		WithArgs("conv", "assistant", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(2, 1))
	mock.ExpectCommit()

	err := s.Append(context.Background(), "conv",
		message.NewMessage(message.RoleUser, "hi"),
		message.NewMessage(message.RoleAssistant, "hello"),
	)
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPostgresStoreAppendRollsBack(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO conversation_items").
		WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	err := s.Append(context.Background(), "conv", message.NewMessage(message.RoleUser, "hi"))
	if err == nil {
		t.Fatal("expected insert error")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPostgresStoreLoad(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	first, _ := message.Marshal(message.NewMessage(message.RoleUser, "hi"))
	second, _ := message.Marshal(message.NewMessage(message.RoleAssistant, "hello"))
	rows := sqlmock.NewRows([]string{"payload"}).AddRow(first).AddRow(second)
	mock.ExpectQuery("SELECT payload FROM conversation_items WHERE conversation_id = \\$1 ORDER BY seq ASC").
		WithArgs("conv").
		WillReturnRows(rows)

	got, err := s.Load(context.Background(), "conv")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if want := []string{"hi", "hello"}; !equalStrings(contents(got), want) {
		t.Fatalf("Load = %v, want %v", contents(got), want)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPostgresStoreClear(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec("DELETE FROM conversation_items WHERE conversation_id = \\$1").
		WithArgs("conv").
		WillReturnResult(sqlmock.NewResult(0, 2))

	if err := s.Clear(context.Background(), "conv"); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPostgresStoreRejectsBadTable(t *testing.T) {
	db, _, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	_, err = NewPostgresStoreWithDB(context.Background(), db, "items; DROP TABLE users")
	if !errors.Is(err, mcpxerrors.ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig, got %v", err)
	}
}
