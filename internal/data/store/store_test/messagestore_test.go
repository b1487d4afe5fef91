package store_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/mkolsari/streamrag/internal/config"
	"github.com/mkolsari/streamrag/internal/data/redisStore"
	"github.com/mkolsari/streamrag/internal/data/store"
	"github.com/mkolsari/streamrag/internal/domain/commonModels"
)

func newTestMessageStore(t *testing.T) *store.RedisMessageStore {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return store.TestMessageStore(redisStore.NewTestStore(client))
}

func TestRedisMessageStore_Lifecycle(t *testing.T) {
	msgStore := newTestMessageStore(t)
	ctx := context.WithValue(context.Background(), config.TRACE_ID_KEY, "test-trace")
	chatID := "chat_abc"

	if msgStore.ValidateChatId(ctx, chatID) {
		t.Fatal("chat should not exist before InitNewChat")
	}

	if err := msgStore.InitNewChat(ctx, chatID); err != nil {
		t.Fatalf("InitNewChat failed: %v", err)
	}
	if !msgStore.ValidateChatId(ctx, chatID) {
		t.Fatal("chat should exist after InitNewChat")
	}

	turns := []commonModels.ConversationTurn{
		{Role: commonModels.RoleUser, Content: "hello"},
		{Role: commonModels.RoleAssistant, Content: "hi there"},
	}
	if err := msgStore.AppendTurns(ctx, chatID, turns); err != nil {
		t.Fatalf("AppendTurns failed: %v", err)
	}

	history, err := msgStore.GetHistory(ctx, chatID, config.HistoryTurnLimit)
	if err != nil {
		t.Fatalf("GetHistory failed: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("expected 2 turns, got %d", len(history))
	}
	if history[0].Role != commonModels.RoleUser || history[0].Content != "hello" {
		t.Errorf("history out of order, first turn: %+v", history[0])
	}
	if history[1].Role != commonModels.RoleAssistant {
		t.Errorf("expected assistant second, got %+v", history[1])
	}
}

func TestRedisMessageStore_HistoryLimit(t *testing.T) {
	msgStore := newTestMessageStore(t)
	ctx := context.WithValue(context.Background(), config.TRACE_ID_KEY, "test-trace")
	chatID := "chat_long"

	if err := msgStore.InitNewChat(ctx, chatID); err != nil {
		t.Fatalf("InitNewChat failed: %v", err)
	}

	for i := 0; i < 15; i++ {
		turn := commonModels.ConversationTurn{
			Role:    commonModels.RoleUser,
			Content: fmt.Sprintf("message %d", i),
		}
		if err := msgStore.AppendTurns(ctx, chatID, []commonModels.ConversationTurn{turn}); err != nil {
			t.Fatalf("AppendTurns failed: %v", err)
		}
	}

	history, err := msgStore.GetHistory(ctx, chatID, 10)
	if err != nil {
		t.Fatalf("GetHistory failed: %v", err)
	}
	if len(history) != 10 {
		t.Fatalf("expected history capped at 10 turns, got %d", len(history))
	}
	if history[0].Content != "message 5" {
		t.Errorf("expected oldest kept turn to be message 5, got %q", history[0].Content)
	}
	if history[9].Content != "message 14" {
		t.Errorf("expected newest turn last, got %q", history[9].Content)
	}
}

func TestRedisMessageStore_EmptyHistory(t *testing.T) {
	msgStore := newTestMessageStore(t)
	ctx := context.WithValue(context.Background(), config.TRACE_ID_KEY, "test-trace")

	history, err := msgStore.GetHistory(ctx, "unknown-chat", 10)
	if err != nil {
		t.Fatalf("GetHistory on missing chat should not error: %v", err)
	}
	if len(history) != 0 {
		t.Errorf("expected empty history, got %d turns", len(history))
	}
}
