package store

import (
	"context"
	"sync"

	"github.com/mkolsari/streamrag/internal/domain/commonModels"
)

type InMemoryMessageStore struct {
	chatLock *sync.RWMutex
	chatMap  map[string][]commonModels.ConversationTurn
}

func InitMessageStore() *InMemoryMessageStore {
	return &InMemoryMessageStore{
		chatLock: new(sync.RWMutex),
		chatMap:  make(map[string][]commonModels.ConversationTurn),
	}
}

func (store *InMemoryMessageStore) ValidateChatId(ctx context.Context, chatId string) bool {
	store.chatLock.RLock()
	defer store.chatLock.RUnlock()
	_, ok := store.chatMap[chatId]
	return ok
}

func (store *InMemoryMessageStore) InitNewChat(ctx context.Context, id string) error {
	store.chatLock.Lock()
	defer store.chatLock.Unlock()
	store.chatMap[id] = make([]commonModels.ConversationTurn, 0)
	return nil
}

func (store *InMemoryMessageStore) AppendTurns(ctx context.Context, chatId string, turns []commonModels.ConversationTurn) error {
	store.chatLock.Lock()
	defer store.chatLock.Unlock()
	store.chatMap[chatId] = append(store.chatMap[chatId], turns...)
	return nil
}

// GetHistory returns at most the last limit turns, oldest first.
func (store *InMemoryMessageStore) GetHistory(ctx context.Context, chatId string, limit int) ([]commonModels.ConversationTurn, error) {
	store.chatLock.RLock()
	defer store.chatLock.RUnlock()
	turns := store.chatMap[chatId]
	if limit > 0 && len(turns) > limit {
		turns = turns[len(turns)-limit:]
	}
	out := make([]commonModels.ConversationTurn, len(turns))
	copy(out, turns)
	return out, nil
}
