package store

import (
	"context"
	"encoding/json"

	"github.com/mkolsari/streamrag/internal/config"
	"github.com/mkolsari/streamrag/internal/data/redisStore"
	"github.com/mkolsari/streamrag/internal/domain/commonModels"
	"github.com/mkolsari/streamrag/pkg/logger_i"
)

type RedisMessageStore struct {
	store  *redisStore.Store
	logger *logger_i.Logger
}

// GetRedisMessageStore returns nil when redis is unreachable so the
// caller can fall back to the in-memory store.
func GetRedisMessageStore(ctx context.Context) *RedisMessageStore {
	backing := redisStore.GetRedisStore(ctx, config.RedisMessageStore)
	if backing == nil {
		return nil
	}
	return &RedisMessageStore{
		store:  backing,
		logger: logger_i.NewLogger("MessageStore"),
	}
}

func (s *RedisMessageStore) ValidateChatId(ctx context.Context, chatId string) bool {
	log := s.logger.With("traceId", ctx.Value(config.TRACE_ID_KEY), "chat Id", chatId)
	isFound, err := s.store.Exists(ctx, chatId)
	if s.store.IsNil(err) {
		return false
	} else if err != nil {
		log.Error("Failed to check if chatId exists", "err", err)
		return false
	}
	return isFound
}

// InitNewChat seeds the list with a marker entry so the key exists and
// ValidateChatId works before the first turn lands.
func (s *RedisMessageStore) InitNewChat(ctx context.Context, id string) error {
	log := s.logger.With("traceId", ctx.Value(config.TRACE_ID_KEY), "chat Id", id)
	log.Debug("Initializing new chat")
	if err := s.store.Del(ctx, id); err != nil && !s.store.IsNil(err) {
		log.Error("Error resetting chat", "error", err)
	}
	return s.pushTurn(ctx, id, commonModels.ConversationTurn{})
}

func (s *RedisMessageStore) AppendTurns(ctx context.Context, chatId string, turns []commonModels.ConversationTurn) error {
	for _, turn := range turns {
		if err := s.pushTurn(ctx, chatId, turn); err != nil {
			return err
		}
	}
	return nil
}

func (s *RedisMessageStore) pushTurn(ctx context.Context, id string, turn commonModels.ConversationTurn) error {
	log := s.logger.With("traceId", ctx.Value(config.TRACE_ID_KEY), "chat Id", id)
	data, err := json.Marshal(turn)
	if err != nil {
		log.Error("Error marshalling turn", "error", err)
		return err
	}
	err = s.store.ListPush(ctx, id, data)
	if err != nil {
		log.Error("error saving chat", "error", err)
	}
	return err
}

// GetHistory returns at most the last limit turns, oldest first. The
// marker entry from InitNewChat deserializes to an empty turn and is
// dropped.
func (s *RedisMessageStore) GetHistory(ctx context.Context, chatId string, limit int) ([]commonModels.ConversationTurn, error) {
	log := s.logger.With("traceId", ctx.Value(config.TRACE_ID_KEY), "chat Id", chatId)

	raw, err := s.store.ListGetLastN(ctx, chatId, int64(limit)+1)
	if err != nil {
		log.Error("Error getting history", "error", err)
		return nil, err
	}

	turns := make([]commonModels.ConversationTurn, 0, len(raw))
	for _, entry := range raw {
		var turn commonModels.ConversationTurn
		if err := json.Unmarshal([]byte(entry), &turn); err != nil {
			log.Error("Skipping malformed history entry", "error", err)
			continue
		}
		if turn.Content == "" {
			continue
		}
		turns = append(turns, turn)
	}
	if limit > 0 && len(turns) > limit {
		turns = turns[len(turns)-limit:]
	}
	return turns, nil
}

func TestMessageStore(store *redisStore.Store) *RedisMessageStore {
	return &RedisMessageStore{
		store:  store,
		logger: logger_i.NewLogger("test redis"),
	}
}
