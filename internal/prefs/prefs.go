package prefs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	keyPrefix  = "prefs:"
	defaultTTL = 30 * 24 * time.Hour
)

var errEmptyClient = errors.New("prefs: client id vazio")

// Flags são as preferências duráveis de um navegador.
type Flags struct {
	IsGoogleUser      bool   `json:"isGoogleUser"`
	ProfilePictureURL string `json:"profilePictureUrl,omitempty"`
}

type redisCommander interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// Store persiste Flags em Redis, uma chave por client id.
type Store struct {
	redis redisCommander
	ttl   time.Duration
}

func NewStore(r redisCommander, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &Store{redis: r, ttl: ttl}
}

// Load devolve flags zeradas quando a chave não existe.
func (s *Store) Load(ctx context.Context, clientID string) (Flags, error) {
	key, err := redisKey(clientID)
	if err != nil {
		return Flags{}, err
	}
	raw, err := s.redis.Get(ctx, key).Result()
	if err == redis.Nil {
		return Flags{}, nil
	}
	if err != nil {
		return Flags{}, fmt.Errorf("prefs: carregar: %w", err)
	}
	var flags Flags
	if err := json.Unmarshal([]byte(raw), &flags); err != nil {
		return Flags{}, nil
	}
	return flags, nil
}

func (s *Store) Save(ctx context.Context, clientID string, flags Flags) error {
	key, err := redisKey(clientID)
	if err != nil {
		return err
	}
	payload, err := json.Marshal(flags)
	if err != nil {
		return err
	}
	if err := s.redis.Set(ctx, key, payload, s.ttl).Err(); err != nil {
		return fmt.Errorf("prefs: salvar: %w", err)
	}
	return nil
}

func (s *Store) Clear(ctx context.Context, clientID string) error {
	key, err := redisKey(clientID)
	if err != nil {
		return err
	}
	if err := s.redis.Del(ctx, key).Err(); err != nil && err != redis.Nil {
		return fmt.Errorf("prefs: limpar: %w", err)
	}
	return nil
}

func redisKey(clientID string) (string, error) {
	clientID = strings.TrimSpace(clientID)
	if clientID == "" {
		return "", errEmptyClient
	}
	return keyPrefix + clientID, nil
}

// Bound associa um Store a um client id, servindo uma única sessão.
type Bound struct {
	store    *Store
	clientID string
}

func (s *Store) Bind(clientID string) *Bound {
	return &Bound{store: s, clientID: clientID}
}

func (b *Bound) Load(ctx context.Context) (Flags, error) {
	return b.store.Load(ctx, b.clientID)
}

func (b *Bound) Save(ctx context.Context, flags Flags) error {
	return b.store.Save(ctx, b.clientID, flags)
}

func (b *Bound) Clear(ctx context.Context) error {
	return b.store.Clear(ctx, b.clientID)
}
