package database

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "digest:"

// RedisStore keeps each collection in one hash. Field values are the JSON
// envelope below so UpdatedAt survives the round trip.
type RedisStore struct {
	client *redis.Client
}

type redisEnvelope struct {
	Data      json.RawMessage `json:"data"`
	UpdatedAt int64           `json:"updated_at"`
}

func NewRedisStore(ctx context.Context, addr, password string, db int) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 2,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	slog.Info("Connected to Redis", "addr", addr, "db", db)

	return &RedisStore{client: client}, nil
}

func (s *RedisStore) hashKey(collection string) string {
	return redisKeyPrefix + collection
}

func (s *RedisStore) Get(ctx context.Context, collection, key string) (Document, bool, error) {
	val, err := s.client.HGet(ctx, s.hashKey(collection), key).Bytes()
	if err == redis.Nil {
		return Document{}, false, nil
	}
	if err != nil {
		return Document{}, false, fmt.Errorf("failed to get document %s/%s: %w", collection, key, err)
	}

	doc, err := decodeEnvelope(key, val)
	if err != nil {
		return Document{}, false, err
	}
	return doc, true, nil
}

func (s *RedisStore) Set(ctx context.Context, collection string, doc Document) error {
	val, err := encodeEnvelope(doc)
	if err != nil {
		return err
	}
	if err := s.client.HSet(ctx, s.hashKey(collection), doc.Key, val).Err(); err != nil {
		return fmt.Errorf("failed to set document %s/%s: %w", collection, doc.Key, err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, collection, key string) error {
	if err := s.client.HDel(ctx, s.hashKey(collection), key).Err(); err != nil {
		return fmt.Errorf("failed to delete document %s/%s: %w", collection, key, err)
	}
	return nil
}

func (s *RedisStore) ListAll(ctx context.Context, collection string) ([]Document, error) {
	fields, err := s.client.HGetAll(ctx, s.hashKey(collection)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list documents in %s: %w", collection, err)
	}

	docs := make([]Document, 0, len(fields))
	for key, val := range fields {
		doc, err := decodeEnvelope(key, []byte(val))
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].Key < docs[j].Key })

	return docs, nil
}

func (s *RedisStore) SetBatch(ctx context.Context, collection string, docs []Document) error {
	if len(docs) == 0 {
		return nil
	}

	values, err := envelopeValues(docs)
	if err != nil {
		return err
	}
	if err := s.client.HSet(ctx, s.hashKey(collection), values...).Err(); err != nil {
		return fmt.Errorf("failed to set documents in %s: %w", collection, err)
	}
	return nil
}

func (s *RedisStore) DeleteAll(ctx context.Context, collection string) error {
	if err := s.client.Del(ctx, s.hashKey(collection)).Err(); err != nil {
		return fmt.Errorf("failed to clear %s: %w", collection, err)
	}
	return nil
}

func (s *RedisStore) ReplaceAll(ctx context.Context, collection string, docs []Document) error {
	values, err := envelopeValues(docs)
	if err != nil {
		return err
	}

	key := s.hashKey(collection)
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		if len(values) > 0 {
			pipe.HSet(ctx, key, values...)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to replace %s: %w", collection, err)
	}
	return nil
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

func envelopeValues(docs []Document) ([]any, error) {
	values := make([]any, 0, len(docs)*2)
	for _, doc := range docs {
		val, err := encodeEnvelope(doc)
		if err != nil {
			return nil, err
		}
		values = append(values, doc.Key, val)
	}
	return values, nil
}

func encodeEnvelope(doc Document) ([]byte, error) {
	updatedAt := doc.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now()
	}

	val, err := json.Marshal(redisEnvelope{Data: doc.Data, UpdatedAt: updatedAt.Unix()})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal document %s: %w", doc.Key, err)
	}
	return val, nil
}

func decodeEnvelope(key string, val []byte) (Document, error) {
	var env redisEnvelope
	if err := json.Unmarshal(val, &env); err != nil {
		return Document{}, fmt.Errorf("failed to unmarshal document %s: %w", key, err)
	}
	return Document{Key: key, Data: env.Data, UpdatedAt: time.Unix(env.UpdatedAt, 0).UTC()}, nil
}
