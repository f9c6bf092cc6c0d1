package recordstore

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
)

const (
	// Each record is a hash {v: version, d: value}; each namespace keeps a
	// set of member addresses so List does not need SCAN.
	redisRecordKeyPrefix = "topcharger:rec:"
	redisIndexKeyPrefix  = "topcharger:idx:"

	redisFieldVersion = "v"
	redisFieldValue   = "d"
)

// RedisStore persists records in Redis. Commit runs inside WATCH/MULTI over
// every key in the batch, so a write by any other client to one of those
// keys between the version check and EXEC aborts the transaction.
type RedisStore struct {
	client *redis.Client
}

// NewRedis constructs a Redis-backed store. The client lifecycle is managed
// by the caller.
func NewRedis(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func redisRecordKey(ns Namespace, addr Address) string {
	return redisRecordKeyPrefix + string(ns) + ":" + addr.String()
}

func redisIndexKey(ns Namespace) string {
	return redisIndexKeyPrefix + string(ns)
}

func (s *RedisStore) Get(ctx context.Context, ns Namespace, addr Address) (Record, error) {
	vals, err := s.client.HMGet(ctx, redisRecordKey(ns, addr), redisFieldVersion, redisFieldValue).Result()
	if err != nil {
		return Record{}, fmt.Errorf("get record %s/%s: %w", ns, addr, err)
	}
	return decodeRedisRecord(ns, addr, vals)
}

func (s *RedisStore) Commit(ctx context.Context, writes ...Write) error {
	if err := validateBatch(writes); err != nil {
		return err
	}

	keys := make([]string, len(writes))
	for i, w := range writes {
		keys[i] = redisRecordKey(w.Namespace, w.Address)
	}

	txf := func(tx *redis.Tx) error {
		for i, w := range writes {
			raw, err := tx.HGet(ctx, keys[i], redisFieldVersion).Result()
			var version uint64
			switch {
			case errors.Is(err, redis.Nil):
				version = 0
			case err != nil:
				return err
			default:
				version, err = strconv.ParseUint(raw, 10, 64)
				if err != nil {
					return fmt.Errorf("corrupt version at %s: %w", keys[i], err)
				}
			}
			if version != w.ExpectVersion {
				return ErrConcurrentModification
			}
		}

		_, err := tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			for i, w := range writes {
				pipe.HSet(ctx, keys[i], redisFieldVersion, w.ExpectVersion+1, redisFieldValue, w.Value)
				pipe.SAdd(ctx, redisIndexKey(w.Namespace), w.Address.String())
			}
			return nil
		})
		return err
	}

	err := s.client.Watch(ctx, txf, keys...)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, redis.TxFailedErr), errors.Is(err, ErrConcurrentModification):
		return ErrConcurrentModification
	default:
		return fmt.Errorf("commit %d records: %w", len(writes), err)
	}
}

// List returns every record in ns. Order follows the index set and is not
// stable across calls.
func (s *RedisStore) List(ctx context.Context, ns Namespace) ([]Record, error) {
	members, err := s.client.SMembers(ctx, redisIndexKey(ns)).Result()
	if err != nil {
		return nil, fmt.Errorf("list %s index: %w", ns, err)
	}
	if len(members) == 0 {
		return nil, nil
	}

	addrs := make([]Address, 0, len(members))
	cmds := make([]*redis.SliceCmd, 0, len(members))
	pipe := s.client.Pipeline()
	for _, m := range members {
		addr, err := ParseAddress(m)
		if err != nil {
			return nil, fmt.Errorf("corrupt %s index member %q: %w", ns, m, err)
		}
		addrs = append(addrs, addr)
		cmds = append(cmds, pipe.HMGet(ctx, redisRecordKey(ns, addr), redisFieldVersion, redisFieldValue))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("list %s records: %w", ns, err)
	}

	out := make([]Record, 0, len(cmds))
	for i, cmd := range cmds {
		rec, err := decodeRedisRecord(ns, addrs[i], cmd.Val())
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

func decodeRedisRecord(ns Namespace, addr Address, vals []any) (Record, error) {
	if len(vals) != 2 || vals[0] == nil {
		return Record{}, ErrNotFound
	}
	rawVersion, ok := vals[0].(string)
	if !ok {
		return Record{}, fmt.Errorf("corrupt version at %s/%s", ns, addr)
	}
	version, err := strconv.ParseUint(rawVersion, 10, 64)
	if err != nil {
		return Record{}, fmt.Errorf("corrupt version at %s/%s: %w", ns, addr, err)
	}
	value, _ := vals[1].(string)
	return Record{Namespace: ns, Address: addr, Version: version, Value: []byte(value)}, nil
}
