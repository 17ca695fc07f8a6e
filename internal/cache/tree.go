package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"promptmart-admin/internal/category"

	"github.com/redis/go-redis/v9"
)

const (
	treeKey = "categories:tree:v1"
	genKey  = "categories:tree:gen"

	DefaultTreeTTL = 5 * time.Minute
)

var _ category.TreeCache = (*TreeCache)(nil)

// TreeCache keeps the assembled category tree as one JSON document, guarded
// by a generation counter that every Invalidate bumps.
type TreeCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewTreeCache(client *redis.Client, ttl time.Duration) *TreeCache {
	if ttl <= 0 {
		ttl = DefaultTreeTTL
	}
	return &TreeCache{client: client, ttl: ttl}
}

// Load returns the cached tree. On a miss it returns the generation the
// caller must hand back to Store.
func (c *TreeCache) Load(ctx context.Context) ([]*category.TreeNode, int64, bool, error) {
	var genCmd, treeCmd *redis.StringCmd
	_, err := c.client.Pipelined(ctx, func(p redis.Pipeliner) error {
		genCmd = p.Get(ctx, genKey)
		treeCmd = p.Get(ctx, treeKey)
		return nil
	})
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, 0, false, fmt.Errorf("tree cache get: %w", err)
	}

	gen, err := generation(genCmd)
	if err != nil {
		return nil, 0, false, err
	}

	raw, err := treeCmd.Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, gen, false, nil
	}
	if err != nil {
		return nil, 0, false, fmt.Errorf("tree cache get: %w", err)
	}

	var tree []*category.TreeNode
	if err := json.Unmarshal(raw, &tree); err != nil {
		// A stale or foreign payload is a miss, not a failure.
		_ = c.client.Del(ctx, treeKey).Err()
		return nil, gen, false, nil
	}
	return tree, gen, true, nil
}

// Store writes tree only while the generation still equals gen. A concurrent
// Invalidate turns the write into a no-op.
func (c *TreeCache) Store(ctx context.Context, gen int64, tree []*category.TreeNode) error {
	raw, err := json.Marshal(tree)
	if err != nil {
		return fmt.Errorf("tree cache encode: %w", err)
	}

	err = c.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := generation(tx.Get(ctx, genKey))
		if err != nil {
			return err
		}
		if current != gen {
			return nil
		}
		_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			p.Set(ctx, treeKey, raw, c.ttl)
			return nil
		})
		return err
	}, genKey)
	if errors.Is(err, redis.TxFailedErr) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("tree cache set: %w", err)
	}
	return nil
}

func (c *TreeCache) Invalidate(ctx context.Context) error {
	_, err := c.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Incr(ctx, genKey)
		p.Del(ctx, treeKey)
		return nil
	})
	if err != nil {
		return fmt.Errorf("tree cache invalidate: %w", err)
	}
	return nil
}

// generation reads the counter, treating a missing key as zero.
func generation(cmd *redis.StringCmd) (int64, error) {
	gen, err := cmd.Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("tree cache generation: %w", err)
	}
	return gen, nil
}
