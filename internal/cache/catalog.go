package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

const catalogTTL = 30 * time.Second

// Catalog is an injectable read-through cache for catalog lookups. A nil
// *Catalog is a valid no-op collaborator, so handlers never branch on
// whether caching is configured. Invalidation contract: every admin write
// to a product must call Invalidate for that product id; reads expire on
// their own after a short TTL either way.
type Catalog struct {
	rdb *goredis.Client
}

func NewCatalog(addr string) (*Catalog, error) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &Catalog{rdb: rdb}, nil
}

func catalogKey(productID string) string {
	return "catalog:product:" + productID
}

// Get decodes the cached entry for productID into dest. A miss, a decode
// failure or an unreachable cache all report false; the caller falls back
// to the database.
func (c *Catalog) Get(ctx context.Context, productID string, dest interface{}) bool {
	if c == nil {
		return false
	}

	raw, err := c.rdb.Get(ctx, catalogKey(productID)).Bytes()
	if err != nil {
		if err != goredis.Nil {
			log.Println("[CACHE] [WARN] catalog get failed:", err)
		}
		return false
	}

	if err := json.Unmarshal(raw, dest); err != nil {
		log.Println("[CACHE] [WARN] catalog decode failed:", err)
		return false
	}
	return true
}

func (c *Catalog) Set(ctx context.Context, productID string, value interface{}) {
	if c == nil {
		return
	}

	raw, err := json.Marshal(value)
	if err != nil {
		log.Println("[CACHE] [WARN] catalog encode failed:", err)
		return
	}

	if err := c.rdb.Set(ctx, catalogKey(productID), raw, catalogTTL).Err(); err != nil {
		log.Println("[CACHE] [WARN] catalog set failed:", err)
	}
}

func (c *Catalog) Invalidate(ctx context.Context, productID string) {
	if c == nil {
		return
	}

	if err := c.rdb.Del(ctx, catalogKey(productID)).Err(); err != nil {
		log.Println("[CACHE] [WARN] catalog invalidate failed:", err)
	}
}

func (c *Catalog) Close() error {
	if c == nil {
		return nil
	}
	return c.rdb.Close()
}
