package valoremrfq

import (
	"context"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/sync/singleflight"
)

// DefaultTokenCache is shared by every session that does not bring its own.
var DefaultTokenCache = NewTokenCache()

// TokenCache holds one session token per signer address. Reads are concurrent;
// for each address only one sign-in runs at a time and the other callers wait for it.
type TokenCache struct {
	mu     sync.RWMutex
	tokens map[common.Address]SessionToken
	group  singleflight.Group
}

func NewTokenCache() *TokenCache {
	return &TokenCache{tokens: make(map[common.Address]SessionToken)}
}

// Get returns the cached token for addr.
func (c *TokenCache) Get(addr common.Address) (SessionToken, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	token, ok := c.tokens[addr]
	return token, ok
}

// Acquire returns the cached token for addr, or runs fetch to obtain one.
// Concurrent callers for the same address share a single fetch.
func (c *TokenCache) Acquire(ctx context.Context, addr common.Address, fetch func(context.Context) (SessionToken, error)) (SessionToken, error) {
	if token, ok := c.Get(addr); ok {
		return token, nil
	}

	ch := c.group.DoChan(addr.Hex(), func() (interface{}, error) {
		if token, ok := c.Get(addr); ok {
			return token, nil
		}
		token, err := fetch(ctx)
		if err != nil {
			return SessionToken(""), err
		}
		c.store(addr, token)
		return token, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(SessionToken), nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Invalidate drops the token for addr if it is still token, for example after
// the server rejects it. A newer token written by another session is kept.
func (c *TokenCache) Invalidate(addr common.Address, token SessionToken) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if current, ok := c.tokens[addr]; ok && current == token {
		delete(c.tokens, addr)
	}
}

func (c *TokenCache) store(addr common.Address, token SessionToken) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.tokens[addr]; ok {
		return
	}
	c.tokens[addr] = token
}
