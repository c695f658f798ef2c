package auth

import (
	"context"
	"sync"
	"time"

	"github.com/IkonicR/clanova-manager/internal/model"
	"github.com/IkonicR/clanova-manager/internal/repository"
)

// SessionCache はSessionRepositoryをラップするインメモリTTLキャッシュ。
// リクエストごとのセッション検証をDB往復なしで返せるようにする。
// 書き込み系の操作は委譲しつつ、該当エントリを無効化する。
type SessionCache struct {
	inner repository.SessionRepository
	ttl   time.Duration

	mu      sync.RWMutex
	entries map[string]*cacheEntry

	stopCleanup chan struct{}
	stopOnce    sync.Once
}

type cacheEntry struct {
	session   *model.Session
	expiresAt time.Time
}

// NewSessionCache はSessionCacheを生成し、定期クリーンアップを開始する。
// ttlはキャッシュエントリの保持時間であり、セッション自体の有効期限とは独立している。
func NewSessionCache(inner repository.SessionRepository, ttl time.Duration) *SessionCache {
	c := &SessionCache{
		inner:       inner,
		ttl:         ttl,
		entries:     make(map[string]*cacheEntry),
		stopCleanup: make(chan struct{}),
	}
	go c.cleanupLoop()
	return c
}

// FindByID はキャッシュにあればそれを返し、なければ内側のリポジトリに問い合わせる。
// 見つからなかった結果（nil）はキャッシュしない。
func (c *SessionCache) FindByID(ctx context.Context, id string) (*model.Session, error) {
	c.mu.RLock()
	entry, ok := c.entries[id]
	c.mu.RUnlock()

	if ok && time.Now().Before(entry.expiresAt) {
		// セッション自体の期限切れはキャッシュ上でも判定する
		if time.Now().After(entry.session.ExpiresAt) {
			c.Invalidate(id)
			return nil, nil
		}
		return entry.session, nil
	}

	session, err := c.inner.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if session != nil {
		c.mu.Lock()
		c.entries[id] = &cacheEntry{session: session, expiresAt: time.Now().Add(c.ttl)}
		c.mu.Unlock()
	}
	return session, nil
}

// Create は内側のリポジトリに委譲する。
func (c *SessionCache) Create(ctx context.Context, session *model.Session) error {
	return c.inner.Create(ctx, session)
}

// DeleteByID は内側のリポジトリに委譲し、キャッシュエントリを無効化する。
func (c *SessionCache) DeleteByID(ctx context.Context, id string) error {
	if err := c.inner.DeleteByID(ctx, id); err != nil {
		return err
	}
	c.Invalidate(id)
	return nil
}

// DeleteByUserID は内側のリポジトリに委譲し、該当ユーザーの全エントリを無効化する。
func (c *SessionCache) DeleteByUserID(ctx context.Context, userID string) error {
	if err := c.inner.DeleteByUserID(ctx, userID); err != nil {
		return err
	}
	c.mu.Lock()
	for id, entry := range c.entries {
		if entry.session.UserID == userID {
			delete(c.entries, id)
		}
	}
	c.mu.Unlock()
	return nil
}

// Invalidate は指定セッションIDのキャッシュエントリを破棄する。
// サインアウトイベントの購読先として使う。
func (c *SessionCache) Invalidate(sessionID string) {
	c.mu.Lock()
	delete(c.entries, sessionID)
	c.mu.Unlock()
}

// Close は定期クリーンアップを停止する。複数回呼んでも安全。
func (c *SessionCache) Close() {
	c.stopOnce.Do(func() {
		close(c.stopCleanup)
	})
}

// cleanupLoop は期限切れエントリを定期的に削除する。
func (c *SessionCache) cleanupLoop() {
	interval := c.ttl
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			now := time.Now()
			c.mu.Lock()
			for id, entry := range c.entries {
				if now.After(entry.expiresAt) {
					delete(c.entries, id)
				}
			}
			c.mu.Unlock()
		case <-c.stopCleanup:
			return
		}
	}
}

var _ repository.SessionRepository = (*SessionCache)(nil)
