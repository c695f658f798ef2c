package auth

import "sync"

// EventType はセッション状態の変化種別。
type EventType string

const (
	// EventSignedIn はサインイン成功時に発行される。
	EventSignedIn EventType = "signed_in"
	// EventSignedUp はサインアップ成功時に発行される（自動サインイン分を含む）。
	EventSignedUp EventType = "signed_up"
	// EventSignedOut はサインアウト時に発行される。
	EventSignedOut EventType = "signed_out"
)

// SessionEvent はセッション状態の変化を表す。
// SessionIDはセッション発行に失敗したサインアップでは空になりうる。
// Outcomeはsigned_upイベントにのみ設定される。
type SessionEvent struct {
	Type      EventType
	SessionID string
	UserID    string
	Outcome   string
}

// Notifier はセッション状態の変化を購読者に同期配信する。
// 購読者のコールバックはPublish呼び出し元のゴルーチンで実行されるため、
// コールバック内でブロックする処理を行ってはならない。
type Notifier struct {
	mu     sync.RWMutex
	nextID int
	subs   map[int]func(SessionEvent)
}

// NewNotifier はNotifierを生成する。
func NewNotifier() *Notifier {
	return &Notifier{subs: make(map[int]func(SessionEvent))}
}

// Subscribe はコールバックを登録し、解除用の関数を返す。
// 解除関数は複数回呼んでも安全。
func (n *Notifier) Subscribe(fn func(SessionEvent)) func() {
	n.mu.Lock()
	id := n.nextID
	n.nextID++
	n.subs[id] = fn
	n.mu.Unlock()

	return func() {
		n.mu.Lock()
		delete(n.subs, id)
		n.mu.Unlock()
	}
}

// Publish はイベントを全購読者に配信する。配信順序は保証しない。
func (n *Notifier) Publish(ev SessionEvent) {
	n.mu.RLock()
	fns := make([]func(SessionEvent), 0, len(n.subs))
	for _, fn := range n.subs {
		fns = append(fns, fn)
	}
	n.mu.RUnlock()

	for _, fn := range fns {
		fn(ev)
	}
}
