package store

import "fmt"

// KeyKind enumerates the logical key space. Keys are a closed tagged
// variant rather than ad-hoc string concatenation so the spaces cannot
// collide; the string form is only produced at the cache/persistence edge.
type KeyKind uint8

const (
	KeyAdmin KeyKind = iota
	KeyOracle
	KeyWindows
	KeyActiveRound
	KeyLastRoundID
	KeyBalance         // addressed
	KeyPendingWinnings // addressed
	KeyUserStats       // addressed
)

// Key identifies one stored value. Addr is set only for the addressed
// kinds.
type Key struct {
	Kind KeyKind
	Addr string
}

func (k Key) String() string {
	switch k.Kind {
	case KeyAdmin:
		return "admin"
	case KeyOracle:
		return "oracle"
	case KeyWindows:
		return "windows"
	case KeyActiveRound:
		return "round:active"
	case KeyLastRoundID:
		return "round:last_id"
	case KeyBalance:
		return "balance:" + k.Addr
	case KeyPendingWinnings:
		return "pending:" + k.Addr
	case KeyUserStats:
		return "stats:" + k.Addr
	}
	return fmt.Sprintf("key:%d:%s", k.Kind, k.Addr)
}

// Singleton builds a key for an unaddressed kind.
func Singleton(kind KeyKind) Key { return Key{Kind: kind} }

// Addressed builds a key for a per-address kind.
func Addressed(kind KeyKind, addr string) Key { return Key{Kind: kind, Addr: addr} }
