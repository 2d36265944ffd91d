package value

import (
	"unsafe"

	"github.com/google/uuid"
)

// HandleKind enumerates the opaque-handle families: Task, Channel,
// Stream, Iterator, MutationGuard, StreamCursor. Identity-typed from the
// VM's perspective; all operations go through the module that produced
// them.
type HandleKind uint8

const (
	HandleTask HandleKind = iota
	HandleChannel
	HandleStream
	HandleIterator
	HandleGuard
	HandleCursor
)

func (k HandleKind) String() string {
	switch k {
	case HandleTask:
		return "Task"
	case HandleChannel:
		return "Channel"
	case HandleStream:
		return "Stream"
	case HandleIterator:
		return "Iterator"
	case HandleGuard:
		return "MutationGuard"
	case HandleCursor:
		return "StreamCursor"
	default:
		return "Handle"
	}
}

// Handle is an opaque, identity-typed value produced and consumed by an
// external module (the async runtime, an iterator adapter, a stream
// library, ...). Nyx stamps every handle with a uuid.UUID identity
// (a supplemented feature) so it has a stable identifier usable as an
// inline-cache key even across the pkg/nyx embedding boundary, where a Go
// pointer wouldn't survive a round trip through Inspect()/serialization.
type Handle struct {
	Kind    HandleKind
	ID      uuid.UUID
	Payload any // module-owned opaque state; the core never inspects it
}

func NewHandle(kind HandleKind, payload any) *Handle {
	return &Handle{Kind: kind, ID: uuid.New(), Payload: payload}
}

func (h *Handle) TypeName() string { return h.Kind.String() }
func (h *Handle) Inspect() string  { return "<" + h.Kind.String() + " " + h.ID.String() + ">" }
func (h *Handle) Hash() uint32 {
	b := h.ID
	var x uint32
	for i := 0; i < len(b); i += 4 {
		x ^= uint32(b[i])<<24 | uint32(b[i+1])<<16 | uint32(b[i+2])<<8 | uint32(b[i+3])
	}
	return x
}
// IdentityKey uses the Go pointer for in-process inline-cache keying; ID
// (the UUID) is the identity that survives Inspect()/serialization round
// trips across the pkg/nyx embedding boundary.
func (h *Handle) IdentityKey() uintptr { return uintptr(unsafe.Pointer(h)) }
