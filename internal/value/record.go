package value

import (
	"strings"
	"unsafe"
)

// Record is a user-defined typed record ("Object"): a type
// name plus a field map, participating in method dispatch by type name
// via the process-wide method registry (methods.go).
type Record struct {
	Type   string
	Fields *Map
}

func NewRecord(typeName string, fields *Map) *Record {
	return &Record{Type: typeName, Fields: fields}
}

func (r *Record) TypeName() string { return r.Type }

func (r *Record) Inspect() string {
	var sb strings.Builder
	sb.WriteString(r.Type)
	sb.WriteByte('{')
	keys := r.Fields.SortedKeys()
	for i, k := range keys {
		if i > 0 {
			sb.WriteString(", ")
		}
		v, _ := r.Fields.Get(k)
		sb.WriteString(k)
		sb.WriteString(": ")
		sb.WriteString(v.Inspect())
	}
	sb.WriteByte('}')
	return sb.String()
}

func (r *Record) Hash() uint32 {
	h := keyHash(r.Type)
	return h ^ r.Fields.Hash()
}

func (r *Record) IdentityKey() uintptr { return uintptr(unsafe.Pointer(r)) }

// With returns a new Record with field updated, routed through the Map's
// own COW mutation guard.
func (r *Record) With(field string, v Value) *Record {
	g := NewMapMutation(r.Fields)
	g.Put(field, v)
	return &Record{Type: r.Type, Fields: g.Finish()}
}
