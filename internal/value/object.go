// Package value implements the Value model: immediate scalars,
// reference-counted strings/lists/maps with copy-on-write
// mutation guards, closures, native functions, user objects, and opaque
// handles. Grounded on internal/vm/value.go's tagged-union Value struct
// and internal/evaluator/object.go's Object interface from the teacher.
package value

// Object is the interface every heap-allocated (ValObj-tagged) value
// implements, mirroring the teacher's evaluator.Object shape.
type Object interface {
	TypeName() string
	Inspect() string
	Hash() uint32
}
