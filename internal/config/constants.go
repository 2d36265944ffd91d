// Package config holds small cross-package constants: version string,
// canonical built-in names, and source-extension helpers, following the
// same shape as the teacher corpus's internal/config package.
package config

// Version is the current Nyx core version.
var Version = "0.1.0"

// SourceFileExt is the canonical source file extension for Nyx programs.
const SourceFileExt = ".nyx"

// Built-in type tag names, returned by TypeName/the `type` native.
const (
	TypeNil      = "Nil"
	TypeBool     = "Bool"
	TypeInt      = "Int"
	TypeFloat    = "Float"
	TypeString   = "String"
	TypeList     = "List"
	TypeMap      = "Map"
	TypeClosure  = "Function"
	TypeNative   = "Function"
	TypeObject   = "Object"
	TypeTask     = "Task"
	TypeChannel  = "Channel"
	TypeStream   = "Stream"
	TypeIterator = "Iterator"
	TypeGuard    = "MutationGuard"
	TypeCursor   = "StreamCursor"
)

// MembershipCacheMinLen is the minimum list length before a lazily
// populated hash-set membership cache is worth building.
const MembershipCacheMinLen = 64

// SetDifferenceHashThreshold is the right-operand size above which
// List-List set difference switches from a nested-loop scan to a
// hash-set based algorithm.
const SetDifferenceHashThreshold = 32
