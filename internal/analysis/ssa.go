package analysis

// SsaValue names a single escape-analysis unit: conventionally a value
// produced by lowering expression-dense fragments to SSA form. In Nyx's
// register machine every local and every call-site destination is
// already a stably-numbered register, so an SsaValue and a register slot
// coincide one-for-one and no separate SSA-construction pass is needed to
// get an escape summary keyed the same way a from-scratch SSA builder
// would key it. See escape.go's doc comment on escapeWalker for the full
// reasoning; this type exists so the rest of the package can refer to
// "the thing escape analysis classifies" by one name.
type SsaValue = int
