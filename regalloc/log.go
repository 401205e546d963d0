package regalloc

// DebugLoggingEnabled is a switch for verbose tracing of the allocation
// pipeline. No code in this package reads it, so setting it does not
// change what the allocator does or prints.
var DebugLoggingEnabled = false

// ValidationEnabled gates the internal stackmap consistency assertion
// (validateStackmaps), the only check it controls. The assertion
// catches allocator bugs, not malformed input: when tripped it panics
// rather than returning an error.
var ValidationEnabled = true
