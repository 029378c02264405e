package decompiler

import "fmt"

// debugDecompiler mirrors the teacher's pkg/driver debugDriver switch: flip
// it during development to trace block-stack transitions, never in a
// committed build.
const debugDecompiler = false

func debugf(format string, args ...interface{}) {
	if debugDecompiler {
		fmt.Printf(format, args...)
	}
}
