// Command regallocfuzz runs the allocator over a small built-in test
// function and prints its Output for manual inspection. It is not the
// fuzzer itself (that lives outside this module's scope, per spec.md
// §1); this is the thin harness a developer reaches for while chasing a
// specific allocation decision, in the same spirit as wazero's own
// cmd/wazero entry point.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/ionpass/regalloc/regalloc"
)

func main() {
	verbose := flag.Bool("v", false, "enable regalloc debug logging")
	flag.Parse()

	regalloc.DebugLoggingEnabled = *verbose

	f := builtinAddFunction()
	mach := builtinMachineEnv()

	env, err := regalloc.NewEnv(f, mach)
	if err != nil {
		fmt.Fprintln(os.Stderr, "init:", err)
		os.Exit(1)
	}
	out, err := env.Run()
	if err != nil {
		fmt.Fprintln(os.Stderr, "run:", err)
		os.Exit(1)
	}

	fmt.Printf("allocs: %v\n", out.Allocs)
	fmt.Printf("edits: %d\n", len(out.Edits))
	for _, ed := range out.Edits {
		fmt.Printf("  %s: %s <- %s\n", ed.At, ed.Move.To, ed.Move.From)
	}
	fmt.Printf("spillslots: %d\n", out.NumSpillSlots)
	fmt.Printf("stats: %+v\n", out.Stats)
}
