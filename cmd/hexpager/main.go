// Command hexpager replays memory reference traces against a fixed set of
// physical frames with Not-Recently-Used replacement.
package main

import (
	"github.com/tebeka/atexit"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		atexit.Exit(1)
	}
	atexit.Exit(0)
}
