// Package pager simulates page management over a memory reference trace.
//
// A Session loads a trace, then replays it with an AccessEngine on the
// caller's goroutine while a ClockSweeper clears reference bits in the
// background. Both share one page table and one frame table under a single
// mutex. Faults fill the lowest free frame first and otherwise evict the
// frame chosen by the Not-Recently-Used policy.
package pager
