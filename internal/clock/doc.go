// Package clock provides the time source and scheduler behind playback.
//
// Every piece of annotation state is mutated on one logical thread. Loop is
// that thread: a goroutine draining a queue of functions. Real posts ticker
// callbacks into a Loop so timer ticks interleave with user input instead of
// racing it, and a stopped Handle drops any tick already queued. Manual is a
// deterministic clock for tests whose ticks fire only inside Advance.
package clock
