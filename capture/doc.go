/*Package capture drains the PRU sample ring into an output sink.

The PRUs write packed sample pairs into a circular region of DDR and advance a
write pointer in the parameter block.  A Drainer polls that pointer, copies
whatever is new out of the ring (in two pieces when the producer has wrapped),
masks off the clock and input select bits, refills the matching half-length
span of the instruction ring, and appends the samples to the sink.  There is no
lock between the two sides; the consumer is allowed to see a stale write
pointer and simply picks up the rest on its next poll.

Basic usage, with a driver from package pru:

	sess := capture.NewSession(drv, sink, src, capture.Options{Frequency: 10e6})
	err := sess.Run(ctx) // returns when ctx is cancelled, or after one pass without Loop
*/
package capture
