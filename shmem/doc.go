/*Package shmem models the memory the host shares with the PRUs.

Two mappings matter.  The parameter block lives in the 12KB of PRU shared data
RAM and carries a handful of 32-bit fields: where the DDR pool is, how big the
sample ring is, the clock divisor, and the producer's write pointer and byte
counter.  The DDR pool is carved into two circular regions, the sample ring the
PRUs fill and the instruction ring they consume.

Nothing in this package does pointer arithmetic.  A Region is a byte slice of
known length addressed by word index, and every span handed to it is bounds
checked against its capacity.
*/
package shmem
