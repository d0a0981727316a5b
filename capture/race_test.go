//go:build race

package capture

// the simulated producer shares the ring with the consumer without locks
const raceEnabled = true
