/*Package pru brings up the two programmable realtime units of the AM335x.

PRU0 clocks the DAC and ADC and PRU1 moves samples into DDR.  A Driver maps the
memory the host shares with them and starts and stops their programs.  UIO
talks to the uio_pruss kernel driver; Sim is a software stand-in that behaves
like the loaded firmware and is good for tests and bench work without a board.
*/
package pru

import (
	"errors"
	"fmt"
)

// Cores is the number of PRUs in the subsystem
const Cores = 2

// IRAMSize is the instruction RAM of each core, in bytes
const IRAMSize = 0x2000

var (
	// ErrCore is generated when a core number other than 0 or 1 is used
	ErrCore = errors.New("PRU core must be 0 or 1")

	// ErrNotOpen is generated when the driver is used before Open
	ErrNotOpen = errors.New("PRU driver is not open")

	// ErrFirmwareSize is generated when a program does not fit in instruction RAM
	ErrFirmwareSize = errors.New("firmware does not fit in PRU instruction RAM")
)

// Driver is the host side of the PRU subsystem
type Driver interface {
	// Open maps the subsystem.  It must be called before anything else.
	Open() error

	// Load copies firmware into core's instruction RAM and starts it
	Load(core int, firmware string) error

	// Disable halts core
	Disable(core int) error

	// Params returns the shared data RAM that holds the parameter block
	Params() ([]byte, error)

	// ExtMem returns the DDR pool shared with the PRUs and its physical address
	ExtMem() (mem []byte, phys uint32, err error)

	// Close halts nothing but releases every mapping; disable the cores first
	Close() error
}

func checkCore(core int) error {
	if core < 0 || core >= Cores {
		return fmt.Errorf("%w: %d", ErrCore, core)
	}
	return nil
}
