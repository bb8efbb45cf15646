// Package gpio provides signal-pin reading with hardware abstraction.
// The real implementation uses the Linux GPIO character device.
// The fake implementation allows testing without hardware.
package gpio

// Reader reads the failsafe signal pin.
type Reader interface {
	// Read returns the raw logical level of the monitored pin.
	// High means the console is on the primary source, low means the
	// failsafe has switched to the backup source.
	Read() (bool, error)

	// Close releases GPIO resources.
	Close() error
}

// DefaultPin is the BCM number of the failsafe status line.
const DefaultPin = 17

// DefaultChip is the GPIO character device name.
const DefaultChip = "gpiochip0"
