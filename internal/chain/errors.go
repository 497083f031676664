package chain

import "errors"

var (
	// ErrNilTransmitter is returned when a nil node is linked.
	ErrNilTransmitter = errors.New("chain: nil transmitter")

	// ErrAlreadyLinked is returned when a node is linked twice into one chain.
	ErrAlreadyLinked = errors.New("chain: transmitter already linked")

	// ErrNotLinked is returned when an operation names a node that is not in the chain.
	ErrNotLinked = errors.New("chain: transmitter not linked")
)
