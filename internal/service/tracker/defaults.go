package tracker

const (
	// ackCapacity bounds how many blocks may sit between "requested" and
	// "acknowledged". Every ordering guarantee in this package assumes it
	// stays 1.
	ackCapacity = 1
)
