package protocol

const (
	// Magic is "SPHA" read as a little-endian u32.
	Magic uint32 = 0x53504841
	// Version is the only protocol revision this host speaks.
	Version uint32 = 2
)
