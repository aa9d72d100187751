// Package checksum implements the CRC-32 used by commit and erase checks.
//
// The polynomial is the reflected IEEE one (0xedb88320). The running value is
// seeded with 0xffffffff and is stored on disk without the final inversion, so
// it cannot be compared directly against crc32.ChecksumIEEE.
package checksum

import "hash/crc32"

// Seed is the initial CRC state at the start of every commit
const Seed uint32 = 0xFFFFFFFF

// Update continues crc over p
func Update(crc uint32, p []byte) uint32 {
	return ^crc32.Update(^crc, crc32.IEEETable, p)
}

// Sum returns the CRC of p from a fresh seed
func Sum(p []byte) uint32 {
	return Update(Seed, p)
}
