package checksum

import (
	"hash/crc32"
	"testing"

	"github.com/stretchr/testify/assert"
)

// bitwise reference, one bit at a time
func referenceCRC(crc uint32, p []byte) uint32 {
	for _, b := range p {
		crc ^= uint32(b)
		for i := 0; i < 8; i++ {
			if crc&1 != 0 {
				crc = (crc >> 1) ^ 0xedb88320
			} else {
				crc >>= 1
			}
		}
	}
	return crc
}

func TestUpdateMatchesReference(t *testing.T) {
	data := []byte("littlefs commit bytes")
	assert.Equal(t, referenceCRC(Seed, data), Sum(data))
	assert.Equal(t, ^crc32.ChecksumIEEE(data), Sum(data))
}

func TestUpdateIncremental(t *testing.T) {
	data := make([]byte, 1000)
	for i := range data {
		data[i] = byte(i * 7)
	}
	crc := Seed
	for i := 0; i < len(data); i += 33 {
		end := min(i+33, len(data))
		crc = Update(crc, data[i:end])
	}
	assert.Equal(t, Sum(data), crc)
}

func TestEmpty(t *testing.T) {
	assert.Equal(t, Seed, Sum(nil))
}
