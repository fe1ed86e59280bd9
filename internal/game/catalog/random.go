package catalog

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
)

// UniformSource yields uniform draws over [0,1).
type UniformSource interface {
	Float64() float64
}

// CryptoSource draws from crypto/rand so that neither the chosen pair nor the
// AI side can be inferred from generator state.
type CryptoSource struct{}

// Float64 converts 4 random bytes into a float in [0,1).
func (CryptoSource) Float64() float64 {
	var b [4]byte
	if _, err := rand.Read(b[:]); err != nil {
		// crypto/rand only fails if the OS entropy source is broken
		panic(fmt.Sprintf("catalog: crypto/rand failed: %v", err))
	}
	return float64(binary.BigEndian.Uint32(b[:])) / (1 << 32)
}

// pick maps a uniform draw onto an index in [0,n).
func pick(src UniformSource, n int) int {
	i := int(src.Float64() * float64(n))
	if i >= n {
		i = n - 1
	}
	if i < 0 {
		i = 0
	}
	return i
}
