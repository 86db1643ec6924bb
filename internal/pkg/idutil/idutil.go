package idutil

import (
	"crypto/rand"
	"encoding/hex"
)

func NewID() string {
	return randomHex(16)
}

func NewKey(size int) string {
	return randomHex(size)
}

func randomHex(size int) string {
	if size <= 0 {
		return ""
	}
	buf := make([]byte, size)
	_, _ = rand.Read(buf)
	return hex.EncodeToString(buf)
}
