package utils

import (
	"crypto/md5"
	"fmt"
)

func HashString(input string) string {
	hash := md5.Sum([]byte(input))
	return fmt.Sprintf("%x", hash)
}

// ChunkID is stable across ingestion runs for the same source and position.
func ChunkID(source string, index int) string {
	return fmt.Sprintf("%s_chunk_%d", HashString(source), index)
}
