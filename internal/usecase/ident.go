package usecase

import (
	"crypto/rand"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

// NewOrderID returns a structured order token: "ORD-" + base36 millisecond
// timestamp + "-" + 32 random bits as hex, both upper-cased. The timestamp part
// keeps tokens roughly sortable; the random part makes collisions negligible at
// expected volume.
func NewOrderID() string {
	ts := strings.ToUpper(strconv.FormatInt(time.Now().UnixMilli(), 36))
	var buf [4]byte
	if _, err := io.ReadFull(rand.Reader, buf[:]); err != nil {
		panic(fmt.Sprintf("crypto/rand unavailable: %v", err))
	}
	return fmt.Sprintf("ORD-%s-%08X", ts, binary.BigEndian.Uint32(buf[:]))
}

// NewLinkID returns 32 lowercase hex characters from crypto/rand.
func NewLinkID() string {
	var buf [16]byte
	if _, err := io.ReadFull(rand.Reader, buf[:]); err != nil {
		panic(fmt.Sprintf("crypto/rand unavailable: %v", err))
	}
	return hex.EncodeToString(buf[:])
}
