package redemption

import (
	"bufio"
	"crypto/rand"
	"fmt"
	"io"
)

// Unambiguous alphabet: no 0/O, 1/I/L
const couponAlphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"

const couponLength = 10

// Bytes at or above this are rejected so every symbol is equally likely.
const couponByteLimit = 256 - 256%len(couponAlphabet)

func generateCouponCode() (string, error) {
	return couponFrom(bufio.NewReaderSize(rand.Reader, 2*couponLength))
}

func couponFrom(r io.ByteReader) (string, error) {
	code := make([]byte, 0, couponLength)
	for len(code) < couponLength {
		c, err := r.ReadByte()
		if err != nil {
			return "", fmt.Errorf("coupon entropy: %w", err)
		}
		if int(c) >= couponByteLimit {
			continue
		}
		code = append(code, couponAlphabet[int(c)%len(couponAlphabet)])
	}
	return string(code), nil
}
