package id

import (
	"crypto/rand"

	"github.com/google/uuid"
)

// UUIDGenerator mints internal entity ids.
type UUIDGenerator struct{}

func NewUUIDGenerator() *UUIDGenerator { return &UUIDGenerator{} }

func (UUIDGenerator) NewID() string { return uuid.NewString() }

const (
	codeCharset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	codeLength  = 8
)

// CodeGenerator mints 8-character alphanumeric order codes, the
// externally-facing order identifier printed on invoices.
type CodeGenerator struct{}

func NewCodeGenerator() *CodeGenerator { return &CodeGenerator{} }

func (CodeGenerator) NewCode() string {
	buf := make([]byte, codeLength)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand never fails on supported platforms
		panic(err)
	}
	for i, b := range buf {
		buf[i] = codeCharset[int(b)%len(codeCharset)]
	}
	return string(buf)
}
