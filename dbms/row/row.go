// Package row encodes and decodes the fixed-schema row storedb stores:
// (id uint32, username text<=32, email text<=255), serialized to exactly
// Size bytes.
package row

import (
	"bytes"
	"encoding/binary"

	"github.com/pkg/errors"
)

const (
	UsernameMaxLen = 32
	EmailMaxLen    = 255

	idSize       = 4
	usernameSize = UsernameMaxLen + 1 // +1 for the terminating zero
	emailSize    = EmailMaxLen + 1

	// Size is the exact serialized byte width of a row.
	Size = idSize + usernameSize + emailSize

	idOffset       = 0
	usernameOffset = idOffset + idSize
	emailOffset    = usernameOffset + usernameSize
)

// ErrIDNegative and ErrStringTooLong carry the exact user-visible
// diagnostics; the executor checks id negativity before string length,
// so a caller validating both must check in that order.
var (
	ErrIDNegative    = errors.New("ID must be positive.")
	ErrStringTooLong = errors.New("String is too long.")
)

// Row is the in-memory form of one stored tuple.
type Row struct {
	ID       uint32
	Username string
	Email    string
}

// Validate checks id, username, and email against the schema's limits,
// returning ErrIDNegative before ErrStringTooLong when both conditions
// hold — id is parsed as a signed value by the caller so a negative
// literal can be detected prior to calling Validate.
func Validate(id int64, username, email string) error {
	if id < 0 {
		return ErrIDNegative
	}
	if len(username) > UsernameMaxLen || len(email) > EmailMaxLen {
		return ErrStringTooLong
	}
	return nil
}

// Encode serializes r into a fixed Size-byte slice.
func Encode(r Row) [Size]byte {
	var buf [Size]byte
	binary.LittleEndian.PutUint32(buf[idOffset:], r.ID)
	copy(buf[usernameOffset:usernameOffset+usernameSize-1], r.Username)
	copy(buf[emailOffset:emailOffset+emailSize-1], r.Email)
	return buf
}

// Decode deserializes a row from a Size-byte slice previously produced by
// Encode. Text fields stop at the first zero byte.
func Decode(buf []byte) Row {
	id := binary.LittleEndian.Uint32(buf[idOffset:])
	username := cString(buf[usernameOffset : usernameOffset+usernameSize])
	email := cString(buf[emailOffset : emailOffset+emailSize])
	return Row{ID: id, Username: username, Email: email}
}

func cString(field []byte) string {
	if i := bytes.IndexByte(field, 0); i >= 0 {
		return string(field[:i])
	}
	return string(field)
}
