package row

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSizeIsBitExact(t *testing.T) {
	require.Equal(t, 293, Size)
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	r := Row{ID: 7, Username: "cstack", Email: "foo@bar.com"}
	buf := Encode(r)
	require.Len(t, buf, Size)

	got := Decode(buf[:])
	assert.Equal(t, r, got)
}

func TestEncodeMaxLengthStrings(t *testing.T) {
	username := make([]byte, UsernameMaxLen)
	email := make([]byte, EmailMaxLen)
	for i := range username {
		username[i] = 'a'
	}
	for i := range email {
		email[i] = 'a'
	}

	r := Row{ID: 1, Username: string(username), Email: string(email)}
	buf := Encode(r)
	got := Decode(buf[:])
	assert.Equal(t, r, got)
}

func TestValidateNegativeIDWinsOverLength(t *testing.T) {
	longUsername := make([]byte, UsernameMaxLen+1)
	longEmail := make([]byte, EmailMaxLen+1)
	err := Validate(-1, string(longUsername), string(longEmail))
	assert.ErrorIs(t, err, ErrIDNegative)
}

func TestValidateStringTooLong(t *testing.T) {
	longUsername := make([]byte, UsernameMaxLen+1)
	err := Validate(1, string(longUsername), "foo@bar.com")
	assert.ErrorIs(t, err, ErrStringTooLong)
}

func TestValidateOK(t *testing.T) {
	err := Validate(1, "user1", "person1@example.com")
	assert.NoError(t, err)
}
