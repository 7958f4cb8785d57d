package litdb

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
)

const (
	UsernameMaxLength = 32
	EmailMaxLength    = 255

	idSize       = 4
	usernameSize = UsernameMaxLength + 1 // null terminated
	emailSize    = EmailMaxLength + 1    // null terminated

	idOffset       = 0
	usernameOffset = idOffset + idSize
	emailOffset    = usernameOffset + usernameSize

	RowSize = idSize + usernameSize + emailSize
)

var (
	ErrStringTooLong = errors.New("string is too long")
	ErrInvalidString = errors.New("string contains a null byte")
)

// Row is a fixed width record, ID is also the key of the row in the B-tree.
type Row struct {
	ID       uint32
	Username string
	Email    string
}

func (r Row) Validate() error {
	if len(r.Username) > UsernameMaxLength {
		return fmt.Errorf("%w: username has %d bytes, max is %d", ErrStringTooLong, len(r.Username), UsernameMaxLength)
	}
	if len(r.Email) > EmailMaxLength {
		return fmt.Errorf("%w: email has %d bytes, max is %d", ErrStringTooLong, len(r.Email), EmailMaxLength)
	}
	if strings.IndexByte(r.Username, 0) >= 0 {
		return fmt.Errorf("%w: username", ErrInvalidString)
	}
	if strings.IndexByte(r.Email, 0) >= 0 {
		return fmt.Errorf("%w: email", ErrInvalidString)
	}
	return nil
}

func (r Row) Size() uint64 {
	return RowSize
}

// Marshal serializes the row into a fixed size buffer, strings are padded with null bytes.
func (r Row) Marshal() ([]byte, error) {
	buf := make([]byte, RowSize)
	if err := r.MarshalTo(buf); err != nil {
		return nil, err
	}
	return buf, nil
}

func (r Row) MarshalTo(buf []byte) error {
	if err := r.Validate(); err != nil {
		return err
	}
	if len(buf) < RowSize {
		return fmt.Errorf("buffer of %d bytes is too small for a row", len(buf))
	}

	clear(buf[:RowSize])
	marshalUint32(buf, r.ID, idOffset)
	copy(buf[usernameOffset:usernameOffset+UsernameMaxLength], r.Username)
	copy(buf[emailOffset:emailOffset+EmailMaxLength], r.Email)

	return nil
}

func UnmarshalRow(buf []byte, aRow *Row) error {
	if len(buf) < RowSize {
		return fmt.Errorf("buffer of %d bytes is too small for a row", len(buf))
	}

	aRow.ID = unmarshalUint32(buf, idOffset)
	aRow.Username = unmarshalString(buf[usernameOffset : usernameOffset+usernameSize])
	aRow.Email = unmarshalString(buf[emailOffset : emailOffset+emailSize])

	return nil
}

func unmarshalString(buf []byte) string {
	if idx := bytes.IndexByte(buf, 0); idx >= 0 {
		buf = buf[:idx]
	}
	return string(buf)
}

func (r Row) String() string {
	return fmt.Sprintf("(%d, %s, %s)", r.ID, r.Username, r.Email)
}
