package utils

import (
	"crypto/rand"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
	"go.mongodb.org/mongo-driver/x/bsonx/bsoncore"
)

// SixIDHookFunc defines the signature for the NewSixID test hook.
// It returns a SixID and a boolean indicating whether to override the default generation.
type SixIDHookFunc func() (id SixID, override bool)

// NewSixIDHook is a package-level variable that tests can set to override NewSixID behavior.
var NewSixIDHook SixIDHookFunc

// sixIDSubtype is the BSON binary subtype SixIDs are stored with.
const sixIDSubtype byte = 0x80

// ErrInvalidSixID is returned when a string or stored value is not a valid SixID.
var ErrInvalidSixID = errors.New("invalid SixID")

// SixID is a random 6-byte identifier. Its text form is 10 characters of
// Crockford Base32. In MongoDB it is BinData subtype 0x80, in SQL its text form.
type SixID [6]byte

// NewSixID creates a new 6-byte SixID using random data
func NewSixID() SixID {
	if NewSixIDHook != nil {
		if id, override := NewSixIDHook(); override {
			return id
		}
	}

	var id SixID
	if _, err := rand.Read(id[:]); err != nil {
		panic(fmt.Sprintf("sixid: crypto/rand failed: %v", err))
	}
	return id
}

// IsZero reports whether the id is unset.
func (u SixID) IsZero() bool {
	return u == SixID{}
}

// Ptr returns a pointer to a copy of u.
func (u SixID) Ptr() *SixID {
	return &u
}

// Crockford Base32 encoding alphabet (uppercase)
const crockfordAlphabet = "0123456789ABCDEFGHJKMNPQRSTVWXYZ"

// 0xFF marks characters outside the alphabet
var crockfordDecodeMap [256]byte

func init() {
	for i := range crockfordDecodeMap {
		crockfordDecodeMap[i] = 0xFF
	}
	for i := 0; i < len(crockfordAlphabet); i++ {
		c := crockfordAlphabet[i]
		crockfordDecodeMap[c] = byte(i)
		crockfordDecodeMap[strings.ToLower(string(c))[0]] = byte(i)
	}

	// Commonly confused characters
	crockfordDecodeMap['O'] = 0
	crockfordDecodeMap['o'] = 0
	crockfordDecodeMap['I'] = 1
	crockfordDecodeMap['i'] = 1
	crockfordDecodeMap['L'] = 1
	crockfordDecodeMap['l'] = 1
}

// String returns the Crockford Base32 (uppercase) representation of the SixID.
func (u SixID) String() string {
	// 48 bits, ceil(48/5) = 10 characters
	result := make([]byte, 0, 10)
	var bits, offset uint

	for i := 0; i < len(u); i++ {
		bits |= uint(u[i]) << offset
		offset += 8
		for offset >= 5 {
			result = append(result, crockfordAlphabet[bits&0x1F])
			bits >>= 5
			offset -= 5
		}
	}
	if offset > 0 {
		result = append(result, crockfordAlphabet[bits&0x1F])
	}
	return string(result)
}

// ParseSixID parses the Crockford Base32 form of a SixID.
// Hyphens and spaces are ignored.
func ParseSixID(s string) (SixID, error) {
	s = strings.ReplaceAll(s, "-", "")
	s = strings.ReplaceAll(s, " ", "")
	if len(s) != 10 {
		return SixID{}, fmt.Errorf("%w: length must be 10", ErrInvalidSixID)
	}

	var id SixID
	var bits uint64
	var offset uint
	n := 0

	for i := 0; i < len(s); i++ {
		val := crockfordDecodeMap[s[i]]
		if val == 0xFF {
			return SixID{}, fmt.Errorf("%w: bad character %q", ErrInvalidSixID, s[i])
		}
		bits |= uint64(val) << offset
		offset += 5
		for offset >= 8 && n < len(id) {
			id[n] = byte(bits & 0xFF)
			n++
			bits >>= 8
			offset -= 8
		}
	}
	// The two leftover bits of the last character must be clear.
	if n != len(id) || bits != 0 {
		return SixID{}, fmt.Errorf("%w: non-canonical encoding", ErrInvalidSixID)
	}
	return id, nil
}

// MustParseSixID is ParseSixID that panics on error. For tests and constants.
func MustParseSixID(s string) SixID {
	id, err := ParseSixID(s)
	if err != nil {
		panic(err)
	}
	return id
}

// MarshalJSON marshals the SixID as a JSON string in Crockford Base32 format.
func (u SixID) MarshalJSON() ([]byte, error) {
	return json.Marshal(u.String())
}

// UnmarshalJSON unmarshals a SixID from a JSON string in Crockford Base32 format.
func (u *SixID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseSixID(s)
	if err != nil {
		return err
	}
	*u = parsed
	return nil
}

// MarshalBSONValue stores the SixID as BinData with subtype 0x80.
func (u SixID) MarshalBSONValue() (bsontype.Type, []byte, error) {
	return bson.TypeBinary, bsoncore.AppendBinary(nil, sixIDSubtype, u[:]), nil
}

// UnmarshalBSONValue reads a SixID written by MarshalBSONValue. Null decodes to the
// zero id, so optional *SixID fields must be tagged omitempty to stay nil.
func (u *SixID) UnmarshalBSONValue(t bsontype.Type, data []byte) error {
	if t == bson.TypeNull {
		*u = SixID{}
		return nil
	}
	if t != bson.TypeBinary {
		return fmt.Errorf("%w: unexpected BSON type %s", ErrInvalidSixID, t)
	}
	subtype, bin, _, ok := bsoncore.ReadBinary(data)
	if !ok || subtype != sixIDSubtype || len(bin) != len(u) {
		return fmt.Errorf("%w: expected subtype 0x80 with 6 bytes", ErrInvalidSixID)
	}
	copy(u[:], bin)
	return nil
}

// Value implements driver.Valuer; SQL columns hold the text form.
func (u SixID) Value() (driver.Value, error) {
	return u.String(), nil
}

// Scan implements sql.Scanner.
func (u *SixID) Scan(src interface{}) error {
	switch v := src.(type) {
	case string:
		id, err := ParseSixID(v)
		if err != nil {
			return err
		}
		*u = id
	case []byte:
		id, err := ParseSixID(string(v))
		if err != nil {
			return err
		}
		*u = id
	case nil:
		*u = SixID{}
	default:
		return fmt.Errorf("%w: cannot scan %T", ErrInvalidSixID, src)
	}
	return nil
}
