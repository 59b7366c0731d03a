package num

import (
	"encoding/json"
	"math/big"
	"strconv"

	"github.com/Aman-CERP/searchbridge/internal/errors"
)

// Opstamp identifies one document mutation accepted by a writer. Opstamps
// use the full 64-bit range, so they cross the boundary as decimal strings
// or big integers, never as float64.
type Opstamp uint64

// BigInt returns the stamp as an arbitrary precision integer.
func (o Opstamp) BigInt() *big.Int {
	return new(big.Int).SetUint64(uint64(o))
}

func (o Opstamp) String() string {
	return strconv.FormatUint(uint64(o), 10)
}

// MarshalJSON encodes the stamp as a decimal string.
func (o Opstamp) MarshalJSON() ([]byte, error) {
	return json.Marshal(o.String())
}

// UnmarshalJSON accepts a decimal string or an integral JSON number.
func (o *Opstamp) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return errors.InvalidArgument("opstamp must be a string or number: %s", data)
		}
		s = n.String()
	}
	v, err := ParseOpstamp(s)
	if err != nil {
		return err
	}
	*o = v
	return nil
}

// ParseOpstamp parses a base-10 opstamp.
func ParseOpstamp(s string) (Opstamp, error) {
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, errors.InvalidArgument("%q is not a valid opstamp", s)
	}
	return Opstamp(v), nil
}

// OpstampFromBigInt converts b, failing when it does not fit in 64 bits.
func OpstampFromBigInt(b *big.Int) (Opstamp, error) {
	if b == nil || b.Sign() < 0 || !b.IsUint64() {
		return 0, errors.InvalidArgument("%v is out of range for u64", b)
	}
	return Opstamp(b.Uint64()), nil
}
