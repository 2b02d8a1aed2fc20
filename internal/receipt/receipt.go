package receipt

import (
	"errors"
	"time"

	"github.com/gorilla/securecookie"
)

const name = "parkour_receipt"

// receipts outlive any sensible reservation
const maxAge = 90 * 24 * time.Hour

var ErrInvalid = errors.New("receipt: invalid or tampered reference")

// Receipt is what a booking reference proves.
type Receipt struct {
	BookingID     string    `json:"bid"`
	SlotID        int       `json:"sid"`
	ReservedUntil time.Time `json:"until"`
}

// Codec signs and encrypts receipts into URL-safe reference strings.
type Codec struct {
	sc *securecookie.SecureCookie
}

// New builds a codec from the configured keys. Without a hash key random
// keys are generated, so references only verify for the life of the process.
func New(hashKey, blockKey []byte) *Codec {
	if len(hashKey) == 0 {
		hashKey = securecookie.GenerateRandomKey(32)
		blockKey = securecookie.GenerateRandomKey(32)
	}
	sc := securecookie.New(hashKey, blockKey)
	sc.MaxAge(int(maxAge.Seconds()))
	sc.SetSerializer(securecookie.JSONEncoder{})
	return &Codec{sc: sc}
}

func (c *Codec) Encode(r Receipt) (string, error) {
	return c.sc.Encode(name, r)
}

func (c *Codec) Decode(ref string) (Receipt, error) {
	var r Receipt
	if err := c.sc.Decode(name, ref, &r); err != nil {
		return Receipt{}, ErrInvalid
	}
	return r, nil
}
