package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"

	"golang.org/x/crypto/pbkdf2"

	"github.com/gieseladev/aiowamp/wamp"
)

// CRAuth implements WAMP-CRA (method name "wampcra"), grounded on
// original_source/aiowamp/client/auth.py's CRAuth.
type CRAuth struct {
	Secret string
}

func (CRAuth) MethodName() string   { return "wampcra" }
func (CRAuth) RequiresAuthID() bool { return true }
func (CRAuth) AuthExtra() wamp.Dict { return nil }

// Authenticate signs the challenge string with Secret, deriving a salted
// key via PBKDF2-HMAC-SHA256 first if the challenge extra supplies
// salt/keylen/iterations.
func (c CRAuth) Authenticate(challenge wamp.Challenge) (wamp.Authenticate, error) {
	challengeStr, ok := challenge.Extra["challenge"].(string)
	if !ok {
		return wamp.Authenticate{}, fmt.Errorf("auth: wampcra challenge missing 'challenge' string")
	}

	secret := []byte(c.Secret)
	if salt, ok := challenge.Extra["salt"].(string); ok {
		keyLen, _ := asInt(challenge.Extra["keylen"])
		iterations, _ := asInt(challenge.Extra["iterations"])
		if keyLen <= 0 {
			keyLen = 32
		}
		if iterations <= 0 {
			iterations = 1000
		}
		secret = pbkdf2.Key([]byte(c.Secret), []byte(salt), iterations, keyLen, sha256.New)
	}

	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(challengeStr))
	signature := base64.StdEncoding.EncodeToString(mac.Sum(nil))

	return wamp.Authenticate{Signature: signature, Extra: wamp.Dict{}}, nil
}

// CheckWelcome is a no-op: WAMP-CRA has no server-side proof to verify in
// WELCOME.
func (CRAuth) CheckWelcome(wamp.Welcome) error { return nil }

func asInt(v interface{}) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	case uint64:
		return int(n), true
	default:
		return 0, false
	}
}
