// Package dpop builds and verifies DPoP proofs (RFC 9449). The bridge never
// binds tokens itself; it verifies that a proof smuggled through the FedCM
// nonce parameter is structurally sound before forwarding it to the engine's
// token endpoint, and the demo relying party uses the builder side.
package dpop

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"fmt"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/lestrrat-go/jwx/v2/jws"
	"github.com/lestrrat-go/jwx/v2/jwt"
	"github.com/segmentio/ksuid"
)

// HeaderName is the HTTP header a proof travels in once unsmuggled.
const HeaderName = "DPoP"

const jwtType = "dpop+jwt"

// Proof is a verified DPoP proof.
type Proof struct {
	JWTID      string
	Method     string
	URI        string
	IssuedAt   time.Time
	Key        jwk.Key
	Thumbprint []byte
}

// GenerateKey creates a fresh ES256 signing key for proof building.
func GenerateKey() (jwk.Key, error) {
	raw, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generate P-256 key: %w", err)
	}
	key, err := jwk.FromRaw(raw)
	if err != nil {
		return nil, fmt.Errorf("wrap key: %w", err)
	}
	return key, nil
}

// New builds and signs a proof for one HTTP request. The public half of the
// key is embedded in the protected header, as receivers verify against it.
func New(method, uri string, key jwk.Key) ([]byte, error) {
	if method == "" || uri == "" {
		return nil, fmt.Errorf("proof requires both method and URI")
	}

	token := jwt.New()
	_ = token.Set("jti", ksuid.New().String())
	_ = token.Set("htm", method)
	_ = token.Set("htu", uri)
	_ = token.Set("iat", time.Now().Unix())

	publicKey, err := key.PublicKey()
	if err != nil {
		return nil, fmt.Errorf("derive public key: %w", err)
	}

	headers := jws.NewHeaders()
	_ = headers.Set("typ", jwtType)
	_ = headers.Set("jwk", publicKey)

	signed, err := jwt.Sign(token, jwt.WithKey(jwa.ES256, key, jws.WithProtectedHeaders(headers)))
	if err != nil {
		return nil, fmt.Errorf("sign proof: %w", err)
	}
	return signed, nil
}

// Parse verifies a proof against its embedded key and returns the claims.
// The caller still decides whether htm/htu match the request being proved.
func Parse(raw []byte) (*Proof, error) {
	message, err := jws.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parse proof: %w", err)
	}
	if len(message.Signatures()) == 0 {
		return nil, fmt.Errorf("proof carries no signature")
	}

	headers := message.Signatures()[0].ProtectedHeaders()
	if headers == nil {
		return nil, fmt.Errorf("proof carries no protected headers")
	}
	if headers.Type() != jwtType {
		return nil, fmt.Errorf("unexpected token type %q", headers.Type())
	}
	key := headers.JWK()
	if key == nil {
		return nil, fmt.Errorf("proof embeds no key")
	}

	verified, err := jwt.Parse(raw, jwt.WithKey(jwa.ES256, key))
	if err != nil {
		return nil, fmt.Errorf("verify proof: %w", err)
	}

	proof := &Proof{Key: key}
	if proof.JWTID, err = stringClaim(verified, "jti"); err != nil {
		return nil, err
	}
	if proof.Method, err = stringClaim(verified, "htm"); err != nil {
		return nil, err
	}
	if proof.URI, err = stringClaim(verified, "htu"); err != nil {
		return nil, err
	}
	proof.IssuedAt = verified.IssuedAt()
	if proof.IssuedAt.IsZero() {
		return nil, fmt.Errorf("claim iat is required")
	}

	proof.Thumbprint, err = key.Thumbprint(crypto.SHA256)
	if err != nil {
		return nil, fmt.Errorf("key thumbprint: %w", err)
	}
	return proof, nil
}

func stringClaim(token jwt.Token, name string) (string, error) {
	claim, ok := token.Get(name)
	if !ok {
		return "", fmt.Errorf("claim %s is required", name)
	}
	value, ok := claim.(string)
	if !ok {
		return "", fmt.Errorf("claim %s is not a string", name)
	}
	return value, nil
}
