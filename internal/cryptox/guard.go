// Package cryptox implements the credential guard: authenticated symmetric
// encryption of a password held temporarily while a remote account creation
// is deferred. The key is derived from a fixed application secret, which is a
// known confidentiality limitation; production builds must source the key
// from platform secure storage instead (see the Keeper interface).
package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/modicscan/syncengine/internal/common"
	"golang.org/x/crypto/argon2"
)

const nonceSize = 12

// guardSalt is fixed so the same application secret always derives the same
// key across restarts. The ciphertext lives only until the first successful
// remote account creation.
var guardSalt = []byte("syncengine.credential.guard.v1")

// Keeper produces the symmetric key protecting deferred credentials.
// The default implementation derives it from an application secret;
// a hardware-backed implementation can replace it without touching callers.
type Keeper interface {
	Key() []byte
}

type derivedKeeper struct {
	key []byte
}

func (k *derivedKeeper) Key() []byte { return k.key }

// NewDerivedKeeper derives a 256-bit AES key from the application secret
// using argon2id.
func NewDerivedKeeper(appSecret []byte) Keeper {
	return &derivedKeeper{key: argon2.IDKey(appSecret, guardSalt, 1, 64*1024, 4, 32)}
}

// Guard encrypts and decrypts deferred credentials with AES-256-GCM.
// A fresh random nonce is generated per call and prepended to the ciphertext.
type Guard struct {
	keeper Keeper
}

func NewGuard(keeper Keeper) *Guard {
	return &Guard{keeper: keeper}
}

// Encrypt seals plaintext and returns nonce||ciphertext.
func (g *Guard) Encrypt(plaintext []byte) ([]byte, error) {
	aesgcm, err := g.aead()
	if err != nil {
		return nil, err
	}

	nonce := common.GenerateRandByteArray(nonceSize)
	sealed := aesgcm.Seal(nil, nonce, plaintext, nil)

	out := make([]byte, 0, len(nonce)+len(sealed))
	out = append(out, nonce...)
	out = append(out, sealed...)
	return out, nil
}

// Decrypt opens a blob produced by Encrypt. Truncated or tampered input
// yields an error matching common.ErrCrypto.
func (g *Guard) Decrypt(blob []byte) ([]byte, error) {
	if len(blob) <= nonceSize {
		return nil, fmt.Errorf("%w: ciphertext too short", common.ErrCrypto)
	}

	aesgcm, err := g.aead()
	if err != nil {
		return nil, err
	}

	plaintext, err := aesgcm.Open(nil, blob[:nonceSize], blob[nonceSize:], nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrCrypto, err)
	}
	return plaintext, nil
}

func (g *Guard) aead() (cipher.AEAD, error) {
	block, err := aes.NewCipher(g.keeper.Key())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrCrypto, err)
	}
	aesgcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrCrypto, err)
	}
	return aesgcm, nil
}

// HashPassword returns the hex-encoded sha256 digest of the password, used
// for local-only authentication. A plain digest is deliberately cheap and is
// a known hardening gap; a slow hash (argon2id/bcrypt) should replace it once
// local login latency budgets are agreed.
func HashPassword(password []byte) string {
	sum := sha256.Sum256(password)
	return hex.EncodeToString(sum[:])
}
