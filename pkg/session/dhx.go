package session

import (
	"crypto/cipher"
	"crypto/rand"
	"math/big"

	"golang.org/x/crypto/cast5"

	"github.com/marmos91/afpfs/pkg/afperrors"
)

// DHX ("DHCAST128") fixes its prime, base, and CBC initialization vectors;
// none of these are negotiated.
var (
	dhxPrime = new(big.Int).SetBytes([]byte{
		0xBA, 0x28, 0x73, 0xDF, 0xB0, 0x60, 0x57, 0xD4,
		0x3F, 0x20, 0x24, 0x74, 0x4C, 0xEE, 0xE7, 0x5B,
	})
	dhxBase = big.NewInt(7)

	// clientToServerIV ("LWallace") encrypts the LOGIN_CONT answer.
	clientToServerIV = []byte("LWallace")
	// serverToClientIV ("CJalbert") decrypts the LOGIN reply's nonce.
	serverToClientIV = []byte("CJalbert")
)

const (
	dhxKeyLen   = 16 // Ma/Mb/session key width, matching the 128-bit prime
	maxPassword = 64 // DHX password field width in the LOGIN_CONT answer
)

// dhxClient holds one login attempt's Diffie-Hellman exponent and the
// session key derived once the server's public value arrives.
type dhxClient struct {
	private *big.Int
	public  [dhxKeyLen]byte
}

// newDHXClient picks a fresh 256-bit private exponent and computes Ma =
// g^ra mod p, left-padded to dhxKeyLen bytes.
func newDHXClient() (*dhxClient, error) {
	var ra *big.Int
	for {
		buf := make([]byte, 32)
		if _, err := rand.Read(buf); err != nil {
			return nil, afperrors.Wrap(afperrors.Failed, "generate dhx private value", err)
		}
		buf[0] &= 0x7F // clear bit 255, matching gcry_mpi_clear_highbit(ra, 255)
		ra = new(big.Int).SetBytes(buf)
		if ra.Sign() != 0 {
			break
		}
	}

	ma := new(big.Int).Exp(dhxBase, ra, dhxPrime)

	c := &dhxClient{private: ra}
	ma.FillBytes(c.public[:])
	return c, nil
}

// sharedKey computes key = Mb^ra mod p from the server's public value,
// left-padded to dhxKeyLen bytes for use as the CAST5 key.
func (c *dhxClient) sharedKey(mb []byte) ([dhxKeyLen]byte, error) {
	var key [dhxKeyLen]byte
	if len(mb) != dhxKeyLen {
		return key, afperrors.New(afperrors.Malformed, "dhx: server public value has wrong length")
	}
	k := new(big.Int).Exp(new(big.Int).SetBytes(mb), c.private, dhxPrime)
	k.FillBytes(key[:])
	return key, nil
}

// decryptNonce decrypts the 32-byte nonce block from a LOGIN AUTH_CONTINUE
// reply with the server-to-client IV, returning the first 16 bytes (the
// nonce the client must echo back incremented by one).
func decryptNonce(key [dhxKeyLen]byte, ciphertext []byte) ([dhxKeyLen]byte, error) {
	var nonce [dhxKeyLen]byte
	if len(ciphertext) != 32 {
		return nonce, afperrors.New(afperrors.Malformed, "dhx: nonce block has wrong length")
	}

	block, err := cast5.NewCipher(key[:])
	if err != nil {
		return nonce, afperrors.Wrap(afperrors.Failed, "construct cast5 cipher", err)
	}

	plain := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, serverToClientIV).CryptBlocks(plain, ciphertext)
	copy(nonce[:], plain[:dhxKeyLen])
	return nonce, nil
}

// incrementNonce returns nonce+1 as a dhxKeyLen-byte big-endian value.
func incrementNonce(nonce [dhxKeyLen]byte) [dhxKeyLen]byte {
	n := new(big.Int).SetBytes(nonce[:])
	n.Add(n, big.NewInt(1))
	var out [dhxKeyLen]byte
	n.FillBytes(out[:])
	return out
}

// buildLoginContAnswer assembles the 80-byte LOGIN_CONT plaintext: the
// incremented nonce, followed by the password zero-padded to 64 bytes, and
// encrypts it with the client-to-server IV.
func buildLoginContAnswer(key [dhxKeyLen]byte, nonce [dhxKeyLen]byte, password string) ([]byte, error) {
	if len(password) > maxPassword {
		return nil, afperrors.New(afperrors.PermissionDenied, "password exceeds DHX's 64-byte limit")
	}

	plain := make([]byte, dhxKeyLen+maxPassword)
	copy(plain[:dhxKeyLen], nonce[:])
	copy(plain[dhxKeyLen:], password) // remaining bytes stay zero

	block, err := cast5.NewCipher(key[:])
	if err != nil {
		return nil, afperrors.Wrap(afperrors.Failed, "construct cast5 cipher", err)
	}

	cipherText := make([]byte, len(plain))
	cipher.NewCBCEncrypter(block, clientToServerIV).CryptBlocks(cipherText, plain)
	return cipherText, nil
}
