package prex

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"golang.org/x/crypto/sha3"
)

// Signer authorizes token movement on behalf of the custodial wallet. The
// surface is deliberately narrow: an address and a digest signature, nothing
// resembling a general RPC dispatch.
type Signer interface {
	Address() string
	SignDigest(digest []byte) ([]byte, error)
}

type LocalSigner struct {
	key     *btcec.PrivateKey
	address string
}

func NewLocalSigner(hexKey string) (*LocalSigner, error) {
	raw, err := hex.DecodeString(strings.TrimPrefix(hexKey, "0x"))
	if err != nil {
		return nil, fmt.Errorf("decode private key: %w", err)
	}
	if len(raw) != 32 {
		return nil, errors.New("private key must be 32 bytes")
	}

	key, _ := btcec.PrivKeyFromBytes(raw)
	pub := key.PubKey().SerializeUncompressed()
	hash := keccak256(pub[1:])
	return &LocalSigner{
		key:     key,
		address: ChecksumAddress(hash[12:]),
	}, nil
}

func (s *LocalSigner) Address() string {
	return s.address
}

// SignDigest wraps the 32-byte digest in the EIP-191 personal-message
// envelope and returns the 65-byte recoverable signature as r||s||v with
// v in {27, 28}.
func (s *LocalSigner) SignDigest(digest []byte) ([]byte, error) {
	if len(digest) != 32 {
		return nil, errors.New("digest must be 32 bytes")
	}
	msg := keccak256([]byte("\x19Ethereum Signed Message:\n32"), digest)

	// SignCompact puts the header byte (27 + recovery id) first.
	compact := ecdsa.SignCompact(s.key, msg, false)
	sig := make([]byte, 65)
	copy(sig, compact[1:])
	sig[64] = compact[0]
	return sig, nil
}

func keccak256(chunks ...[]byte) []byte {
	h := sha3.NewLegacyKeccak256()
	for _, c := range chunks {
		h.Write(c)
	}
	return h.Sum(nil)
}

// ChecksumAddress renders a 20-byte address with EIP-55 mixed-case encoding.
func ChecksumAddress(addr []byte) string {
	lower := hex.EncodeToString(addr)
	hash := keccak256([]byte(lower))

	out := make([]byte, len(lower))
	for i := 0; i < len(lower); i++ {
		c := lower[i]
		if c >= 'a' && c <= 'f' {
			nibble := hash[i/2]
			if i%2 == 0 {
				nibble >>= 4
			}
			if nibble&0x0f >= 8 {
				c = c - 'a' + 'A'
			}
		}
		out[i] = c
	}
	return "0x" + string(out)
}

// IsHexAddress reports whether s looks like a 20-byte hex address.
func IsHexAddress(s string) bool {
	if !strings.HasPrefix(s, "0x") && !strings.HasPrefix(s, "0X") {
		return false
	}
	body := s[2:]
	if len(body) != 40 {
		return false
	}
	for i := 0; i < len(body); i++ {
		c := body[i]
		switch {
		case c >= '0' && c <= '9':
		case c >= 'a' && c <= 'f':
		case c >= 'A' && c <= 'F':
		default:
			return false
		}
	}
	return true
}
