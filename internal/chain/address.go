package chain

import (
	"strings"

	"golang.org/x/crypto/sha3"
)

// IsValidAddress reports whether address is a well-formed Base/Ethereum
// address. Mixed-case addresses must carry a valid EIP-55 checksum;
// all-lowercase and all-uppercase addresses carry none and are accepted on
// shape alone.
func IsValidAddress(address string) bool {
	a := strings.TrimSpace(address)
	if !strings.HasPrefix(a, "0x") || len(a) != 42 {
		return false
	}

	hexPart := a[2:]
	for _, c := range hexPart {
		if !isHexDigit(c) {
			return false
		}
	}

	lower := strings.ToLower(hexPart)
	if hexPart == lower || hexPart == strings.ToUpper(hexPart) {
		return true
	}
	return ChecksumAddress(a) == a
}

// ChecksumAddress returns the EIP-55 checksummed form of address.
func ChecksumAddress(address string) string {
	hexPart := strings.ToLower(strings.TrimPrefix(strings.TrimSpace(address), "0x"))

	hasher := sha3.NewLegacyKeccak256()
	hasher.Write([]byte(hexPart))
	hash := hasher.Sum(nil)

	out := make([]byte, len(hexPart))
	for i := 0; i < len(hexPart); i++ {
		c := hexPart[i]
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

func isHexDigit(c rune) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}
