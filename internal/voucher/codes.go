package voucher

import (
	"crypto/rand"
	"fmt"
	"io"
	"strings"
	"time"
)

// unambiguousAlphabet omits 0, O, 1, I and L.
const unambiguousAlphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"

const (
	DefaultAdminCodePrefix  = "SLX"
	DefaultOnlineCodePrefix = "GV"
	adminCodeDigits         = 4
	onlineCodeLength        = 10
	orderNumberPrefix       = "VO"
	orderNumberSuffixLength = 6
)

// IdentifierGenerator produces candidate codes and order numbers. Uniqueness is
// enforced by the caller against the store.
type IdentifierGenerator interface {
	GenerateCode(kind CodeKind) (string, error)
	GenerateOrderNumber(now time.Time) (string, error)
}

// Generator is the crypto/rand backed IdentifierGenerator.
type Generator struct {
	AdminPrefix  string
	OnlinePrefix string
	// Rand defaults to crypto/rand.Reader.
	Rand io.Reader
}

// NewGenerator returns a generator using the given prefixes, falling back to defaults when blank.
func NewGenerator(adminPrefix, onlinePrefix string) *Generator {
	g := &Generator{AdminPrefix: strings.TrimSpace(adminPrefix), OnlinePrefix: strings.TrimSpace(onlinePrefix)}
	if g.AdminPrefix == "" {
		g.AdminPrefix = DefaultAdminCodePrefix
	}
	if g.OnlinePrefix == "" {
		g.OnlinePrefix = DefaultOnlineCodePrefix
	}
	return g
}

// GenerateCode returns SLX1234 style codes for admin sales and GV-XXXXXXXXXX for online orders.
func (g *Generator) GenerateCode(kind CodeKind) (string, error) {
	switch kind {
	case CodeAdminSale:
		digits, err := g.pick("0123456789", adminCodeDigits)
		if err != nil {
			return "", err
		}
		return g.AdminPrefix + digits, nil
	case CodeOnlineOrder:
		suffix, err := g.pick(unambiguousAlphabet, onlineCodeLength)
		if err != nil {
			return "", err
		}
		return g.OnlinePrefix + "-" + suffix, nil
	default:
		return "", fmt.Errorf("voucher: unknown code kind %d", kind)
	}
}

// GenerateOrderNumber returns VO-YYYYMMDD-XXXXXX using the UTC date of now.
func (g *Generator) GenerateOrderNumber(now time.Time) (string, error) {
	suffix, err := g.pick(unambiguousAlphabet, orderNumberSuffixLength)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s-%s-%s", orderNumberPrefix, now.UTC().Format("20060102"), suffix), nil
}

func (g *Generator) pick(alphabet string, n int) (string, error) {
	src := g.Rand
	if src == nil {
		src = rand.Reader
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(src, buf); err != nil {
		return "", fmt.Errorf("voucher: read random: %w", err)
	}
	out := make([]byte, n)
	for i, b := range buf {
		out[i] = alphabet[int(b)%len(alphabet)]
	}
	return string(out), nil
}
