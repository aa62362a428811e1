package lightning

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/btcsuite/btcd/btcutil/bech32"

	"telegram-p2p-trading/internal/domain/ports/adapter"
)

const (
	defaultExpiry   = time.Hour
	signatureGroups = 104 // 520 bits: 64-byte signature + recovery id
	timestampGroups = 7

	tagPaymentHash = 1
	tagExpiry      = 6
	tagDescription = 13
)

// Networks by bech32 human readable prefix. Longer prefixes first.
var networkPrefixes = []struct {
	prefix  string
	network string
}{
	{"bcrt", "regtest"},
	{"tbs", "signet"},
	{"bc", "mainnet"},
	{"tb", "testnet"},
}

var _ adapter.InvoiceValidator = (*InvoiceDecoder)(nil)

// InvoiceDecoder validates BOLT11 payment requests offline: checksum, network,
// amount and expiry. The signature is only checked for shape; the node
// verifies it when paying.
type InvoiceDecoder struct {
	network string
	now     func() time.Time
}

func NewInvoiceDecoder(network string) *InvoiceDecoder {
	return &InvoiceDecoder{network: network, now: time.Now}
}

func invalid(reason string) error {
	return &adapter.InvoiceError{Key: "invoice_invalid", Reason: reason}
}

func (d *InvoiceDecoder) Validate(ctx context.Context, request string) (*adapter.Invoice, error) {
	inv, err := Decode(request)
	if err != nil {
		return nil, err
	}
	if d.network != "" && inv.Network != d.network {
		return nil, &adapter.InvoiceError{Key: "invoice_wrong_network", Reason: "network " + inv.Network}
	}
	if !d.now().Before(inv.ExpiresAt) {
		return nil, &adapter.InvoiceError{Key: "invoice_expired", Reason: "expired at " + inv.ExpiresAt.UTC().Format(time.RFC3339)}
	}
	return inv, nil
}

// Decode parses a BOLT11 request. All failures are *adapter.InvoiceError.
func Decode(request string) (*adapter.Invoice, error) {
	req := strings.ToLower(strings.TrimSpace(request))
	req = strings.TrimPrefix(req, "lightning:")
	if !strings.HasPrefix(req, "ln") {
		return nil, invalid("missing ln prefix")
	}

	hrp, data, err := bech32.DecodeNoLimit(req)
	if err != nil {
		return nil, invalid(err.Error())
	}
	if len(data) < timestampGroups+signatureGroups {
		return nil, invalid("data part too short")
	}
	sig, err := bech32.ConvertBits(data[len(data)-signatureGroups:], 5, 8, false)
	if err != nil || len(sig) != 65 || sig[64] > 3 {
		return nil, invalid("malformed signature")
	}

	network, amountPart, err := splitHRP(hrp)
	if err != nil {
		return nil, err
	}
	msat, err := parseAmount(amountPart)
	if err != nil {
		return nil, err
	}

	inv := &adapter.Invoice{Request: req, Network: network, Amount: msat / 1000}
	inv.CreatedAt = time.Unix(int64(groupsToUint(data[:timestampGroups])), 0)

	expiry := defaultExpiry
	fields := data[timestampGroups : len(data)-signatureGroups]
	for len(fields) > 0 {
		if len(fields) < 3 {
			return nil, invalid("truncated tagged field")
		}
		typ := fields[0]
		n := int(groupsToUint(fields[1:3]))
		if len(fields) < 3+n {
			return nil, invalid("tagged field overflows data")
		}
		body := fields[3 : 3+n]
		fields = fields[3+n:]

		switch typ {
		case tagPaymentHash:
			if n != 52 {
				continue
			}
			b, err := bech32.ConvertBits(body, 5, 8, false)
			if err != nil {
				return nil, invalid("payment hash: " + err.Error())
			}
			inv.Hash = hex.EncodeToString(b)
		case tagDescription:
			b, err := bech32.ConvertBits(body, 5, 8, false)
			if err != nil {
				return nil, invalid("description: " + err.Error())
			}
			inv.Description = string(b)
		case tagExpiry:
			expiry = time.Duration(groupsToUint(body)) * time.Second
		}
	}
	if inv.Hash == "" {
		return nil, invalid("missing payment hash")
	}
	inv.ExpiresAt = inv.CreatedAt.Add(expiry)
	return inv, nil
}

func splitHRP(hrp string) (network, amount string, err error) {
	rest := strings.TrimPrefix(hrp, "ln")
	for _, p := range networkPrefixes {
		if strings.HasPrefix(rest, p.prefix) {
			return p.network, rest[len(p.prefix):], nil
		}
	}
	return "", "", invalid("unknown network prefix " + hrp)
}

// parseAmount returns millisatoshis. An empty amount means "any amount".
func parseAmount(s string) (int64, error) {
	if s == "" {
		return 0, nil
	}
	mult := int64(100_000_000_000) // msat per BTC
	div := int64(1)
	switch s[len(s)-1] {
	case 'm':
		mult = 100_000_000
	case 'u':
		mult = 100_000
	case 'n':
		mult = 100
	case 'p':
		mult, div = 1, 10
	}
	if mult != 100_000_000_000 || div != 1 {
		s = s[:len(s)-1]
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n <= 0 {
		return 0, invalid(fmt.Sprintf("bad amount %q", s))
	}
	if n%div != 0 {
		return 0, invalid("sub-millisatoshi amount")
	}
	if n > (1<<62)/mult {
		return 0, invalid("amount overflows")
	}
	return n / div * mult, nil
}

func groupsToUint(groups []byte) uint64 {
	var v uint64
	for _, g := range groups {
		v = v<<5 | uint64(g)
	}
	return v
}

// IsInvoiceError reports whether err is a user-correctable decoding problem.
func IsInvoiceError(err error) bool {
	var ie *adapter.InvoiceError
	return errors.As(err, &ie)
}
