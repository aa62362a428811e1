package lightning

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"

	"telegram-p2p-trading/internal/domain/ports/adapter"
)

var _ adapter.LightningNode = (*NoopNode)(nil)

// NoopNode is an in-memory node for local runs and tests. Hold invoices are
// fake requests carrying a real preimage/hash pair.
type NoopNode struct {
	mu       sync.Mutex
	seq      int64
	holds    map[string]int64 // hash -> amount
	inFlight map[string]bool
}

func NewNoopNode() *NoopNode {
	return &NoopNode{
		holds:    make(map[string]int64),
		inFlight: make(map[string]bool),
	}
}

func (n *NoopNode) CreateHoldInvoice(ctx context.Context, amount int64, description string) (*adapter.HoldInvoice, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("noop: invalid amount %d", amount)
	}
	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		return nil, err
	}
	sum := sha256.Sum256(secret)
	hash := hex.EncodeToString(sum[:])

	n.mu.Lock()
	defer n.mu.Unlock()
	n.seq++
	n.holds[hash] = amount
	return &adapter.HoldInvoice{
		Request: fmt.Sprintf("lnnoop%d-%s", n.seq, hash[:16]),
		Hash:    hash,
		Secret:  hex.EncodeToString(secret),
	}, nil
}

func (n *NoopNode) IsPaymentInFlight(ctx context.Context, request string) (bool, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.inFlight[request], nil
}

// SetInFlight marks a payment to request as being routed.
func (n *NoopNode) SetInFlight(request string, v bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.inFlight[request] = v
}

// HoldAmount returns the amount of a hold invoice by hash.
func (n *NoopNode) HoldAmount(hash string) (int64, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	v, ok := n.holds[hash]
	return v, ok
}
