package txgraph

import (
	"time"

	"github.com/adesai/topoguard/internal/domain"
)

// Blend between normalized total flow and relative frequency when scoring an
// aggregated edge.
const (
	flowWeight      = 0.7
	frequencyWeight = 0.3
)

// Builder owns the sliding transaction window and constructs weighted
// directed graphs from it. It is not safe for concurrent use; the owning
// detector serializes access.
type Builder struct {
	window       time.Duration
	transactions []domain.Transaction
}

// NewBuilder returns a Builder with the given time window.
func NewBuilder(windowHours int) *Builder {
	return &Builder{window: time.Duration(windowHours) * time.Hour}
}

// Add appends a transaction and evicts every buffered entry older than the
// inserted transaction's timestamp minus the window. The cutoff follows the
// inserted transaction, not the global maximum seen so far, so a late arrival
// with an older timestamp relaxes the cutoff and evicts nothing.
func (b *Builder) Add(tx domain.Transaction) {
	b.transactions = append(b.transactions, tx)
	cutoff := tx.Timestamp.Add(-b.window)
	kept := b.transactions[:0]
	for _, t := range b.transactions {
		if !t.Timestamp.Before(cutoff) {
			kept = append(kept, t)
		}
	}
	b.transactions = kept
}

// Len reports the number of buffered transactions.
func (b *Builder) Len() int { return len(b.transactions) }

// Build constructs the transaction graph from buffered entries within
// [reference - window, reference]. A zero reference time defaults to the
// maximum buffered timestamp. An empty buffer yields an empty graph.
func (b *Builder) Build(reference time.Time) *Graph {
	if len(b.transactions) == 0 {
		return NewGraph(nil)
	}

	if reference.IsZero() {
		for _, tx := range b.transactions {
			if tx.Timestamp.After(reference) {
				reference = tx.Timestamp
			}
		}
	}

	cutoff := reference.Add(-b.window)
	var recent []domain.Transaction
	for _, tx := range b.transactions {
		if !tx.Timestamp.Before(cutoff) && !tx.Timestamp.After(reference) {
			recent = append(recent, tx)
		}
	}
	if len(recent) == 0 {
		return NewGraph(nil)
	}

	accountSet := make(map[string]struct{})
	grouped := make(map[edgeKey][]float64)
	for _, tx := range recent {
		accountSet[tx.FromAccount] = struct{}{}
		accountSet[tx.ToAccount] = struct{}{}
		key := edgeKey{tx.FromAccount, tx.ToAccount}
		grouped[key] = append(grouped[key], tx.Amount)
	}

	accounts := make([]string, 0, len(accountSet))
	for acct := range accountSet {
		accounts = append(accounts, acct)
	}
	g := NewGraph(accounts)

	minAmount, maxAmount := recent[0].Amount, recent[0].Amount
	for _, tx := range recent[1:] {
		if tx.Amount < minAmount {
			minAmount = tx.Amount
		}
		if tx.Amount > maxAmount {
			maxAmount = tx.Amount
		}
	}
	amountRange := maxAmount - minAmount
	if amountRange == 0 {
		amountRange = 1.0
	}

	total := float64(len(recent))
	for key, amounts := range grouped {
		var flow float64
		for _, amt := range amounts {
			flow += amt
		}
		frequency := float64(len(amounts))
		normalizedFlow := (flow - minAmount) / amountRange
		g.setEdge(Edge{
			From:   key.from,
			To:     key.to,
			Weight: flowWeight*normalizedFlow + frequencyWeight*(frequency/total),
			Flow:   flow,
			Count:  len(amounts),
		})
	}
	return g
}
