package generator

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/adesai/topoguard/internal/domain"
)

// Amount bands for normal and fraudulent transfers.
const (
	normalAmountMin = 10
	normalAmountMax = 1000
	fraudAmountMin  = 5000
	fraudAmountMax  = 50000
)

// Record is the JSON representation of a generated transaction, matching the
// detection API's ingestion payload.
type Record struct {
	TransactionID string         `json:"transaction_id"`
	FromAccount   string         `json:"from_account"`
	ToAccount     string         `json:"to_account"`
	Amount        float64        `json:"amount"`
	Timestamp     string         `json:"timestamp"`
	Metadata      map[string]any `json:"metadata,omitempty"`
}

// ToTransaction converts the record into its domain form.
func (r Record) ToTransaction() (domain.Transaction, error) {
	ts, err := time.Parse(time.RFC3339, strings.TrimSpace(r.Timestamp))
	if err != nil {
		return domain.Transaction{}, fmt.Errorf("parse timestamp for %s: %w", r.TransactionID, err)
	}
	return domain.Transaction{
		ID:          r.TransactionID,
		FromAccount: r.FromAccount,
		ToAccount:   r.ToAccount,
		Amount:      r.Amount,
		Timestamp:   ts,
		Metadata:    r.Metadata,
	}, nil
}

// Generator produces synthetic transaction datasets. Normal traffic spreads
// small transfers over scattered accounts; fraudulent traffic concentrates
// large transfers on a hub account.
type Generator struct {
	cfg  Config
	rand *rand.Rand
	now  func() time.Time
}

// New returns a configured Generator instance.
func New(cfg Config) *Generator {
	if cfg.NumTransactions <= 0 {
		cfg.NumTransactions = DefaultConfig().NumTransactions
	}
	if cfg.NumAccounts <= 1 {
		cfg.NumAccounts = DefaultConfig().NumAccounts
	}
	if cfg.FraudRate < 0 {
		cfg.FraudRate = 0
	}
	if cfg.FraudRate > 1 {
		cfg.FraudRate = 1
	}
	if cfg.Seed == 0 {
		cfg.Seed = time.Now().UnixNano()
	}

	return &Generator{
		cfg:  cfg,
		rand: rand.New(rand.NewSource(cfg.Seed)),
		now:  time.Now,
	}
}

// WithClock overrides the base time provider (used primarily in tests).
func (g *Generator) WithClock(now func() time.Time) {
	if now != nil {
		g.now = now
	}
}

// Generate synthesises transactions spread over the trailing 24 hours. It
// respects context cancellation.
func (g *Generator) Generate(ctx context.Context) ([]Record, error) {
	accounts := make([]string, g.cfg.NumAccounts)
	for i := range accounts {
		accounts[i] = fmt.Sprintf("acc_%03d", i)
	}

	base := g.now().UTC()
	records := make([]Record, 0, g.cfg.NumTransactions)

	for i := 0; i < g.cfg.NumTransactions; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		var from, to string
		var amount float64
		if g.rand.Float64() > g.cfg.FraudRate {
			amount = g.uniform(normalAmountMin, normalAmountMax)
			from = accounts[g.rand.Intn(len(accounts))]
			to = g.otherAccount(accounts, from)
		} else {
			amount = g.uniform(fraudAmountMin, fraudAmountMax)
			hub := accounts[g.rand.Intn(len(accounts))]
			if g.rand.Float64() > 0.5 {
				from = hub
				to = g.otherAccount(accounts, hub)
			} else {
				from = g.otherAccount(accounts, hub)
				to = hub
			}
		}

		timestamp := base.
			Add(-time.Duration(g.rand.Float64() * 24 * float64(time.Hour))).
			Add(-time.Duration(g.rand.Float64() * 60 * float64(time.Minute)))

		records = append(records, Record{
			TransactionID: fmt.Sprintf("tx_%06d", i),
			FromAccount:   from,
			ToAccount:     to,
			Amount:        float64(int(amount*100)) / 100,
			Timestamp:     timestamp.Format(time.RFC3339),
			Metadata: map[string]any{
				"type":     "transfer",
				"currency": "USD",
				"trace_id": uuid.Must(uuid.NewRandomFromReader(g.rand)).String(),
			},
		})
	}

	return records, nil
}

func (g *Generator) uniform(low, high float64) float64 {
	return low + g.rand.Float64()*(high-low)
}

func (g *Generator) otherAccount(accounts []string, exclude string) string {
	for {
		acct := accounts[g.rand.Intn(len(accounts))]
		if acct != exclude {
			return acct
		}
	}
}
