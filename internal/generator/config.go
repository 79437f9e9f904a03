package generator

// Config drives the synthetic transaction generator.
type Config struct {
	NumTransactions int
	NumAccounts     int
	FraudRate       float64
	Seed            int64
}

// DefaultConfig returns baseline settings producing a day of mixed traffic.
func DefaultConfig() Config {
	return Config{
		NumTransactions: 10000,
		NumAccounts:     50,
		FraudRate:       0.05,
		Seed:            42,
	}
}
