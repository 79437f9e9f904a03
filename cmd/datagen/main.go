package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/adesai/topoguard/internal/generator"
)

func main() {
	cfg := generator.DefaultConfig()
	var (
		transactions = flag.Int("transactions", cfg.NumTransactions, "number of transactions to generate")
		accounts     = flag.Int("accounts", cfg.NumAccounts, "number of unique accounts")
		fraudRate    = flag.Float64("fraud-rate", cfg.FraudRate, "fraction of fraudulent transactions (0-1)")
		seed         = flag.Int64("seed", cfg.Seed, "random seed for deterministic generation")
		output       = flag.String("output", "data/sample_transactions.json", "output file")
		writeStdout  = flag.Bool("stdout", false, "write dataset to stdout instead of a file")
	)
	flag.Parse()

	genCfg := generator.Config{
		NumTransactions: *transactions,
		NumAccounts:     *accounts,
		FraudRate:       *fraudRate,
		Seed:            *seed,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	gen := generator.New(genCfg)
	records, err := gen.Generate(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "generation failed: %v\n", err)
		os.Exit(1)
	}

	if *writeStdout {
		if err := json.NewEncoder(os.Stdout).Encode(records); err != nil {
			fmt.Fprintf(os.Stderr, "failed to write dataset to stdout: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if err := generator.WriteDataset(records, *output); err != nil {
		fmt.Fprintf(os.Stderr, "failed to write dataset: %v\n", err)
		os.Exit(1)
	}

	fmt.Fprintf(os.Stdout, "Generated %d transactions to %s\n", len(records), *output)
}
