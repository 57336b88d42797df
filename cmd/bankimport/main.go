package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"psp.com/mock-exam/backend/internal/db"
	"psp.com/mock-exam/backend/internal/questionbank"
)

func main() {
	input := flag.String("input", "", "Path to the JSON question bank")
	bankID := flag.String("bank", "", "Bank id to store the questions under")
	driver := flag.String("driver", "sqlite", "Database driver (sqlite|postgres)")
	dsn := flag.String("dsn", "", "Database DSN (driver default when empty)")
	flag.Parse()

	if *input == "" || *bankID == "" {
		fmt.Fprintf(os.Stderr, "Usage: bankimport -input <bank.json> -bank <id> [-driver sqlite|postgres] [-dsn <dsn>]\n")
		os.Exit(1)
	}

	corpus, _, err := questionbank.LoadFile(*input)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading bank: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	conn, err := db.Open(ctx, db.Driver(*driver), *dsn)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening database: %v\n", err)
		os.Exit(1)
	}
	err = questionbank.SaveSQL(ctx, conn, *bankID, corpus.All())
	conn.Close()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error saving bank: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Imported %d questions into bank %q\n", corpus.Len(), *bankID)
	stats := corpus.Stats()
	for _, cat := range corpus.Categories() {
		counts := stats[cat]
		fmt.Printf("  %-30s basic=%d intermediate=%d advanced=%d\n", cat,
			counts[questionbank.Basic], counts[questionbank.Intermediate], counts[questionbank.Advanced])
	}
}
