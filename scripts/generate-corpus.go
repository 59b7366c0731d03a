//go:build ignore

// Package main generates a synthetic document corpus for load testing
// ingestion and search. The documents match configs/schema.example.json.
//
// Usage: go run scripts/generate-corpus.go -files 20 -docs 5000 -output testdata/corpus
package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
)

var (
	numFiles  = flag.Int("files", 10, "Number of .jsonl files to generate")
	numDocs   = flag.Int("docs", 1000, "Documents per file")
	outputDir = flag.String("output", "testdata/corpus", "Output directory")
	seed      = flag.Int64("seed", 42, "Random seed for reproducibility")
	invalid   = flag.Float64("invalid", 0, "Fraction of documents with a wrong field type")
)

var (
	words = strings.Fields(`sea ocean voyage whale ship sail harbor storm island captain
		mountain river forest valley desert glacier summit trail bridge village
		history empire war peace treaty king queen revolution republic
		science atom star planet orbit telescope theory experiment energy
		cooking bread salt spice garden harvest kitchen recipe market wine`)
	tags = []string{"travel", "nature", "history", "science", "food", "poetry", "fiction"}
)

type document struct {
	Title string   `json:"title"`
	Body  string   `json:"body"`
	Tags  []string `json:"tags"`
	Year  any      `json:"year"`
}

func main() {
	flag.Parse()
	rng := rand.New(rand.NewSource(*seed))

	if err := os.MkdirAll(*outputDir, 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "Error creating output directory: %v\n", err)
		os.Exit(1)
	}

	total := 0
	for i := range *numFiles {
		path := filepath.Join(*outputDir, fmt.Sprintf("part-%04d.jsonl", i))
		n, err := writeFile(rng, path, *numDocs)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error writing %s: %v\n", path, err)
			os.Exit(1)
		}
		total += n
	}
	fmt.Printf("Generated %d documents in %d files under %s\n", total, *numFiles, *outputDir)
}

func writeFile(rng *rand.Rand, path string, n int) (int, error) {
	f, err := os.Create(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	enc := json.NewEncoder(w)
	for range n {
		if err := enc.Encode(randomDocument(rng)); err != nil {
			return 0, err
		}
	}
	return n, w.Flush()
}

func randomDocument(rng *rand.Rand) document {
	d := document{
		Title: sentence(rng, 2+rng.Intn(4)),
		Body:  sentence(rng, 20+rng.Intn(80)),
		Tags:  []string{tags[rng.Intn(len(tags))]},
		Year:  1800 + rng.Intn(226),
	}
	if rng.Intn(3) == 0 {
		d.Tags = append(d.Tags, tags[rng.Intn(len(tags))])
	}
	if rng.Float64() < *invalid {
		d.Year = "unknown"
	}
	return d
}

func sentence(rng *rand.Rand, n int) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = words[rng.Intn(len(words))]
	}
	s := strings.Join(parts, " ")
	return strings.ToUpper(s[:1]) + s[1:]
}
