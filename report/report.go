package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
)

// Result is the counter report of one named benchmark.
type Result struct {
	Name     string    `json:"name"`
	Counters *Counters `json:"counters"`
}

// Generate writes a markdown table with one row per counter and one column
// per result. Counters are listed in the order they first appear.
func Generate(w io.Writer, results []Result) error {
	if len(results) == 0 {
		return fmt.Errorf("no results to report")
	}

	names := counterUnion(results)

	fmt.Fprintln(w, "## Benchmark Results")
	fmt.Fprintln(w)

	// Table header.
	fmt.Fprint(w, "| Counter |")
	for _, r := range results {
		fmt.Fprintf(w, " %s |", r.Name)
	}
	fmt.Fprintln(w)

	fmt.Fprint(w, "|---------|")
	for range results {
		fmt.Fprint(w, "------|")
	}
	fmt.Fprintln(w)

	for _, name := range names {
		fmt.Fprintf(w, "| %s |", name)

		for _, r := range results {
			fmt.Fprintf(w, " %s |", formatValue(r.Counters, name))
		}

		fmt.Fprintln(w)
	}

	return nil
}

// GenerateJSON writes results as JSON to w.
func GenerateJSON(w io.Writer, results []Result) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	return enc.Encode(results)
}

func counterUnion(results []Result) []string {
	seen := make(map[string]bool)

	var names []string

	for _, r := range results {
		if r.Counters == nil {
			continue
		}

		for _, name := range r.Counters.Names() {
			if !seen[name] {
				seen[name] = true
				names = append(names, name)
			}
		}
	}

	return names
}

func formatValue(c *Counters, name string) string {
	if c == nil {
		return "-"
	}

	v, ok := c.Get(name)
	if !ok {
		return "-"
	}

	return strconv.FormatFloat(v, 'f', 2, 64)
}
