package scrape

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/trialrag/trialrag/internal/model"
)

// csvColumns is the canonical column layout for exported studies. Keys
// outside this list are appended alphabetically.
var csvColumns = []string{
	"title", "description", "contacts", "principal_investigator", "gender",
	"age", "phase", "healthy_volunteers", "system_id", "irb_number",
	"interventions", "conditions", "keywords", "sites",
	"inclusion_criteria", "exclusion_criteria",
}

// WriteJSON saves records as a pretty-printed JSON array, the same layout the
// ingest loader reads back.
func WriteJSON(records []model.TrialRecord, path string) error {
	data, err := json.MarshalIndent(records, "", "    ")
	if err != nil {
		return fmt.Errorf("encode studies: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// WriteCSV saves records under a header covering every key present in any
// record. Records missing a column get an empty cell.
func WriteCSV(records []model.TrialRecord, path string) error {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	header := csvHeader(records)
	if err := w.Write(header); err != nil {
		return fmt.Errorf("encode studies: %w", err)
	}
	for _, record := range records {
		row := make([]string, len(header))
		for i, name := range header {
			row[i] = record[name]
		}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("encode studies: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("encode studies: %w", err)
	}

	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func csvHeader(records []model.TrialRecord) []string {
	present := make(map[string]bool)
	for _, record := range records {
		for key := range record {
			present[key] = true
		}
	}
	header := make([]string, 0, len(present))
	for _, name := range csvColumns {
		if present[name] {
			header = append(header, name)
			delete(present, name)
		}
	}
	extras := make([]string, 0, len(present))
	for key := range present {
		extras = append(extras, key)
	}
	sort.Strings(extras)
	return append(header, extras...)
}

// TimestampedName returns the conventional clinical_trials_<stamp> file name
// for an export in the given format.
func TimestampedName(format string) string {
	return fmt.Sprintf("clinical_trials_%s.%s", time.Now().Format("20060102_150405"), format)
}
