package ingest

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/trialrag/trialrag/internal/model"
)

// ReadJSON loads a trial export: a JSON array of flat objects. Non-string
// values are stringified and nulls read as empty.
func ReadJSON(path string) ([]model.TrialRecord, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var raw []map[string]interface{}
	if err := json.NewDecoder(file).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	records := make([]model.TrialRecord, 0, len(raw))
	for _, item := range raw {
		records = append(records, toRecord(item))
	}
	return records, nil
}

// ReadCSV loads a trial export with a header row naming the fields.
func ReadCSV(path string) ([]model.TrialRecord, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	reader := csv.NewReader(file)
	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	records := make([]model.TrialRecord, 0)
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		record := make(model.TrialRecord, len(header))
		for i, name := range header {
			record[name] = row[i]
		}
		records = append(records, record)
	}
	return records, nil
}

func toRecord(item map[string]interface{}) model.TrialRecord {
	record := make(model.TrialRecord, len(item))
	for key, value := range item {
		switch v := value.(type) {
		case nil:
			record[key] = ""
		case string:
			record[key] = v
		case float64:
			record[key] = strconv.FormatFloat(v, 'f', -1, 64)
		case bool:
			record[key] = strconv.FormatBool(v)
		default:
			data, _ := json.Marshal(v)
			record[key] = string(data)
		}
	}
	return record
}
