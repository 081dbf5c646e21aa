package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/Rana718/fakeseed/internal/seeder"
)

// Fixture is the JSON layout of exported batches.
type Fixture struct {
	Timestamp string                  `json:"timestamp"`
	Version   string                  `json:"version"`
	Order     []string                `json:"order"`
	Tables    map[string][]seeder.Row `json:"tables"`
}

// Write saves generated batches under exportPath and returns the file or
// directory written. format is "json" (default) or "csv".
func Write(batches []*seeder.Batch, exportPath, format string) (string, error) {
	if err := os.MkdirAll(exportPath, 0755); err != nil {
		return "", fmt.Errorf("failed to create export directory: %w", err)
	}

	timestamp := time.Now().Format("2006-01-02_15-04-05")
	switch format {
	case "csv":
		return writeCSV(batches, filepath.Join(exportPath, fmt.Sprintf("fixtures_%s_csv", timestamp)))
	case "json", "":
		return writeJSON(batches, filepath.Join(exportPath, fmt.Sprintf("fixtures_%s.json", timestamp)))
	default:
		return "", fmt.Errorf("unsupported export format %q (json, csv)", format)
	}
}

func writeJSON(batches []*seeder.Batch, filePath string) (string, error) {
	data := Fixture{
		Timestamp: time.Now().Format(time.DateTime),
		Version:   "1.0",
		Tables:    make(map[string][]seeder.Row, len(batches)),
	}
	for _, b := range batches {
		data.Order = append(data.Order, b.Table)
		data.Tables[b.Table] = b.Rows
	}

	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal data: %w", err)
	}

	if err := os.WriteFile(filePath, jsonData, 0644); err != nil {
		return "", fmt.Errorf("failed to write file: %w", err)
	}
	return filePath, nil
}

func writeCSV(batches []*seeder.Batch, dirPath string) (string, error) {
	if err := os.MkdirAll(dirPath, 0755); err != nil {
		return "", fmt.Errorf("failed to create CSV directory: %w", err)
	}

	for _, b := range batches {
		if err := writeTableCSV(b, filepath.Join(dirPath, b.Table+".csv")); err != nil {
			return "", err
		}
	}
	return dirPath, nil
}

func writeTableCSV(b *seeder.Batch, filePath string) error {
	file, err := os.Create(filePath)
	if err != nil {
		return fmt.Errorf("failed to create CSV file for %s: %w", b.Table, err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write(b.Columns); err != nil {
		return err
	}

	for _, row := range b.Rows {
		values := make([]string, len(b.Columns))
		for i, col := range b.Columns {
			values[i] = csvValue(row[col])
		}
		if err := writer.Write(values); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}

// csvValue leaves NULL as an empty field.
func csvValue(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case time.Time:
		return val.Format(time.DateTime)
	default:
		return fmt.Sprintf("%v", val)
	}
}
