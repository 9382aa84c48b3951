package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"
)

// LoadIDs reads the identifier file used to produce submissions: a CSV whose
// first column is the row identifier.
func LoadIDs(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	ids := make([]string, 0, 1024)
	first := true
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%s: read row %d: %w", path, len(ids)+1, err)
		}
		if first {
			first = false
			continue
		}
		if blankRecord(record) {
			continue
		}
		ids = append(ids, strings.TrimSpace(record[0]))
	}
	return ids, nil
}

// WriteSubmission writes one predicted class name per identifier. The two
// slices must be parallel.
func WriteSubmission(w io.Writer, ids []string, predictions []int, classes []string) error {
	if len(ids) != len(predictions) {
		return fmt.Errorf("got %d identifiers but %d predictions", len(ids), len(predictions))
	}

	writer := csv.NewWriter(w)
	if err := writer.Write([]string{"id", "label"}); err != nil {
		return err
	}
	for i, id := range ids {
		class := predictions[i]
		if class < 0 || class >= len(classes) {
			return fmt.Errorf("row %s: predicted class index %d out of range", id, class)
		}
		if err := writer.Write([]string{id, classes[class]}); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}
