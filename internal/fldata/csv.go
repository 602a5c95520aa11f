package fldata

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"

	"gonum.org/v1/gonum/mat"
)

// LoadCSV reads a partition from a CSV file where every record holds the
// feature values followed by the integer class label in the last column.
func LoadCSV(filePath string) (*Partition, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("opening dataset file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading dataset file %s: %w", filePath, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("dataset file %s is empty", filePath)
	}

	featureDim := len(records[0]) - 1
	if featureDim < 1 {
		return nil, fmt.Errorf("dataset file %s: records need at least one feature and a label", filePath)
	}

	x := mat.NewDense(len(records), featureDim, nil)
	y := make([]int, len(records))
	for i, record := range records {
		if len(record) != featureDim+1 {
			return nil, fmt.Errorf("dataset file %s: incorrect record at line %d: %v", filePath, i+1, record)
		}
		for j := 0; j < featureDim; j++ {
			value, err := strconv.ParseFloat(record[j], 64)
			if err != nil {
				return nil, fmt.Errorf("dataset file %s: line %d column %d: %w", filePath, i+1, j+1, err)
			}
			x.Set(i, j, value)
		}
		label, err := strconv.Atoi(record[featureDim])
		if err != nil {
			return nil, fmt.Errorf("dataset file %s: line %d label: %w", filePath, i+1, err)
		}
		y[i] = label
	}

	return NewPartition(x, y)
}
