package common

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

func CalculateAverageFloat64(numbers []float64) float64 {
	if len(numbers) == 0 {
		return 0
	}

	var sum float64
	for _, number := range numbers {
		sum += number
	}

	return sum / float64(len(numbers))
}

func CalculateAverageFloat32(numbers []float32) float32 {
	if len(numbers) == 0 {
		return 0
	}

	var sum float32
	for _, number := range numbers {
		sum += number
	}

	return sum / float32(len(numbers))
}

func GetResultsFileName(resultsDir string) (string, error) {
	if err := os.MkdirAll(resultsDir, 0777); err != nil {
		return "", fmt.Errorf("creating results dir: %w", err)
	}
	fileName := fmt.Sprintf("results_%s.csv", time.Now().Format("2006-01-02_15-04"))
	return filepath.Join(resultsDir, fileName), nil
}

func WriteResultsToFile(fileName string, round int32, accuracy float32, loss float32) error {
	file, err := os.OpenFile(fileName, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open results file: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	record := []string{fmt.Sprintf("%d", round), fmt.Sprintf("%.4f", accuracy), fmt.Sprintf("%.4f", loss)}
	if err := writer.Write(record); err != nil {
		return fmt.Errorf("failed to write results record: %w", err)
	}

	return nil
}
