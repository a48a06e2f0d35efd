package mover

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

type transactionLog struct {
	RunID        string        `json:"run_id"`
	Timestamp    string        `json:"timestamp"`
	DryRun       bool          `json:"dry_run"`
	Transactions []Transaction `json:"transactions"`
}

// WriteTransactionLog writes every transaction recorded so far as JSON.
func (m *Mover) WriteTransactionLog(path string) error {
	txs := m.Transactions()
	if txs == nil {
		txs = []Transaction{}
	}
	payload := transactionLog{
		RunID:        m.runID,
		Timestamp:    m.now().UTC().Format(time.RFC3339),
		DryRun:       m.dryRun,
		Transactions: txs,
	}
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal transaction log: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create report directory: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write transaction log: %w", err)
	}
	return nil
}

var csvHeader = []string{
	"asset_id", "remote_path", "source_path", "dest_path",
	"move_success", "delete_success", "state", "error_kind", "error",
}

// WriteCSVReport writes one row per transaction.
func (m *Mover) WriteCSVReport(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create report directory: %w", err)
	}
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create csv report: %w", err)
	}
	defer file.Close()

	w := csv.NewWriter(file)
	if err := w.Write(csvHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, tx := range m.Transactions() {
		row := []string{
			tx.AssetID,
			tx.RemotePath,
			tx.SourcePath,
			tx.DestPath,
			strconv.FormatBool(tx.MoveSucceeded),
			strconv.FormatBool(tx.DeleteSucceeded),
			string(tx.State),
			tx.ErrorKind,
			tx.Error,
		}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush csv report: %w", err)
	}
	return file.Close()
}
