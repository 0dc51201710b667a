// Package queue implementa la cola de trabajos diferidos (firma de DTE) con
// dos backends: en memoria (goroutines) y Redis (lista con BRPOP).
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Modelos de los trabajos de firma.
const (
	ModelInvoice = "account.invoice"
	ModelPicking = "stock.picking"
)

// ErrClosed la cola ya no acepta trabajos.
var ErrClosed = errors.New("queue: cola cerrada")

// Job trabajo de firma de un documento.
type Job struct {
	ID         string    `json:"id"`
	Model      string    `json:"model"`
	RecordID   string    `json:"record_id"`
	CompanyID  string    `json:"company_id"`
	EnqueuedAt time.Time `json:"enqueued_at"`
}

// NewJob crea un trabajo con ID y marca de tiempo.
func NewJob(model, recordID, companyID string) Job {
	return Job{
		ID:         uuid.New().String(),
		Model:      model,
		RecordID:   recordID,
		CompanyID:  companyID,
		EnqueuedAt: time.Now().UTC(),
	}
}

// Handler procesa un trabajo. Los errores se registran; el trabajo no se reintenta.
type Handler func(ctx context.Context, job Job) error

func encodeJob(j Job) ([]byte, error) {
	b, err := json.Marshal(j)
	if err != nil {
		return nil, fmt.Errorf("queue: serializar trabajo: %w", err)
	}
	return b, nil
}

func decodeJob(data []byte) (Job, error) {
	var j Job
	if err := json.Unmarshal(data, &j); err != nil {
		return Job{}, fmt.Errorf("queue: deserializar trabajo: %w", err)
	}
	if j.Model == "" || j.RecordID == "" {
		return Job{}, fmt.Errorf("queue: trabajo incompleto")
	}
	return j, nil
}
