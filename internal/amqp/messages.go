package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"bukukas/internal/core"

	"github.com/google/uuid"
)

type ExportKind string

const (
	ExportMonthly ExportKind = "monthly"
	ExportDaily   ExportKind = "daily"
)

// ReportExportMessage asks the worker to push a report to the spreadsheet.
// It carries only the period and document version; the worker loads and
// computes the report itself.
type ReportExportMessage struct {
	ID        string     `json:"id"`
	Kind      ExportKind `json:"kind"`
	Period    string     `json:"period"` // YYYY-MM for monthly, YYYY-MM-DD for daily
	Version   int64      `json:"version"`
	Timestamp time.Time  `json:"timestamp"`
}

// NewReportExportMessage creates a message with a fresh id.
func NewReportExportMessage(kind ExportKind, period string, version int64) *ReportExportMessage {
	return &ReportExportMessage{
		ID:        uuid.NewString(),
		Kind:      kind,
		Period:    period,
		Version:   version,
		Timestamp: time.Now(),
	}
}

// Validate checks that the period matches the kind.
func (m *ReportExportMessage) Validate() error {
	switch m.Kind {
	case ExportMonthly:
		return core.Month(m.Period).Validate()
	case ExportDaily:
		return core.Date(m.Period).Validate()
	default:
		return fmt.Errorf("unknown export kind %q", m.Kind)
	}
}

// ToJSON converts the message to JSON bytes
func (m *ReportExportMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ReportExportMessageFromJSON parses and validates a message.
func ReportExportMessageFromJSON(data []byte) (*ReportExportMessage, error) {
	var msg ReportExportMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if err := msg.Validate(); err != nil {
		return nil, err
	}
	return &msg, nil
}
