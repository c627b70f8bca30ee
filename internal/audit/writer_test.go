package audit

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
)

type stubInserter struct {
	rows  []any
	table string
	err   error
}

func (s *stubInserter) InsertRows(ctx context.Context, table string, rows []any) error {
	if s.err != nil {
		return s.err
	}
	s.table = table
	s.rows = append(s.rows, rows...)
	return nil
}

func (s *stubInserter) AuditTable() string {
	return "audit_records"
}

func TestWriteReturnsReceipt(t *testing.T) {
	ins := &stubInserter{}
	w := NewWriter(ins, nil)

	receipt, ok := w.Write(context.Background(), WriteParams{
		Action:     "shipment.delivered",
		EntityType: "shipment",
		EntityID:   uuid.New(),
		ActorID:    uuid.New(),
		ActorRole:  "driver",
	})
	if !ok || receipt == nil {
		t.Fatal("expected a receipt")
	}
	if ins.table != "audit_records" {
		t.Fatalf("unexpected table %q", ins.table)
	}
	if len(ins.rows) != 1 {
		t.Fatalf("expected one row, got %d", len(ins.rows))
	}
	record, isRecord := ins.rows[0].(Record)
	if !isRecord {
		t.Fatalf("unexpected row type %T", ins.rows[0])
	}
	if record.ReceiptID != receipt.String() {
		t.Fatalf("receipt mismatch: %s vs %s", record.ReceiptID, receipt)
	}
}

func TestWriteInsertFailureIsNonFatal(t *testing.T) {
	ins := &stubInserter{err: errors.New("stream closed")}
	w := NewWriter(ins, nil)

	receipt, ok := w.Write(context.Background(), WriteParams{Action: "payment.confirmed"})
	if ok || receipt != nil {
		t.Fatal("expected no receipt on insert failure")
	}
}

func TestWriteNilWriter(t *testing.T) {
	var w *Writer
	if receipt, ok := w.Write(context.Background(), WriteParams{}); ok || receipt != nil {
		t.Fatal("nil writer must report no receipt")
	}
}
