package audit

import (
	"context"
	"time"

	"cloud.google.com/go/bigquery"
	"github.com/google/uuid"

	"github.com/haiminhngo/farmlink-backend/pkg/logger"
)

// Record is one immutable audit row. ReceiptID doubles as the opaque
// receipt handed back to the triggering operation.
type Record struct {
	ReceiptID  string    `bigquery:"receipt_id"`
	Action     string    `bigquery:"action"`
	EntityType string    `bigquery:"entity_type"`
	EntityID   string    `bigquery:"entity_id"`
	ActorID    string    `bigquery:"actor_id"`
	ActorRole  string    `bigquery:"actor_role"`
	Detail     string    `bigquery:"detail"`
	RecordedAt time.Time `bigquery:"recorded_at"`
}

// Save implements bigquery.ValueSaver so inserts carry a stable insert id
// for best-effort dedup on the streaming path.
func (r Record) Save() (map[string]bigquery.Value, string, error) {
	return map[string]bigquery.Value{
		"receipt_id":  r.ReceiptID,
		"action":      r.Action,
		"entity_type": r.EntityType,
		"entity_id":   r.EntityID,
		"actor_id":    r.ActorID,
		"actor_role":  r.ActorRole,
		"detail":      r.Detail,
		"recorded_at": r.RecordedAt,
	}, r.ReceiptID, nil
}

type inserter interface {
	InsertRows(ctx context.Context, table string, rows []any) error
	AuditTable() string
}

// Writer streams audit records. A nil Writer or insert failure never
// fails the triggering operation, the caller just proceeds without a
// receipt.
type Writer struct {
	client inserter
	logg   *logger.Logger
}

func NewWriter(client inserter, logg *logger.Logger) *Writer {
	return &Writer{client: client, logg: logg}
}

// WriteParams describe the operation being audited.
type WriteParams struct {
	Action     string
	EntityType string
	EntityID   uuid.UUID
	ActorID    uuid.UUID
	ActorRole  string
	Detail     string
}

// Write inserts one record and returns its receipt id. The second return
// reports whether the record landed.
func (w *Writer) Write(ctx context.Context, params WriteParams) (*uuid.UUID, bool) {
	if w == nil || w.client == nil {
		return nil, false
	}

	receipt := uuid.New()
	record := Record{
		ReceiptID:  receipt.String(),
		Action:     params.Action,
		EntityType: params.EntityType,
		EntityID:   params.EntityID.String(),
		ActorID:    params.ActorID.String(),
		ActorRole:  params.ActorRole,
		Detail:     params.Detail,
		RecordedAt: time.Now().UTC(),
	}

	if err := w.client.InsertRows(ctx, w.client.AuditTable(), []any{record}); err != nil {
		if w.logg != nil {
			w.logg.Error(ctx, "audit record insert failed", err)
		}
		return nil, false
	}
	return &receipt, true
}
