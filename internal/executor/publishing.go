package executor

import (
	"context"
	"errors"
	"fmt"

	"github.com/oychao1988/content-hub-sub001/internal/publishpool"
)

// TypePublishing — тип исполнителя публикации.
const TypePublishing = "publishing"

// Publisher — операции пула, нужные публикации.
type Publisher interface {
	ProcessBatch(ctx context.Context, limit int) (*publishpool.BatchStats, error)
	PublishEntry(ctx context.Context, entryID int64) (*publishpool.Outcome, error)
	PublishNow(ctx context.Context, entryID int64) (*publishpool.Outcome, error)
}

type publishingParams struct {
	EntryID   int64 `json:"entry_id" validate:"omitempty,gt=0"`
	BatchSize int   `json:"batch_size" validate:"omitempty,min=1,max=100"`
	Force     bool  `json:"force"`
}

// Publishing публикует готовые записи пула.
//
// Без параметров обрабатывает выборку целиком; ошибка одной записи
// не прерывает остальные. С entry_id публикует одну запись,
// force игнорирует scheduled_at.
type Publishing struct {
	pool Publisher
}

// NewPublishing создаёт исполнитель публикации.
func NewPublishing(pool Publisher) *Publishing {
	return &Publishing{pool: pool}
}

// Type возвращает тип исполнителя.
func (e *Publishing) Type() string { return TypePublishing }

// Description возвращает описание для списка исполнителей.
func (e *Publishing) Description() string {
	return "publishes eligible publish pool entries"
}

// ValidateParams проверяет необязательные entry_id и batch_size.
func (e *Publishing) ValidateParams(params map[string]any) error {
	var p publishingParams
	return DecodeParams(params, &p)
}

// Execute публикует выборку или одну запись.
func (e *Publishing) Execute(ctx context.Context, _ string, params map[string]any) *Result {
	var p publishingParams
	if err := DecodeParams(params, &p); err != nil {
		return Fail(CodeValidation, err.Error())
	}

	if p.EntryID > 0 {
		return e.publishOne(ctx, p.EntryID, p.Force)
	}

	stats, err := e.pool.ProcessBatch(ctx, p.BatchSize)
	if err != nil {
		return Fail(CodeInternal, fmt.Sprintf("process publish batch: %v", err))
	}

	return Succeed(
		fmt.Sprintf("published %d of %d entries", stats.Published, stats.Total),
		map[string]any{
			"total":       stats.Total,
			"published":   stats.Published,
			"failed":      stats.Failed,
			"rescheduled": stats.Rescheduled,
			"skipped":     stats.Skipped,
			"outcomes":    stats.Outcomes,
		},
	)
}

func (e *Publishing) publishOne(ctx context.Context, entryID int64, force bool) *Result {
	var (
		out *publishpool.Outcome
		err error
	)
	if force {
		out, err = e.pool.PublishNow(ctx, entryID)
	} else {
		out, err = e.pool.PublishEntry(ctx, entryID)
	}
	if err != nil {
		switch {
		case errors.Is(err, publishpool.ErrEntryNotFound):
			return Fail(CodeNotFound, err.Error())
		case errors.Is(err, publishpool.ErrNotPending):
			return Fail(CodeValidation, err.Error())
		default:
			return Fail(CodeInternal, fmt.Sprintf("publish entry %d: %v", entryID, err))
		}
	}

	data := map[string]any{
		"entry_id":   out.EntryID,
		"content_id": out.ContentID,
		"result":     out.Result,
	}
	if out.ExternalID != "" {
		data["external_id"] = out.ExternalID
	}

	switch out.Result {
	case publishpool.ResultPublished:
		return Succeed("entry published", data)
	case publishpool.ResultSkipped:
		return Succeed("entry skipped: "+out.Error, data)
	default:
		res := Fail(CodeExternalService, out.Error)
		res.Data = data
		return res
	}
}
