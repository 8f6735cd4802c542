package executor

import (
	"context"
	"fmt"

	"github.com/oychao1988/content-hub-sub001/internal/domain"
	"github.com/oychao1988/content-hub-sub001/internal/publishpool"
)

// TypePublishPoolScanner — тип исполнителя обхода пула.
const TypePublishPoolScanner = "publish_pool_scanner"

// EligibleLister выбирает готовые записи пула.
type EligibleLister interface {
	Eligible(ctx context.Context, limit int) ([]*domain.PublishPoolEntry, error)
}

type scannerParams struct {
	BatchSize int `json:"batch_size" validate:"omitempty,min=1,max=100"`
}

// PublishPoolScanner выбирает записи (priority DESC, scheduled_at ASC,
// added_at ASC) и передаёт каждую исполнителю publishing по entry_id.
// Записи с исчерпанными попытками считаются failed без новой попытки.
type PublishPoolScanner struct {
	pool       EligibleLister
	publishing Executor
}

// NewPublishPoolScanner создаёт исполнитель.
func NewPublishPoolScanner(pool EligibleLister, publishing Executor) *PublishPoolScanner {
	return &PublishPoolScanner{pool: pool, publishing: publishing}
}

// Type возвращает тип исполнителя.
func (e *PublishPoolScanner) Type() string { return TypePublishPoolScanner }

// Description возвращает описание для списка исполнителей.
func (e *PublishPoolScanner) Description() string {
	return "scans the publish pool and publishes entries one by one"
}

// ValidateParams проверяет batch_size.
func (e *PublishPoolScanner) ValidateParams(params map[string]any) error {
	var p scannerParams
	return DecodeParams(params, &p)
}

// Execute обходит выборку. Ошибка одной записи не прерывает обход.
func (e *PublishPoolScanner) Execute(ctx context.Context, taskID string, params map[string]any) *Result {
	var p scannerParams
	if err := DecodeParams(params, &p); err != nil {
		return Fail(CodeValidation, err.Error())
	}

	entries, err := e.pool.Eligible(ctx, p.BatchSize)
	if err != nil {
		return Fail(CodeInternal, fmt.Sprintf("list eligible entries: %v", err))
	}

	var published, failed, skipped, exhausted int
	items := make([]map[string]any, 0, len(entries))

	for _, entry := range entries {
		if ctx.Err() != nil {
			break
		}

		item := map[string]any{"entry_id": entry.ID, "content_id": entry.ContentID}

		if entry.RetriesExhausted() {
			exhausted++
			failed++
			item["result"] = publishpool.ResultFailed
			item["error"] = "max retries exceeded"
		}

		// publishing переводит исчерпанную запись в failed без вызова API
		res := Run(ctx, e.publishing, taskID, map[string]any{"entry_id": entry.ID})
		if item["result"] == nil {
			result, _ := res.Data["result"].(string)
			switch {
			case res.Success && result == publishpool.ResultSkipped:
				skipped++
			case res.Success:
				published++
			default:
				failed++
				item["error"] = res.Message
			}
			if result == "" {
				result = publishpool.ResultFailed
			}
			item["result"] = result
		}
		items = append(items, item)
	}

	return Succeed(
		fmt.Sprintf("scanned %d entries: %d published, %d failed", len(items), published, failed),
		map[string]any{
			"total":     len(items),
			"published": published,
			"failed":    failed,
			"skipped":   skipped,
			"exhausted": exhausted,
			"entries":   items,
		},
	)
}
