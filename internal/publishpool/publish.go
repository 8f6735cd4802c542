package publishpool

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"

	"github.com/oychao1988/content-hub-sub001/internal/domain"
	"github.com/oychao1988/content-hub-sub001/internal/metrics"
	"github.com/oychao1988/content-hub-sub001/internal/publishapi"
	"github.com/oychao1988/content-hub-sub001/internal/store"
)

// Outcome — итог обработки одной записи.
type Outcome struct {
	EntryID    int64  `json:"entry_id"`
	ContentID  int64  `json:"content_id"`
	Result     string `json:"result"`
	ExternalID string `json:"external_id,omitempty"`
	Error      string `json:"error,omitempty"`
}

// BatchStats — итог обработки выборки.
//
// Failed включает неудачные попытки (в том числе отложенные на повтор)
// и записи с исчерпанными попытками.
type BatchStats struct {
	Total       int        `json:"total"`
	Published   int        `json:"published"`
	Failed      int        `json:"failed"`
	Rescheduled int        `json:"rescheduled"`
	Skipped     int        `json:"skipped"`
	Outcomes    []*Outcome `json:"outcomes"`
}

func (b *BatchStats) add(o *Outcome) {
	b.Total++
	switch o.Result {
	case ResultPublished:
		b.Published++
	case ResultRescheduled:
		b.Failed++
		b.Rescheduled++
	case ResultFailed:
		b.Failed++
	case ResultSkipped:
		b.Skipped++
	}
	b.Outcomes = append(b.Outcomes, o)
}

// ProcessBatch публикует до limit готовых записей.
// limit <= 0 — размер выборки по умолчанию.
func (s *Service) ProcessBatch(ctx context.Context, limit int) (*BatchStats, error) {
	entries, err := s.Eligible(ctx, limit)
	if err != nil {
		return nil, err
	}
	metrics.ObservePublishBatch(len(entries))

	stats := &BatchStats{Outcomes: make([]*Outcome, 0, len(entries))}
	for _, entry := range entries {
		if ctx.Err() != nil {
			break
		}
		stats.add(s.ProcessEntry(ctx, entry))
	}

	s.logger.Info("publish batch completed",
		"total", stats.Total,
		"published", stats.Published,
		"failed", stats.Failed,
		"skipped", stats.Skipped,
	)
	return stats, nil
}

// ProcessEntry обрабатывает одну выбранную запись.
// Никогда не паникует: любая ошибка превращается в Outcome.
func (s *Service) ProcessEntry(ctx context.Context, entry *domain.PublishPoolEntry) (out *Outcome) {
	out = &Outcome{EntryID: entry.ID, ContentID: entry.ContentID}

	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("panic while publishing entry",
				"entry_id", entry.ID,
				"panic", r,
				"stack", string(debug.Stack()),
			)
			out.Result = ResultFailed
			out.Error = fmt.Sprintf("internal error: %v", r)
			s.recordFailure(ctx, entry.ID, out.Error)
		}
		metrics.IncPublishAttempt(out.Result)
	}()

	if entry.RetriesExhausted() {
		s.markExhausted(ctx, entry)
		out.Result = ResultFailed
		out.Error = "max retries exceeded"
		return out
	}

	return s.publish(ctx, entry.ID, false)
}

// PublishEntry публикует запись по ID с учётом scheduled_at.
func (s *Service) PublishEntry(ctx context.Context, entryID int64) (*Outcome, error) {
	return s.publishByID(ctx, entryID, false)
}

// PublishNow публикует запись немедленно, игнорируя scheduled_at.
func (s *Service) PublishNow(ctx context.Context, entryID int64) (*Outcome, error) {
	return s.publishByID(ctx, entryID, true)
}

func (s *Service) publishByID(ctx context.Context, entryID int64, force bool) (*Outcome, error) {
	entry, err := s.store.GetPoolEntry(ctx, entryID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("%w: %d", ErrEntryNotFound, entryID)
		}
		return nil, fmt.Errorf("get pool entry: %w", err)
	}
	if entry.Status != domain.PoolStatusPending {
		return nil, fmt.Errorf("%w: entry %d is %s", ErrNotPending, entry.ID, entry.Status)
	}
	if !force && !entry.IsEligible(s.now()) {
		return &Outcome{EntryID: entry.ID, ContentID: entry.ContentID, Result: ResultSkipped, Error: "scheduled for later"}, nil
	}
	if entry.RetriesExhausted() {
		s.markExhausted(ctx, entry)
		return &Outcome{EntryID: entry.ID, ContentID: entry.ContentID, Result: ResultFailed, Error: "max retries exceeded"}, nil
	}

	out := s.publish(ctx, entry.ID, force)
	metrics.IncPublishAttempt(out.Result)
	return out, nil
}

// publish захватывает запись, вызывает API и фиксирует результат.
func (s *Service) publish(ctx context.Context, entryID int64, force bool) *Outcome {
	now := s.now()

	entry, err := s.store.ClaimPoolEntry(ctx, entryID, now)
	if err != nil {
		out := &Outcome{EntryID: entryID, Result: ResultSkipped}
		if errors.Is(err, store.ErrConflict) {
			out.Error = "entry already claimed"
		} else {
			out.Error = err.Error()
		}
		s.logger.Warn("pool entry not claimed", "entry_id", entryID, "error", out.Error)
		return out
	}
	out := &Outcome{EntryID: entry.ID, ContentID: entry.ContentID}

	content, err := s.store.GetContent(ctx, entry.ContentID)
	if err != nil {
		return s.fail(ctx, entry, nil, out, fmt.Sprintf("load content: %v", err))
	}

	resp, err := s.publisher.Publish(ctx, publishapi.Request{
		ContentID: content.ID,
		AccountID: content.AccountID,
		Title:     content.Title,
		Content:   content.Body,
		Summary:   content.Summary,
		Options:   map[string]any{"manual": force},
	})
	if err != nil {
		return s.fail(ctx, entry, content, out, err.Error())
	}

	now = s.now()
	entry.MarkPublished(now, resp.ExternalID())
	if err := s.store.UpdatePoolEntry(ctx, entry); err != nil {
		s.logger.Error("failed to save published entry", "entry_id", entry.ID, "error", err)
	}

	content.PublishStatus = domain.PublishStatusPublished
	content.ExternalID = resp.ExternalID()
	content.PublishedAt = &now
	if err := s.store.UpdateContent(ctx, content); err != nil {
		s.logger.Error("failed to save published content", "content_id", content.ID, "error", err)
	}

	if s.notifier != nil {
		s.notifier.NotifyPublished(ctx, entry, content)
	}

	s.logger.Info("content published",
		"entry_id", entry.ID,
		"content_id", content.ID,
		"external_id", entry.ExternalID,
	)
	out.Result = ResultPublished
	out.ExternalID = entry.ExternalID
	return out
}

// fail фиксирует неудачную попытку. content может быть nil.
func (s *Service) fail(ctx context.Context, entry *domain.PublishPoolEntry, content *domain.Content, out *Outcome, msg string) *Outcome {
	rescheduled := entry.MarkFailed(s.now(), msg)
	if err := s.store.UpdatePoolEntry(ctx, entry); err != nil {
		s.logger.Error("failed to save failed entry", "entry_id", entry.ID, "error", err)
	}

	if !rescheduled && content != nil {
		content.PublishStatus = domain.PublishStatusFailed
		if err := s.store.UpdateContent(ctx, content); err != nil {
			s.logger.Error("failed to save content", "content_id", content.ID, "error", err)
		}
	}

	s.logger.Warn("publish attempt failed",
		"entry_id", entry.ID,
		"retry_count", entry.RetryCount,
		"max_retries", entry.MaxRetries,
		"rescheduled", rescheduled,
		"error", msg,
	)

	out.Error = msg
	if rescheduled {
		out.Result = ResultRescheduled
	} else {
		out.Result = ResultFailed
	}
	return out
}

// recordFailure перечитывает запись и фиксирует ошибку после паники.
func (s *Service) recordFailure(ctx context.Context, entryID int64, msg string) {
	entry, err := s.store.GetPoolEntry(ctx, entryID)
	if err != nil || entry.Status != domain.PoolStatusPublishing {
		return
	}
	entry.MarkFailed(s.now(), msg)
	if err := s.store.UpdatePoolEntry(ctx, entry); err != nil {
		s.logger.Error("failed to save entry after panic", "entry_id", entryID, "error", err)
	}
}

// markExhausted переводит запись с исчерпанными попытками в failed без вызова API.
func (s *Service) markExhausted(ctx context.Context, entry *domain.PublishPoolEntry) {
	s.logger.Warn("pool entry exceeded max retries, skipping",
		"entry_id", entry.ID,
		"retry_count", entry.RetryCount,
		"max_retries", entry.MaxRetries,
	)
	entry.Status = domain.PoolStatusFailed
	if entry.LastError == "" {
		entry.LastError = "max retries exceeded"
	}
	entry.UpdatedAt = s.now()
	if err := s.store.UpdatePoolEntry(ctx, entry); err != nil {
		s.logger.Error("failed to save exhausted entry", "entry_id", entry.ID, "error", err)
	}
}
