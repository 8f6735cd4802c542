package api

import (
	"io"
	"net/http"

	"github.com/oychao1988/content-hub-sub001/internal/result"
	"github.com/oychao1988/content-hub-sub001/internal/webhook"
)

// maxWebhookBody — ограничение размера тела webhook.
const maxWebhookBody = 4 << 20

// GenerationWebhook принимает событие генератора.
// POST /api/v1/webhooks/generation
//
// Повтор события для завершённой задачи отвечает 200 со skipped=true.
// Внутренняя ошибка обработки отвечает 200 с success=false: задача
// уже переведена в failed, и повторная доставка ничего не изменит.
func (h *Handler) GenerationWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		BadRequest(w, "failed to read request body")
		return
	}

	resp, err := h.webhook.HandleRaw(r.Context(), body, r.Header.Get(webhook.SignatureHeader), result.SourceWebhook)
	if HandleError(w, h.logger, err) {
		return
	}
	JSON(w, http.StatusOK, resp)
}
