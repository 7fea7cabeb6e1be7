package httpapi

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"visionassist/eyewear/internal/service"
	"visionassist/eyewear/internal/session"
)

// Distance 当前距离、提交的等级和暂停状态
func (h *Handler) Distance(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.controller.Status())
}

// Capture 预览帧
func (h *Handler) Capture(w http.ResponseWriter, r *http.Request) {
	frame, err := h.controller.Frame(r.Context())
	if err != nil {
		h.logger.Warn("Preview capture failed", zap.Error(err))
		writeText(w, http.StatusInternalServerError, "Capture failed")
		return
	}
	w.Header().Set("Content-Type", "image/jpeg")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(frame)
}

// OCR 手动采集识别，返回显示文本
func (h *Handler) OCR(w http.ResponseWriter, r *http.Request) {
	result, err := h.controller.RequestCapture(r.Context())
	switch {
	case errors.Is(err, session.ErrCaptureInFlight), errors.Is(err, session.ErrReading):
		writeText(w, http.StatusConflict, err.Error())
		return
	case err != nil:
		h.writeLoopError(w, err)
		return
	}

	if result.Outcome == session.OutcomeCaptureError {
		writeText(w, http.StatusInternalServerError, "Capture failed")
		return
	}
	writeText(w, http.StatusOK, result.Text)
}

// OCRStatus 查询新文本（新文本标志只返回一次 true）
func (h *Handler) OCRStatus(w http.ResponseWriter, r *http.Request) {
	status, err := h.controller.TextStatus(r.Context())
	if err != nil {
		h.writeLoopError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

// OCRAck 确认收到新文本
func (h *Handler) OCRAck(w http.ResponseWriter, r *http.Request) {
	if err := h.controller.AckText(r.Context()); err != nil {
		h.writeLoopError(w, err)
		return
	}
	writeText(w, http.StatusOK, "OK")
}

// GetOCRText 最后一次识别文本
func (h *Handler) GetOCRText(w http.ResponseWriter, r *http.Request) {
	text, err := h.controller.LastText(r.Context())
	if err != nil {
		h.writeLoopError(w, err)
		return
	}
	writeText(w, http.StatusOK, text)
}

// TTSDone 朗读结束，恢复导航
func (h *Handler) TTSDone(w http.ResponseWriter, r *http.Request) {
	err := h.controller.NarrationDone(r.Context())
	switch {
	case errors.Is(err, session.ErrCaptureInFlight):
		writeText(w, http.StatusConflict, err.Error())
		return
	case err != nil:
		h.writeLoopError(w, err)
		return
	}
	writeText(w, http.StatusOK, "OK")
}

// Readings 最近的识别历史
func (h *Handler) Readings(w http.ResponseWriter, r *http.Request) {
	if h.readings == nil {
		writeJSON(w, http.StatusNotFound, map[string]any{"error": "reading history disabled"})
		return
	}

	limit := parseInt(r.URL.Query().Get("limit"), 20)
	readings, err := h.readings.ListRecent(r.Context(), limit)
	if err != nil {
		h.logger.Error("Failed to list readings", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "failed to list readings"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": readings, "total": len(readings)})
}

// writeLoopError 请求未能进入控制循环（循环已停止或客户端已断开）
func (h *Handler) writeLoopError(w http.ResponseWriter, err error) {
	if !errors.Is(err, service.ErrStopped) {
		h.logger.Warn("UI request aborted", zap.Error(err))
	}
	writeText(w, http.StatusServiceUnavailable, err.Error())
}
