package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"visionassist/eyewear/internal/repository"
	"visionassist/eyewear/internal/service"
	"visionassist/eyewear/internal/session"
)

// Controller 界面可调用的控制循环操作
type Controller interface {
	Status() service.Status
	RequestCapture(ctx context.Context) (session.Result, error)
	TextStatus(ctx context.Context) (service.TextStatus, error)
	AckText(ctx context.Context) error
	LastText(ctx context.Context) (string, error)
	NarrationDone(ctx context.Context) error
	Frame(ctx context.Context) ([]byte, error)
}

// ReadingLister 识别历史查询
type ReadingLister interface {
	ListRecent(ctx context.Context, limit int) ([]repository.Reading, error)
}

// Handler 眼镜端界面 API
type Handler struct {
	controller Controller
	readings   ReadingLister
	statusPush time.Duration
	logger     *zap.Logger
}

// NewHandler 创建界面 API；readings 为 nil 时 /readings 返回 404
func NewHandler(controller Controller, readings ReadingLister, statusPush time.Duration, logger *zap.Logger) *Handler {
	return &Handler{
		controller: controller,
		readings:   readings,
		statusPush: statusPush,
		logger:     logger,
	}
}

// NewRouter 注册路由
func NewRouter(h *Handler) *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeText(w, http.StatusOK, "OK")
	}).Methods("GET")
	r.HandleFunc("/distance", h.Distance).Methods("GET")
	r.HandleFunc("/capture", h.Capture).Methods("GET")
	r.HandleFunc("/ocr", h.OCR).Methods("GET", "POST")
	r.HandleFunc("/ocr_status", h.OCRStatus).Methods("GET")
	r.HandleFunc("/ocr_ack", h.OCRAck).Methods("GET", "POST")
	r.HandleFunc("/getOcrText", h.GetOCRText).Methods("GET")
	r.HandleFunc("/tts_done", h.TTSDone).Methods("GET", "POST")
	r.HandleFunc("/readings", h.Readings).Methods("GET")
	r.HandleFunc("/ws/status", h.StatusSocket).Methods("GET")
	return r
}
