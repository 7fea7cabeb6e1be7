package session

import (
	"errors"
	"fmt"

	"visionassist/eyewear/internal/ocr"
)

// Outcome 一次采集识别的结果类别
type Outcome string

const (
	OutcomeText             Outcome = "text"
	OutcomeNoText           Outcome = "no_text"
	OutcomeRecognitionError Outcome = "recognition_error"
	OutcomeCaptureError     Outcome = "capture_error"
)

// 界面显示用的结果标记
const (
	NoTextDetected    = "No text detected"
	NoTextYet         = "No text detected yet"
	CaptureFailedText = "Error: Camera capture failed"
)

// Classify 将采集和识别结果归类，并生成给界面显示的文本
// 过短的文本视为没有可朗读的内容
func Classify(text string, captureErr, recognizeErr error, minTextLength int) (Outcome, string) {
	if captureErr != nil {
		return OutcomeCaptureError, CaptureFailedText
	}
	if recognizeErr != nil {
		var httpErr *ocr.HTTPError
		if errors.As(recognizeErr, &httpErr) {
			return OutcomeRecognitionError, fmt.Sprintf("API Error: %d", httpErr.StatusCode)
		}
		return OutcomeRecognitionError, "Error: " + recognizeErr.Error()
	}
	if text == "" {
		return OutcomeNoText, NoTextDetected
	}
	if len([]rune(text)) < minTextLength {
		return OutcomeNoText, text
	}
	return OutcomeText, text
}
