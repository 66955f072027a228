package convert

import (
	"errors"
	"fmt"
)

// Phase 表示错误发生在哪个转换阶段。
type Phase string

const (
	PhaseInput      Phase = "input"
	PhaseExtraction Phase = "extraction"
	PhaseRender     Phase = "render"
)

// 错误码。
const (
	CodeNoFile        = "INPUT_001"
	CodeEmptyFilename = "INPUT_002"
	CodeUnreadable    = "INPUT_003"
	CodeExtract       = "EXTRACT_001"
	CodeNoText        = "EXTRACT_002"
	CodeInvalid       = "EXTRACT_003"
	CodeLayout        = "RENDER_001"
	CodeRender        = "RENDER_002"
	CodePanic         = "RENDER_003"
)

// Error 为带阶段标记的转换错误，调用方用 errors.As 区分提取与渲染问题。
type Error struct {
	Phase   Phase
	Code    string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Detail 返回展示给用户的信息：有 Cause 时取 Cause。
func (e *Error) Detail() string {
	if e.Cause != nil {
		return e.Cause.Error()
	}
	return e.Message
}

// NewError 构造 Error，cause 可选。
func NewError(phase Phase, code, message string, cause ...error) *Error {
	var c error
	if len(cause) > 0 {
		c = cause[0]
	}
	return &Error{Phase: phase, Code: code, Message: message, Cause: c}
}

// PhaseOf 返回 err 的阶段；非转换错误时返回 ""。
func PhaseOf(err error) Phase {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Phase
	}
	return ""
}
