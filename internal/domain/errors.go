package domain

import (
	"errors"
	"fmt"
)

// Виды ошибок. Сравнивать через errors.Is.
var (
	ErrClientInput      = errors.New("client input error")
	ErrNotFound         = errors.New("not found")
	ErrForbidden        = errors.New("forbidden")
	ErrNormalization    = errors.New("image normalization failed")
	ErrAnalysisProvider = errors.New("analysis provider failed")
	ErrStorage          = errors.New("storage failed")
	ErrConfiguration    = errors.New("configuration error")
)

// Коды ошибок, которые видит клиент.
const (
	CodeValidationFailed     = "VALIDATION_FAILED"
	CodeInvalidImage         = "INVALID_IMAGE"
	CodeNotFound             = "NOT_FOUND"
	CodeDiaryNotFound        = "DIARY_NOT_FOUND"
	CodeAuthorizationFailed  = "AUTHORIZATION_FAILED"
	CodeAuthenticationFailed = "AUTHENTICATION_FAILED"
	CodeNormalizationFailed  = "NORMALIZATION_FAILED"
	CodeAnalysisFailed       = "ANALYSIS_FAILED"
	CodeStorageFailed        = "STORAGE_FAILED"
	CodeConfigurationInvalid = "CONFIGURATION_INVALID"
	CodeInternal             = "INTERNAL_ERROR"
)

// Error типизированная ошибка приложения.
type Error struct {
	Kind    error
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap отдаёт и вид ошибки, и исходную причину.
func (e *Error) Unwrap() []error {
	out := []error{e.Kind}
	if e.Err != nil {
		out = append(out, e.Err)
	}
	return out
}

// ClientInput некорректные данные запроса.
func ClientInput(code, message string) *Error {
	if code == "" {
		code = CodeValidationFailed
	}
	return &Error{Kind: ErrClientInput, Code: code, Message: message}
}

// NotFound ресурс не найден.
func NotFound(resource, id string) *Error {
	code := CodeNotFound
	if resource == "diary" {
		code = CodeDiaryNotFound
	}
	return &Error{Kind: ErrNotFound, Code: code, Message: fmt.Sprintf("%s not found with id %s", resource, id)}
}

// Forbidden у вызывающего нет прав на ресурс.
func Forbidden(message string) *Error {
	return &Error{Kind: ErrForbidden, Code: CodeAuthorizationFailed, Message: message}
}

// Normalization изображение не удалось декодировать или перекодировать.
func Normalization(err error) *Error {
	return &Error{Kind: ErrNormalization, Code: CodeNormalizationFailed, Message: "image cannot be processed", Err: err}
}

// AnalysisFailed сбой провайдера анализа.
func AnalysisFailed(message string, err error) *Error {
	return &Error{Kind: ErrAnalysisProvider, Code: CodeAnalysisFailed, Message: message, Err: err}
}

// StorageFailed сбой файлового хранилища.
func StorageFailed(op string, err error) *Error {
	return &Error{Kind: ErrStorage, Code: CodeStorageFailed, Message: "storage " + op + " failed", Err: err}
}

// Configuration отсутствуют обязательные настройки.
func Configuration(message string) *Error {
	return &Error{Kind: ErrConfiguration, Code: CodeConfigurationInvalid, Message: message}
}

// IsTyped сообщает, что в цепочке есть *Error.
func IsTyped(err error) bool {
	var appErr *Error
	return errors.As(err, &appErr)
}

// CodeOf возвращает код ошибки для клиента.
func CodeOf(err error) string {
	var appErr *Error
	if errors.As(err, &appErr) && appErr.Code != "" {
		return appErr.Code
	}
	return CodeInternal
}

// MessageOf возвращает сообщение без технических подробностей причины.
func MessageOf(err error) string {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return "internal server error"
}
