package rest

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"regexp"
	"strings"

	"food-diary/internal/domain"
)

const (
	defaultMaxUpload = 3 << 20
	multipartMemory  = 4 << 20

	msgFileTooLarge = "파일 크기는 3MB를 초과할 수 없습니다."
	msgFileType     = "Validation failed (expected type is /(jpg|jpeg|png)$/)"
)

var allowedExt = regexp.MustCompile(`(?i)\.(jpg|jpeg|png)$`)

func parseMultipart(r *http.Request) error {
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return err
		}
		return domain.ClientInput("", "request must be multipart/form-data")
	}
	return nil
}

// readImage читает файл из поля field. Отсутствие файла возвращает nil.
func (h *Handler) readImage(r *http.Request, field string) (*domain.Image, error) {
	file, header, err := r.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		return nil, domain.ClientInput(domain.CodeInvalidImage, "cannot read uploaded file")
	}
	defer file.Close()
	return h.validateImage(file, header)
}

func (h *Handler) validateImage(file multipart.File, header *multipart.FileHeader) (*domain.Image, error) {
	if header.Size > h.maxUpload {
		return nil, domain.ClientInput(domain.CodeValidationFailed, msgFileTooLarge)
	}
	if !allowedExt.MatchString(header.Filename) {
		return nil, domain.ClientInput(domain.CodeValidationFailed, msgFileType)
	}
	data, err := io.ReadAll(io.LimitReader(file, h.maxUpload+1))
	if err != nil {
		return nil, domain.ClientInput(domain.CodeInvalidImage, "cannot read uploaded file")
	}
	if int64(len(data)) > h.maxUpload {
		return nil, domain.ClientInput(domain.CodeValidationFailed, msgFileTooLarge)
	}
	contentType := header.Header.Get("Content-Type")
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = contentTypeByExt(header.Filename)
	}
	return &domain.Image{
		Data:        data,
		Size:        int64(len(data)),
		Filename:    filepath.Base(header.Filename),
		ContentType: contentType,
	}, nil
}

func contentTypeByExt(name string) string {
	if strings.EqualFold(filepath.Ext(name), ".png") {
		return "image/png"
	}
	return "image/jpeg"
}
