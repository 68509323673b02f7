package shared

import (
	"errors"
	"mime/multipart"
	"net/http"

	"hrms/internal/apperr"
)

const multipartMemory = 1 << 20

// FormFile returns the file part named field. The whole body may exceed
// maxBytes by the room needed for the other form fields.
func FormFile(w http.ResponseWriter, r *http.Request, field string, maxBytes int64) (multipart.File, *multipart.FileHeader, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes+multipartMemory)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return nil, nil, apperr.New(apperr.KindValidation, "payload_too_large", "upload exceeds the size limit")
		}
		return nil, nil, apperr.Wrap(apperr.KindValidation, "invalid_payload", "expected a multipart form", err)
	}
	file, header, err := r.FormFile(field)
	if err != nil {
		return nil, nil, apperr.Validation(field, "is required")
	}
	return file, header, nil
}
