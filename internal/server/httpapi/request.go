package httpapi

import (
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"strings"

	"github.com/dmitrijs2005/tutorhub/internal/common"
	"github.com/gofiber/fiber/v3"
)

// bind decodes the request body into out.
func bind(c fiber.Ctx, out any) error {
	if err := c.Bind().Body(out); err != nil {
		return fmt.Errorf("%w: malformed request body", common.ErrInvalidInput)
	}
	return nil
}

// upload is a file read from a multipart form.
type upload struct {
	Name        string
	ContentType string
	Data        []byte
}

// formFile reads the named file part; a missing part yields nil.
func formFile(form *multipart.Form, field string) (*upload, error) {
	headers := form.File[field]
	if len(headers) == 0 {
		return nil, nil
	}
	fh := headers[0]
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", field, err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", field, err)
	}
	return &upload{Name: fh.Filename, ContentType: fh.Header.Get(fiber.HeaderContentType), Data: data}, nil
}

func formValue(form *multipart.Form, field string) string {
	if v := form.Value[field]; len(v) > 0 {
		return strings.TrimSpace(v[0])
	}
	return ""
}

// formList accepts either repeated fields or a single JSON array.
func formList(form *multipart.Form, field string) ([]string, error) {
	values := form.Value[field]
	if len(values) == 0 {
		values = form.Value[field+"[]"]
	}
	if len(values) == 1 && strings.HasPrefix(strings.TrimSpace(values[0]), "[") {
		var out []string
		if err := json.Unmarshal([]byte(values[0]), &out); err != nil {
			return nil, fmt.Errorf("%w: %s must be a JSON array of strings", common.ErrInvalidInput, field)
		}
		return out, nil
	}
	return values, nil
}
