package routes

import (
	"fmt"
	"io"
	"mime/multipart"
	"strings"

	"github.com/cellannotation/cas/pkg/loader"
	"github.com/cellannotation/cas/pkg/loader/csv"
	"github.com/cellannotation/cas/pkg/obs"

	"github.com/labstack/echo/v4"
)

// maxUploadSize bounds a single uploaded table.
const maxUploadSize = 256 << 20

type tableForm struct {
	Labelsets   string `form:"labelsets" validate:"required"`
	IndexColumn string `form:"index"`
}

type upload struct {
	header    *multipart.FileHeader
	labelsets []string
	index     string
}

// parseLabelsets splits a comma separated labelset list, dropping blanks.
func parseLabelsets(raw string) []string {
	var out []string
	for _, name := range strings.Split(raw, ",") {
		if name = strings.TrimSpace(name); name != "" {
			out = append(out, name)
		}
	}
	return out
}

// readUpload binds the table form and the uploaded file.
func readUpload(c echo.Context, form *tableForm) (*upload, error) {
	if err := c.Bind(form); err != nil {
		return nil, err
	}
	if err := c.Validate(form); err != nil {
		return nil, err
	}

	labelsets := parseLabelsets(form.Labelsets)
	if len(labelsets) == 0 {
		return nil, fmt.Errorf("no labelsets given")
	}

	header, err := c.FormFile("file")
	if err != nil {
		return nil, err
	}
	if header.Size > maxUploadSize {
		return nil, fmt.Errorf("file %s exceeds %d bytes", header.Filename, maxUploadSize)
	}

	return &upload{
		header:    header,
		labelsets: labelsets,
		index:     strings.TrimSpace(form.IndexColumn),
	}, nil
}

func (u *upload) table() (*obs.Table, error) {
	src, err := u.header.Open()
	if err != nil {
		return nil, err
	}
	defer src.Close()

	content, err := io.ReadAll(src)
	if err != nil {
		return nil, err
	}

	delimiter := csv.Delimiter(loader.FormatFromPath(u.header.Filename), content)
	return csv.ParseTable(content, delimiter, u.index)
}
