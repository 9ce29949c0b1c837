package tutor

import (
	"context"

	"github.com/prepod-ai/tutor/pkg/core"
	"github.com/prepod-ai/tutor/pkg/core/types"
)

// UploadPDF ingests a PDF document as study material for a subject.
func (c *Client) UploadPDF(ctx context.Context, subject, filename string, data []byte) (*types.PDFUploadResponse, error) {
	if len(data) == 0 {
		return nil, core.NewValidationError("document is empty")
	}
	var out types.PDFUploadResponse
	fields := map[string]string{"subject": subject}
	if err := c.doMultipart(ctx, "/materials/upload-pdf", fields, "file", filename, data, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UploadPDFFromURL ingests a PDF study material fetched server-side.
func (c *Client) UploadPDFFromURL(ctx context.Context, subject, pdfURL string) (*types.PDFUploadResponse, error) {
	if pdfURL == "" {
		return nil, core.NewValidationError("pdf url is required")
	}
	var out types.PDFUploadResponse
	fields := map[string]string{"subject": subject, "pdf_url": pdfURL}
	if err := c.doMultipart(ctx, "/materials/upload-pdf-from-url", fields, "", "", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
