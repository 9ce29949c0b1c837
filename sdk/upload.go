package tutor

import (
	"context"

	"github.com/prepod-ai/tutor/pkg/core"
	"github.com/prepod-ai/tutor/pkg/core/types"
)

// UploadAudio pushes a binary clip to remote storage and returns the stable
// reference used for playback and answer submission.
func (c *Client) UploadAudio(ctx context.Context, filename string, data []byte) (string, error) {
	if len(data) == 0 {
		return "", core.NewValidationError("audio clip is empty")
	}
	var out types.UploadResponse
	if err := c.doMultipart(ctx, "/upload", nil, "file", filename, data, &out); err != nil {
		return "", err
	}
	if out.URL == "" {
		return "", core.NewAPIError("upload returned no artifact reference")
	}
	return out.URL, nil
}
