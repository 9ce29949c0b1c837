package tutor

import (
	"context"
	"fmt"
	"net/http"

	"github.com/prepod-ai/tutor/pkg/core/types"
)

// StartStudy creates a study session and returns the welcome message.
func (c *Client) StartStudy(ctx context.Context, req *types.StudyStartRequest) (*types.StudyResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	var out types.StudyResponse
	if err := c.doJSON(ctx, http.MethodPost, "/study/start", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SendStudyMessage sends one student message and returns the teacher reply.
// It is never retried automatically; a duplicate send would duplicate the
// turn server-side.
func (c *Client) SendStudyMessage(ctx context.Context, req *types.StudyMessageRequest) (*types.StudyResponse, error) {
	var out types.StudyResponse
	if err := c.doJSON(ctx, http.MethodPost, "/study/message", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// StudyMessages fetches the canonical ordered transcript. As an idempotent
// read it retries with bounded backoff.
func (c *Client) StudyMessages(ctx context.Context, sessionID int64) ([]types.StudyMessageResponse, error) {
	var out []types.StudyMessageResponse
	path := fmt.Sprintf("/study/%d/messages", sessionID)
	err := c.doIdempotent(ctx, func(ctx context.Context) error {
		return c.doJSON(ctx, http.MethodGet, path, nil, &out)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
