package tutor

import (
	"context"
	"fmt"
	"net/http"

	"github.com/prepod-ai/tutor/pkg/core/types"
)

// StartExam creates a voice exam session and returns its first question.
func (c *Client) StartExam(ctx context.Context, req *types.ExamStartRequest) (*types.QuestionResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	var out types.QuestionResponse
	if err := c.doJSON(ctx, http.MethodPost, "/exam/start", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SubmitAnswer submits an uploaded answer artifact for grading.
func (c *Client) SubmitAnswer(ctx context.Context, req *types.AnswerRequest) (*types.AnswerResponse, error) {
	var out types.AnswerResponse
	if err := c.doJSON(ctx, http.MethodPost, "/exam/answer", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ExamStatus fetches read-only session telemetry. As an idempotent read it
// retries with bounded backoff.
func (c *Client) ExamStatus(ctx context.Context, sessionID int64) (*types.ExamStatusResponse, error) {
	var out types.ExamStatusResponse
	path := fmt.Sprintf("/exam/%d/status", sessionID)
	err := c.doIdempotent(ctx, func(ctx context.Context) error {
		return c.doJSON(ctx, http.MethodGet, path, nil, &out)
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}
