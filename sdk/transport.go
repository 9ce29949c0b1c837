package tutor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"

	"github.com/prepod-ai/tutor/pkg/core"
	"github.com/prepod-ai/tutor/pkg/core/types"
)

// doJSON issues one JSON request with bearer attachment. On a 401 it renews
// the credential once via /refresh and replays the request; a second 401
// surfaces as an authentication error.
func (c *Client) doJSON(ctx context.Context, method, path string, payload, out any) error {
	var body []byte
	if payload != nil {
		var err error
		body, err = json.Marshal(payload)
		if err != nil {
			return core.NewValidationError("failed to marshal request body")
		}
	}
	return c.doWithReauth(ctx, method, path, func() (*http.Request, error) {
		var reader io.Reader
		if body != nil {
			reader = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, "", reader)
		if err != nil {
			return nil, err
		}
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		return req, nil
	}, out)
}

// doMultipart issues one multipart/form-data request with the same bearer
// and renewal handling as doJSON. file may be nil for form-only requests.
func (c *Client) doMultipart(ctx context.Context, path string, fields map[string]string, fileField, filename string, file []byte, out any) error {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	for key, value := range fields {
		if err := writer.WriteField(key, value); err != nil {
			return core.NewValidationError("failed to encode form field " + key)
		}
	}
	if file != nil {
		part, err := writer.CreateFormFile(fileField, filename)
		if err != nil {
			return core.NewValidationError("failed to encode form file")
		}
		if _, err := part.Write(file); err != nil {
			return core.NewValidationError("failed to encode form file")
		}
	}
	if err := writer.Close(); err != nil {
		return core.NewValidationError("failed to finalize form body")
	}
	body := buf.Bytes()
	contentType := writer.FormDataContentType()

	return c.doWithReauth(ctx, http.MethodPost, path, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, "", bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", contentType)
		return req, nil
	}, out)
}

func (c *Client) doWithReauth(ctx context.Context, method, path string, build func() (*http.Request, error), out any) error {
	ctx, cancel := c.withRequestTimeout(ctx)
	defer cancel()

	endpoint, err := c.endpoint(path)
	if err != nil {
		return err
	}

	send := func() (*http.Response, error) {
		req, err := build()
		if err != nil {
			return nil, &TransportError{Op: method, URL: endpoint, Err: err}
		}
		req = req.WithContext(ctx)
		parsed, err := url.Parse(endpoint)
		if err != nil {
			return nil, &TransportError{Op: method, URL: endpoint, Err: err}
		}
		req.URL = parsed
		req.Host = parsed.Host
		if token := c.tokens.AccessToken(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, &TransportError{Op: method, URL: endpoint, Err: err}
		}
		return resp, nil
	}

	resp, err := send()
	if err != nil {
		return err
	}

	if resp.StatusCode == http.StatusUnauthorized {
		drain(resp)
		if rerr := c.refreshToken(ctx); rerr != nil {
			return rerr
		}
		resp, err = send()
		if err != nil {
			return err
		}
		if resp.StatusCode == http.StatusUnauthorized {
			drain(resp)
			c.tokens.Clear()
			return core.NewAuthenticationError("credential renewal did not satisfy the server")
		}
	}

	return decodeResponse(resp, endpoint, method, out)
}

// refreshToken renews the bearer pair. The service reads the refresh token
// from a cookie.
func (c *Client) refreshToken(ctx context.Context) error {
	refresh := c.tokens.RefreshToken()
	if refresh == "" {
		c.tokens.Clear()
		return core.NewAuthenticationError("no refresh token available")
	}

	endpoint, err := c.endpoint("/refresh")
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, nil)
	if err != nil {
		return &TransportError{Op: http.MethodPost, URL: endpoint, Err: err}
	}
	req.AddCookie(&http.Cookie{Name: "refresh_token", Value: refresh})

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &TransportError{Op: http.MethodPost, URL: endpoint, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.tokens.Clear()
		return core.NewAuthenticationError("credential renewal rejected")
	}

	var token types.Token
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&token); err != nil {
		c.tokens.Clear()
		return core.NewAuthenticationError("credential renewal returned an unreadable token")
	}
	c.tokens.SetToken(token)
	c.logger.Debug("bearer credential renewed")
	return nil
}

func decodeResponse(resp *http.Response, endpoint, method string, out any) error {
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decodeErrorResponse(resp, endpoint, method)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<20))
		return nil
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return &TransportError{Op: method, URL: endpoint, Err: err}
	}
	if err := json.Unmarshal(body, out); err != nil {
		return core.NewAPIError("failed to decode service response")
	}
	return nil
}

func decodeErrorResponse(resp *http.Response, endpoint, method string) error {
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return &TransportError{Op: method, URL: endpoint, Err: err}
	}

	msg := ""
	var env types.ErrorResponse
	if err := json.Unmarshal(body, &env); err == nil {
		msg = strings.TrimSpace(env.Detail)
	}
	if msg == "" {
		msg = fmt.Sprintf("request failed with status %d", resp.StatusCode)
	}
	return &core.Error{
		Type:    inferErrorType(resp.StatusCode),
		Message: msg,
		Code:    fmt.Sprintf("%d", resp.StatusCode),
	}
}

func inferErrorType(statusCode int) core.ErrorType {
	switch statusCode {
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return core.ErrValidation
	case http.StatusUnauthorized, http.StatusForbidden:
		return core.ErrAuthentication
	case http.StatusNotFound:
		return core.ErrNotFound
	case http.StatusTooManyRequests:
		return core.ErrRateLimit
	default:
		return core.ErrAPI
	}
}

func (c *Client) endpoint(path string) (string, error) {
	rawBaseURL := strings.TrimSpace(c.baseURL)
	if rawBaseURL == "" {
		return "", core.NewValidationError("service base URL is not configured")
	}

	base, err := url.Parse(rawBaseURL)
	if err != nil || strings.TrimSpace(base.Scheme) == "" || strings.TrimSpace(base.Host) == "" {
		return "", core.NewValidationError("invalid service base URL")
	}
	if base.User != nil {
		return "", core.NewValidationError("service base URL must not include credentials")
	}

	base.RawQuery = ""
	base.Fragment = ""

	cleanPath := "/" + strings.TrimLeft(path, "/")
	basePath := strings.TrimSuffix(base.Path, "/")
	if basePath == "" || basePath == "/" {
		base.Path = cleanPath
	} else {
		base.Path = basePath + cleanPath
	}
	base.RawPath = ""

	return base.String(), nil
}

func (c *Client) withRequestTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		return context.WithTimeout(context.Background(), c.requestTimeout)
	}
	if _, hasDeadline := ctx.Deadline(); hasDeadline {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, c.requestTimeout)
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<20))
	resp.Body.Close()
}
