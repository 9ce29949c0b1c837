package tutor

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/prepod-ai/tutor/pkg/core"
	"github.com/prepod-ai/tutor/pkg/core/types"
)

func TestStartExam_DecodesQuestion(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/exam/start" {
			t.Errorf("path = %s, want /exam/start", r.URL.Path)
		}
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		var req types.ExamStartRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.TeacherName != "Anna" {
			t.Errorf("teacher_name = %q", req.TeacherName)
		}
		json.NewEncoder(w).Encode(types.QuestionResponse{
			ExamSessionID:    42,
			QuestionID:       7,
			QuestionText:     "What is mitosis?",
			QuestionAudioURL: "https://cdn.example/q7.mp3",
		})
	}))
	defer server.Close()

	c := NewClient(server.URL)
	q, err := c.StartExam(context.Background(), &types.ExamStartRequest{
		TeacherName:        "Anna",
		Subject:            "Biology",
		TeacherDescription: "strict",
	})
	if err != nil {
		t.Fatalf("StartExam: %v", err)
	}
	if q.ExamSessionID != 42 || q.QuestionID != 7 {
		t.Errorf("question = %+v", q)
	}
}

func TestStartExam_ValidatesBeforeRequest(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	defer server.Close()

	c := NewClient(server.URL)
	_, err := c.StartExam(context.Background(), &types.ExamStartRequest{Subject: "Math"})
	var coreErr *core.Error
	if !errors.As(err, &coreErr) || coreErr.Type != core.ErrValidation {
		t.Fatalf("error = %v, want validation failure", err)
	}
	if hits.Load() != 0 {
		t.Error("invalid request reached the server")
	}
}

func TestDoJSON_DecodesErrorEnvelope(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		io.WriteString(w, `{"detail":"exam session not found"}`)
	}))
	defer server.Close()

	c := NewClient(server.URL)
	_, err := c.ExamStatus(context.Background(), 99)
	var coreErr *core.Error
	if !errors.As(err, &coreErr) {
		t.Fatalf("error type = %T", err)
	}
	if coreErr.Type != core.ErrNotFound {
		t.Errorf("Type = %v, want not found", coreErr.Type)
	}
	if coreErr.Message != "exam session not found" {
		t.Errorf("Message = %q", coreErr.Message)
	}
	if coreErr.Code != "404" {
		t.Errorf("Code = %q, want 404", coreErr.Code)
	}
}

func TestDoJSON_AttachesBearer(t *testing.T) {
	var got atomic.Value
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got.Store(r.Header.Get("Authorization"))
		json.NewEncoder(w).Encode(types.ExamStatusResponse{Status: "in_progress"})
	}))
	defer server.Close()

	c := NewClient(server.URL)
	c.Tokens().SetToken(types.Token{AccessToken: "abc123", TokenType: "bearer"})
	if _, err := c.ExamStatus(context.Background(), 1); err != nil {
		t.Fatalf("ExamStatus: %v", err)
	}
	if got.Load() != "Bearer abc123" {
		t.Errorf("Authorization = %q, want Bearer abc123", got.Load())
	}
}

func TestDoJSON_RefreshesOn401AndReplays(t *testing.T) {
	var statusHits, refreshHits atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/exam/1/status", func(w http.ResponseWriter, r *http.Request) {
		if statusHits.Add(1) == 1 {
			w.WriteHeader(http.StatusUnauthorized)
			io.WriteString(w, `{"detail":"token expired"}`)
			return
		}
		if r.Header.Get("Authorization") != "Bearer renewed" {
			t.Errorf("replay Authorization = %q", r.Header.Get("Authorization"))
		}
		json.NewEncoder(w).Encode(types.ExamStatusResponse{Status: "in_progress"})
	})
	mux.HandleFunc("/refresh", func(w http.ResponseWriter, r *http.Request) {
		refreshHits.Add(1)
		cookie, err := r.Cookie("refresh_token")
		if err != nil || cookie.Value != "r1" {
			t.Errorf("refresh cookie = %v, %v", cookie, err)
		}
		json.NewEncoder(w).Encode(types.Token{AccessToken: "renewed", RefreshToken: "r2", TokenType: "bearer"})
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	c := NewClient(server.URL, WithRetries(0))
	c.Tokens().SetToken(types.Token{AccessToken: "stale", RefreshToken: "r1"})

	st, err := c.ExamStatus(context.Background(), 1)
	if err != nil {
		t.Fatalf("ExamStatus: %v", err)
	}
	if st.Status != "in_progress" {
		t.Errorf("Status = %q", st.Status)
	}
	if refreshHits.Load() != 1 {
		t.Errorf("refresh hits = %d, want 1", refreshHits.Load())
	}
	if statusHits.Load() != 2 {
		t.Errorf("status hits = %d, want 2", statusHits.Load())
	}
	if c.Tokens().AccessToken() != "renewed" {
		t.Errorf("stored access token = %q", c.Tokens().AccessToken())
	}
}

func TestDoJSON_SecondUnauthorizedClearsTokens(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/exam/1/status", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
	mux.HandleFunc("/refresh", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(types.Token{AccessToken: "still-bad", TokenType: "bearer"})
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	c := NewClient(server.URL, WithRetries(0))
	c.Tokens().SetToken(types.Token{AccessToken: "stale", RefreshToken: "r1"})

	_, err := c.ExamStatus(context.Background(), 1)
	var coreErr *core.Error
	if !errors.As(err, &coreErr) || coreErr.Type != core.ErrAuthentication {
		t.Fatalf("error = %v, want authentication failure", err)
	}
	if c.Tokens().AccessToken() != "" {
		t.Error("tokens should be cleared after a failed renewal cycle")
	}
}

func TestDoJSON_NoRefreshTokenFailsFast(t *testing.T) {
	var refreshHits atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/exam/1/status", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
	mux.HandleFunc("/refresh", func(w http.ResponseWriter, r *http.Request) {
		refreshHits.Add(1)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	c := NewClient(server.URL, WithRetries(0))
	_, err := c.ExamStatus(context.Background(), 1)
	var coreErr *core.Error
	if !errors.As(err, &coreErr) || coreErr.Type != core.ErrAuthentication {
		t.Fatalf("error = %v, want authentication failure", err)
	}
	if refreshHits.Load() != 0 {
		t.Error("renewal should not be attempted without a refresh token")
	}
}

func TestExamStatus_RetriesTransientFailures(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		json.NewEncoder(w).Encode(types.ExamStatusResponse{Status: "in_progress"})
	}))
	defer server.Close()

	c := NewClient(server.URL, WithRetries(2), WithRetryBackoff(1))
	st, err := c.ExamStatus(context.Background(), 1)
	if err != nil {
		t.Fatalf("ExamStatus: %v", err)
	}
	if st.Status != "in_progress" {
		t.Errorf("Status = %q", st.Status)
	}
	if hits.Load() != 3 {
		t.Errorf("hits = %d, want 3", hits.Load())
	}
}

func TestExamStatus_DoesNotRetryNotFound(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	c := NewClient(server.URL, WithRetries(3), WithRetryBackoff(1))
	if _, err := c.ExamStatus(context.Background(), 1); err == nil {
		t.Fatal("expected error")
	}
	if hits.Load() != 1 {
		t.Errorf("hits = %d, want 1 (404 is terminal)", hits.Load())
	}
}

func TestSubmitAnswer_IsNeverRetried(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	c := NewClient(server.URL, WithRetries(3), WithRetryBackoff(1))
	_, err := c.SubmitAnswer(context.Background(), &types.AnswerRequest{ExamSessionID: 1, QuestionID: 1, AnswerAudioURL: "u"})
	if err == nil {
		t.Fatal("expected error")
	}
	if hits.Load() != 1 {
		t.Errorf("hits = %d, want 1 (grading is not idempotent)", hits.Load())
	}
}

func TestUploadAudio_SendsMultipart(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/upload" {
			t.Errorf("path = %s, want /upload", r.URL.Path)
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			t.Fatalf("FormFile: %v", err)
		}
		defer file.Close()
		if header.Filename != "answer.wav" {
			t.Errorf("filename = %q", header.Filename)
		}
		data, _ := io.ReadAll(file)
		if string(data) != "fake pcm" {
			t.Errorf("file body = %q", data)
		}
		json.NewEncoder(w).Encode(types.UploadResponse{URL: "https://cdn.example/a.wav"})
	}))
	defer server.Close()

	c := NewClient(server.URL)
	url, err := c.UploadAudio(context.Background(), "answer.wav", []byte("fake pcm"))
	if err != nil {
		t.Fatalf("UploadAudio: %v", err)
	}
	if url != "https://cdn.example/a.wav" {
		t.Errorf("url = %q", url)
	}
}

func TestUploadAudio_RejectsEmptyClip(t *testing.T) {
	c := NewClient("http://localhost:1")
	_, err := c.UploadAudio(context.Background(), "a.wav", nil)
	var coreErr *core.Error
	if !errors.As(err, &coreErr) || coreErr.Type != core.ErrValidation {
		t.Fatalf("error = %v, want validation failure", err)
	}
}

func TestLogin_StoresToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/login" {
			t.Errorf("path = %s, want /login", r.URL.Path)
		}
		json.NewEncoder(w).Encode(types.Token{AccessToken: "a1", RefreshToken: "r1", TokenType: "bearer"})
	}))
	defer server.Close()

	c := NewClient(server.URL)
	token, err := c.Login(context.Background(), &types.LoginRequest{Email: "s@example.com", Password: "pw"})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if token.AccessToken != "a1" {
		t.Errorf("AccessToken = %q", token.AccessToken)
	}
	if c.Tokens().AccessToken() != "a1" || c.Tokens().RefreshToken() != "r1" {
		t.Error("login should store the credential pair")
	}
}

func TestLogout_ClearsTokensEvenOnError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	c := NewClient(server.URL)
	c.Tokens().SetToken(types.Token{AccessToken: "a1", RefreshToken: "r1"})
	if err := c.Logout(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	if c.Tokens().AccessToken() != "" {
		t.Error("local tokens should be cleared regardless of the server outcome")
	}
}

func TestEndpoint_JoinsPaths(t *testing.T) {
	cases := []struct {
		base string
		path string
		want string
	}{
		{"http://api.example.com", "/exam/start", "http://api.example.com/exam/start"},
		{"http://api.example.com/", "/exam/start", "http://api.example.com/exam/start"},
		{"http://api.example.com/v1", "/upload", "http://api.example.com/v1/upload"},
		{"http://api.example.com/v1/", "upload", "http://api.example.com/v1/upload"},
	}
	for _, tc := range cases {
		c := NewClient(tc.base)
		got, err := c.endpoint(tc.path)
		if err != nil {
			t.Errorf("endpoint(%q, %q): %v", tc.base, tc.path, err)
			continue
		}
		if got != tc.want {
			t.Errorf("endpoint(%q, %q) = %q, want %q", tc.base, tc.path, got, tc.want)
		}
	}
}

func TestEndpoint_RejectsBadBaseURLs(t *testing.T) {
	for _, base := range []string{"", "not a url", "http://user:pw@api.example.com"} {
		c := NewClient(base)
		if _, err := c.endpoint("/upload"); err == nil {
			t.Errorf("endpoint with base %q should fail", base)
		}
	}
}
