// Package types defines the wire contract of the tutor service.
//
// All payloads are snake_case JSON as served by the backend; the client does
// not reshape them beyond decoding.
package types

import "strings"

// ExamStartRequest starts a voice exam session.
type ExamStartRequest struct {
	TeacherName        string   `json:"teacher_name"`
	Subject            string   `json:"subject"`
	TeacherDescription string   `json:"teacher_description"`
	Materials          []string `json:"materials,omitempty"`
}

// Validate reports the first missing required field.
func (r *ExamStartRequest) Validate() error {
	return validateStartFields(r.TeacherName, r.Subject, r.TeacherDescription)
}

// QuestionResponse is one exam question issued by the server.
type QuestionResponse struct {
	ExamSessionID    int64  `json:"exam_session_id"`
	QuestionID       int64  `json:"question_id"`
	QuestionText     string `json:"question_text"`
	QuestionAudioURL string `json:"question_audio_url"`
	QuestionIndex    int    `json:"question_index"`
	IsFollowUp       bool   `json:"is_follow_up"`
}

// AnswerRequest submits an uploaded answer artifact for grading.
type AnswerRequest struct {
	ExamSessionID  int64  `json:"exam_session_id"`
	QuestionID     int64  `json:"question_id"`
	AnswerAudioURL string `json:"answer_audio_url"`
}

// AnswerResponse carries the grading verdict and, unless the exam completed,
// the next question.
type AnswerResponse struct {
	ExamSessionID int64             `json:"exam_session_id"`
	AnswerID      int64             `json:"answer_id"`
	IsCorrect     bool              `json:"is_correct"`
	AIFeedback    string            `json:"ai_feedback"`
	TeacherMood   string            `json:"teacher_mood"`
	NextQuestion  *QuestionResponse `json:"next_question,omitempty"`
	ExamCompleted bool              `json:"exam_completed"`
}

// ExamStatusResponse is read-only session telemetry.
type ExamStatusResponse struct {
	ExamSessionID        int64  `json:"exam_session_id"`
	Status               string `json:"status"`
	TeacherMood          string `json:"teacher_mood"`
	CurrentQuestionIndex int    `json:"current_question_index"`
	QuestionsCount       int    `json:"questions_count"`
	CreatedAt            string `json:"created_at"`
}

// StudyStartRequest starts a free-form study session.
type StudyStartRequest struct {
	TeacherName        string   `json:"teacher_name"`
	Subject            string   `json:"subject"`
	TeacherDescription string   `json:"teacher_description"`
	Materials          []string `json:"materials,omitempty"`
}

// Validate reports the first missing required field.
func (r *StudyStartRequest) Validate() error {
	return validateStartFields(r.TeacherName, r.Subject, r.TeacherDescription)
}

// StudyResponse is returned by both study start and study message calls. On
// start, TeacherResponse is the welcome message.
type StudyResponse struct {
	StudySessionID  int64  `json:"study_session_id"`
	TeacherResponse string `json:"teacher_response"`
}

// StudyMessageRequest sends one student message.
type StudyMessageRequest struct {
	StudySessionID int64  `json:"study_session_id"`
	Message        string `json:"message"`
}

// StudyMessageResponse is one entry of the server-held canonical transcript.
type StudyMessageResponse struct {
	StudySessionID int64  `json:"study_session_id"`
	MessageID      int64  `json:"message_id"`
	MessageText    string `json:"message_text"`
	IsFromStudent  bool   `json:"is_from_student"`
	CreatedAt      string `json:"created_at"`
}

// UploadResponse is returned by the binary artifact upload endpoint.
type UploadResponse struct {
	URL string `json:"url"`
}

// Token is the bearer credential pair issued by login and refresh.
type Token struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	TokenType    string `json:"token_type"`
}

// LoginRequest authenticates a student.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RegisterRequest creates a student account.
type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// PDFUploadResponse reports an ingested study material.
type PDFUploadResponse struct {
	Subject     string   `json:"subject"`
	DocumentIDs []string `json:"document_ids"`
	PagesCount  int      `json:"pages_count"`
	ChunksCount int      `json:"chunks_count"`
	Message     string   `json:"message"`
}

// ErrorResponse is the server's error envelope.
type ErrorResponse struct {
	Detail string `json:"detail"`
}

// TrimMaterials drops blank material entries, preserving order.
func TrimMaterials(materials []string) []string {
	out := make([]string, 0, len(materials))
	for _, m := range materials {
		if strings.TrimSpace(m) != "" {
			out = append(out, m)
		}
	}
	return out
}
