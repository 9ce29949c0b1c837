package types

import (
	"strings"

	"github.com/prepod-ai/tutor/pkg/core"
)

func validateStartFields(teacherName, subject, teacherDescription string) error {
	if strings.TrimSpace(teacherName) == "" {
		return core.NewValidationErrorWithParam("teacher name is required", "teacher_name")
	}
	if strings.TrimSpace(subject) == "" {
		return core.NewValidationErrorWithParam("subject is required", "subject")
	}
	if strings.TrimSpace(teacherDescription) == "" {
		return core.NewValidationErrorWithParam("teacher description is required", "teacher_description")
	}
	return nil
}
