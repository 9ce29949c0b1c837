package types

import (
	"errors"
	"reflect"
	"testing"

	"github.com/prepod-ai/tutor/pkg/core"
)

func TestExamStartRequest_Validate(t *testing.T) {
	req := &ExamStartRequest{
		TeacherName:        "Anna Petrovna",
		Subject:            "Biology",
		TeacherDescription: "strict but fair",
	}
	if err := req.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestExamStartRequest_ValidateMissingFields(t *testing.T) {
	cases := []struct {
		name  string
		req   ExamStartRequest
		param string
	}{
		{"teacher name", ExamStartRequest{Subject: "Math", TeacherDescription: "d"}, "teacher_name"},
		{"subject", ExamStartRequest{TeacherName: "T", TeacherDescription: "d"}, "subject"},
		{"description", ExamStartRequest{TeacherName: "T", Subject: "Math"}, "teacher_description"},
		{"whitespace only", ExamStartRequest{TeacherName: "  ", Subject: "Math", TeacherDescription: "d"}, "teacher_name"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.req.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			var coreErr *core.Error
			if !errors.As(err, &coreErr) {
				t.Fatalf("error type = %T, want *core.Error", err)
			}
			if coreErr.Type != core.ErrValidation {
				t.Errorf("Type = %v, want %v", coreErr.Type, core.ErrValidation)
			}
			if coreErr.Param != tc.param {
				t.Errorf("Param = %q, want %q", coreErr.Param, tc.param)
			}
		})
	}
}

func TestStudyStartRequest_Validate(t *testing.T) {
	req := &StudyStartRequest{TeacherName: "T", Subject: "History"}
	err := req.Validate()
	if err == nil {
		t.Fatal("expected validation error for missing description")
	}
	req.TeacherDescription = "kind"
	if err := req.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestTrimMaterials(t *testing.T) {
	got := TrimMaterials([]string{"chapter 1", "", "  ", "chapter 2"})
	want := []string{"chapter 1", "chapter 2"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("TrimMaterials = %v, want %v", got, want)
	}
}
