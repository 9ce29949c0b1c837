package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/prepod-ai/tutor/pkg/core/activity"
	"github.com/prepod-ai/tutor/pkg/core/exam"
	"github.com/prepod-ai/tutor/pkg/core/study"
	"github.com/prepod-ai/tutor/pkg/core/transcript"
	"github.com/prepod-ai/tutor/pkg/core/types"
	tutor "github.com/prepod-ai/tutor/sdk"
)

// console serializes event output so callback goroutines do not interleave
// lines with the prompt loop.
type console struct {
	mu  sync.Mutex
	out io.Writer
}

func (c *console) printf(format string, args ...any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.out, format, args...)
}

func (c *console) activity(s activity.State) {
	c.printf("[teacher: %s]\n", s)
}

func (c *console) transcript(ts []transcript.Turn) {
	if len(ts) == 0 {
		return
	}
	c.turn(ts[len(ts)-1])
}

func (c *console) turn(t transcript.Turn) {
	speaker := "teacher"
	if t.FromStudent {
		speaker = "you"
	}
	suffix := ""
	switch t.Delivery {
	case transcript.Pending:
		suffix = " (sending)"
	case transcript.Failed:
		suffix = " (failed)"
	}
	if t.Kind == transcript.KindFeedback && t.Mood != "" {
		suffix += " [" + t.Mood + "]"
	}
	c.printf("%s: %s%s\n", speaker, t.Text, suffix)
}

func (c *console) err(err error) {
	c.printf("!! %v\n", err)
}

func runExam(ctx context.Context, client *tutor.Client, logger *slog.Logger, ui *console, scanner *bufio.Scanner, form sessionForm) error {
	mic, player := newMicAndPlayer(client, logger)

	done := make(chan struct{})
	var once sync.Once

	orc := exam.New(client, client, mic, player,
		exam.WithLogger(logger),
		exam.WithEvents(exam.Events{
			OnActivity:   ui.activity,
			OnTranscript: ui.transcript,
			OnError:      ui.err,
			OnRecordTick: func(sec int) { ui.printf("[recording %ds]\n", sec) },
			OnCompleted: func() {
				ui.printf("exam finished\n")
				once.Do(func() { close(done) })
			},
		}),
	)
	defer orc.Close()

	req := &types.ExamStartRequest{
		TeacherName:        form.TeacherName,
		Subject:            form.Subject,
		TeacherDescription: form.TeacherDescription,
		Materials:          form.Materials,
	}
	if err := orc.Start(ctx, req); err != nil {
		return err
	}

	ui.printf("commands: record, stop, cancel, pause, quit\n")
	for {
		select {
		case <-done:
			return nil
		default:
		}
		line, ok := prompt(scanner, ui.out, "exam> ")
		if !ok {
			return nil
		}
		switch strings.TrimSpace(line) {
		case "record":
			if err := orc.Record(); err != nil {
				ui.err(err)
			}
		case "stop":
			if err := orc.StopAndSubmit(); err != nil {
				ui.err(err)
			}
		case "cancel":
			orc.CancelRecording()
		case "pause":
			orc.PausePlayback()
		case "quit", "exit", "q":
			return nil
		case "":
		default:
			ui.printf("unknown command\n")
		}
	}
}

func runStudy(ctx context.Context, client *tutor.Client, logger *slog.Logger, ui *console, scanner *bufio.Scanner, form sessionForm) error {
	orc := study.New(client,
		study.WithLogger(logger),
		study.WithEvents(study.Events{
			OnActivity:   ui.activity,
			OnTranscript: ui.transcript,
			OnError:      ui.err,
		}),
	)
	defer orc.Close()

	req := &types.StudyStartRequest{
		TeacherName:        form.TeacherName,
		Subject:            form.Subject,
		TeacherDescription: form.TeacherDescription,
		Materials:          form.Materials,
	}
	if err := orc.Start(ctx, req); err != nil {
		return err
	}

	ui.printf("type a message, or /quit to leave\n")
	for {
		line, ok := prompt(scanner, ui.out, "study> ")
		if !ok {
			return nil
		}
		trimmed := strings.TrimSpace(line)
		if trimmed == "/quit" || trimmed == "/exit" {
			return nil
		}
		if trimmed == "" {
			continue
		}
		if err := orc.Send(line); err != nil {
			ui.err(err)
		}
	}
}
