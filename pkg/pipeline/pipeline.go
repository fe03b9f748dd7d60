package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"github.com/relatorhq/relator/pkg/types"
)

// Invoker runs one pipeline invocation for a session. The return value is
// the process exit status: 0 means success, anything else is a failed
// attempt. err is reserved for failures to start the process at all.
type Invoker interface {
	Invoke(ctx context.Context, session types.Session, outputDocName string) (int, error)
}

// ExecInvoker invokes the pipeline as a subprocess with the session's full
// parameter set.
type ExecInvoker struct {
	// Command is the pipeline executable and fixed leading arguments
	Command []string
	// BaseURL is forwarded to the pipeline's --base-url flag when set
	BaseURL string
	// Dir is the working directory for the subprocess (empty = inherit)
	Dir string
	// Output receives the subprocess stdout and stderr (nil = os.Stdout/Stderr)
	Output io.Writer
}

// NewExecInvoker creates an invoker for the given pipeline command
func NewExecInvoker(command []string) *ExecInvoker {
	return &ExecInvoker{Command: command}
}

// Invoke implements Invoker
func (e *ExecInvoker) Invoke(ctx context.Context, session types.Session, outputDocName string) (int, error) {
	if len(e.Command) == 0 {
		return 0, fmt.Errorf("pipeline command not configured")
	}

	args := append(e.Command[1:len(e.Command):len(e.Command)], buildArgs(session, outputDocName, e.BaseURL)...)
	cmd := exec.CommandContext(ctx, e.Command[0], args...)
	cmd.Dir = e.Dir
	if e.Output != nil {
		cmd.Stdout = e.Output
		cmd.Stderr = e.Output
	} else {
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr
	}

	err := cmd.Run()
	if err == nil {
		return 0, nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode(), nil
	}
	return 0, fmt.Errorf("failed to start pipeline: %w", err)
}

// buildArgs composes the pipeline flag vector from a session definition
func buildArgs(s types.Session, outputDocName, baseURL string) []string {
	args := []string{
		"--headless", strconv.FormatBool(s.Headless),
		"--sessao", s.ID,
		"--de", s.DateFrom,
		"--ate", s.DateTo,
		"--download-dir", s.DownloadDir,
		"--output-dir", s.OutputDir,
	}
	if baseURL != "" {
		args = append(args, "--base-url", baseURL)
	}
	if s.HeaderTemplate != "" {
		args = append(args, "--header-template", s.HeaderTemplate)
	}
	if outputDocName != "" {
		args = append(args, "--nome-docx", outputDocName)
	}
	if s.Meta.Number != "" {
		args = append(args, "--meta-numero", s.Meta.Number)
	}
	if s.Meta.Type != "" {
		args = append(args, "--meta-tipo", s.Meta.Type)
	}
	if s.Format != "" {
		args = append(args, "--meta-formato", string(s.Format))
	}
	if s.Scope != "" {
		args = append(args, "--meta-competencia", string(s.Scope))
	}
	if s.Meta.OpeningDate != "" {
		args = append(args, "--meta-data-abertura", s.Meta.OpeningDate)
	}
	if s.Meta.ClosingDate != "" {
		args = append(args, "--meta-data-encerramento", s.Meta.ClosingDate)
	}
	if s.Meta.Time != "" {
		args = append(args, "--meta-horario", s.Meta.Time)
	}

	if s.Email.Send {
		args = append(args, "--send-email")
		if len(s.Email.Recipients) > 0 {
			args = append(args, "--email-to", strings.Join(s.Email.Recipients, ","))
		}
		if len(s.Email.CC) > 0 {
			args = append(args, "--email-cc", strings.Join(s.Email.CC, ","))
		}
		if len(s.Email.BCC) > 0 {
			args = append(args, "--email-bcc", strings.Join(s.Email.BCC, ","))
		}
		if s.Email.Subject != "" {
			args = append(args, "--email-subject", s.Email.Subject)
		}
		if s.Email.Body != "" {
			args = append(args, "--email-body", s.Email.Body)
		}
		if s.Email.Account != "" {
			args = append(args, "--email-account", s.Email.Account)
		}
		if s.Email.Verbose {
			args = append(args, "--email-verbose")
		}
		if s.Email.ForceSync {
			args = append(args, "--email-force-sync")
		}
	}

	return args
}
