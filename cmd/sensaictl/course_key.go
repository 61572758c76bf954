package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/sensai/sensai-backend/internal/repository"
	"github.com/sensai/sensai-backend/internal/secret"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func setCourseKeyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "set-course-key",
		Short: "Seal and store a course's own LLM API key",
		RunE:  runSetCourseKey,
	}
	f := cmd.Flags()
	f.Int64("course-id", 0, "Course ID (required)")
	f.Bool("clear", false, "Remove the course key so the server default is used")
	f.String("secret-key", "", "Hex sealing key (default from SECRET_KEY)")
	_ = cmd.MarkFlagRequired("course-id")
	return cmd
}

func runSetCourseKey(cmd *cobra.Command, _ []string) error {
	v := viperForCmd(cmd)
	courseID := v.GetInt64("course-id")
	if courseID <= 0 {
		return errors.New("course-id must be positive")
	}

	e, err := connect(cmd.Context(), cmd, false)
	if err != nil {
		return err
	}
	defer e.Close()

	repo := repository.NewCourseRepository(e.pool)
	if _, err := repo.GetByID(cmd.Context(), courseID); err != nil {
		return fmt.Errorf("course %d: %w", courseID, err)
	}

	if v.GetBool("clear") {
		if err := repo.SetLLMKey(cmd.Context(), courseID, nil); err != nil {
			return fmt.Errorf("clear key: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Cleared LLM key of course %d\n", courseID)
		return nil
	}

	sealer, err := secret.NewSealer(e.cfg.SecretKey)
	if err != nil {
		return fmt.Errorf("secret key: %w", err)
	}

	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return errors.New("stdin is not a terminal")
	}
	fmt.Fprint(cmd.ErrOrStderr(), "API key: ")
	apiKey, err := term.ReadPassword(fd)
	fmt.Fprintln(cmd.ErrOrStderr())
	if err != nil {
		return fmt.Errorf("read key: %w", err)
	}
	if len(apiKey) == 0 {
		return errors.New("API key is empty")
	}

	sealed, err := sealer.Seal(apiKey, secret.CourseAAD(courseID))
	if err != nil {
		return fmt.Errorf("seal key: %w", err)
	}
	if err := repo.SetLLMKey(cmd.Context(), courseID, sealed); err != nil {
		return fmt.Errorf("store key: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Stored LLM key of course %d\n", courseID)
	return nil
}
