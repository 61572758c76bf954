package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sensai/sensai-backend/internal/model"
	"github.com/sensai/sensai-backend/internal/repository"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/term"
)

const minPasswordLength = 8

func createUserCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create-user",
		Short: "Create an instructor or student account",
		RunE:  runCreateUser,
	}
	f := cmd.Flags()
	f.String("name", "", "Display name (required)")
	f.String("email", "", "Login email (required)")
	f.String("role", string(model.RoleInstructor), "Account role (instructor, student)")
	f.Bool("password-stdin", false, "Read the password from stdin instead of prompting")

	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func runCreateUser(cmd *cobra.Command, _ []string) error {
	v := viperForCmd(cmd)

	role, err := parseRole(v.GetString("role"))
	if err != nil {
		return err
	}
	name := strings.TrimSpace(v.GetString("name"))
	email := strings.ToLower(strings.TrimSpace(v.GetString("email")))
	if name == "" || email == "" {
		return errors.New("name and email are required")
	}

	var password string
	if v.GetBool("password-stdin") {
		password, err = readPasswordLine(cmd.InOrStdin())
	} else {
		password, err = promptPassword(cmd.ErrOrStderr())
	}
	if err != nil {
		return err
	}
	if len(password) < minPasswordLength {
		return fmt.Errorf("password must be at least %d characters", minPasswordLength)
	}

	e, err := connect(cmd.Context(), cmd, false)
	if err != nil {
		return err
	}
	defer e.Close()

	hash, err := bcrypt.GenerateFromPassword([]byte(password), e.cfg.BcryptCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	user := &model.User{Name: name, Email: email, PasswordHash: string(hash), Role: role}
	if err := repository.NewUserRepository(e.pool).Create(cmd.Context(), user); err != nil {
		return fmt.Errorf("create user: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Created %s %q (id %d)\n", user.Role, user.Email, user.ID)
	return nil
}

func parseRole(raw string) (model.Role, error) {
	switch role := model.Role(strings.ToLower(strings.TrimSpace(raw))); role {
	case model.RoleInstructor, model.RoleStudent:
		return role, nil
	default:
		return "", fmt.Errorf("unknown role %q (want instructor or student)", raw)
	}
}

func promptPassword(w io.Writer) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", errors.New("stdin is not a terminal, use --password-stdin")
	}

	fmt.Fprint(w, "Password: ")
	first, err := term.ReadPassword(fd)
	fmt.Fprintln(w)
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}

	fmt.Fprint(w, "Confirm password: ")
	second, err := term.ReadPassword(fd)
	fmt.Fprintln(w)
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}

	if string(first) != string(second) {
		return "", errors.New("passwords do not match")
	}
	return string(first), nil
}

func readPasswordLine(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}
