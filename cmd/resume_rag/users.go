package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/mail"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"

	"github.com/jonathan/resume-rag/internal/server"
	"github.com/jonathan/resume-rag/internal/types"
)

var usersCmd = &cobra.Command{
	Use:   "users",
	Short: "Manage user accounts",
}

var usersCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a user account",
	Long:  "Creates an account. Values not given as flags are asked for interactively.",
	RunE:  runUsersCreate,
}

var (
	userName     string
	userEmail    string
	userPassword string
	userRole     string
)

func init() {
	usersCreateCmd.Flags().StringVar(&userName, "name", "", "display name")
	usersCreateCmd.Flags().StringVar(&userEmail, "email", "", "login email")
	usersCreateCmd.Flags().StringVar(&userPassword, "password", "", "password (prompted when empty)")
	usersCreateCmd.Flags().StringVar(&userRole, "role", "", "recruiter or viewer (prompted when empty)")

	usersCmd.AddCommand(usersCreateCmd)
	rootCmd.AddCommand(usersCmd)
}

func runUsersCreate(cmd *cobra.Command, _ []string) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	if cfg.DatabaseURL == "" {
		return errors.New("DATABASE_URL is required, accounts in memory would be lost on exit")
	}

	req := &types.CreateUserRequest{
		Name:     userName,
		Email:    userEmail,
		Password: userPassword,
		Role:     types.Role(userRole),
	}
	if err := fillUserRequest(req, terminalPrompter{}); err != nil {
		return err
	}

	a, err := newApplication(cmd.Context(), cfg, log)
	if err != nil {
		return fmt.Errorf("failed to initialize: %w", err)
	}
	defer a.Close()

	return createUser(cmd.Context(), a.userService(), req, cmd.OutOrStdout())
}

// prompter asks for missing account fields.
type prompter interface {
	Ask(label string, mask bool, validate func(string) error) (string, error)
	Choose(label string, items []string) (string, error)
}

// fillUserRequest prompts for every empty field of req.
func fillUserRequest(req *types.CreateUserRequest, p prompter) error {
	var err error
	if req.Name == "" {
		if req.Name, err = p.Ask("Name", false, notEmpty); err != nil {
			return err
		}
	}
	if req.Email == "" {
		if req.Email, err = p.Ask("Email", false, validEmail); err != nil {
			return err
		}
	}
	if req.Password == "" {
		if req.Password, err = p.Ask("Password", true, validPassword); err != nil {
			return err
		}
	}
	if req.Role == "" {
		role, err := p.Choose("Role", []string{string(types.RoleRecruiter), string(types.RoleViewer)})
		if err != nil {
			return err
		}
		req.Role = types.Role(role)
	}
	return nil
}

func createUser(ctx context.Context, svc *server.UserService, req *types.CreateUserRequest, out io.Writer) error {
	user, err := svc.Register(ctx, req)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	_, _ = fmt.Fprintf(out, "Created %s %s <%s>\n", user.Role, user.ID, user.Email)
	return nil
}

func notEmpty(s string) error {
	if s == "" {
		return errors.New("value is required")
	}
	return nil
}

func validEmail(s string) error {
	if _, err := mail.ParseAddress(s); err != nil {
		return errors.New("invalid email address")
	}
	return nil
}

func validPassword(s string) error {
	if len(s) < 8 {
		return errors.New("password must be at least 8 characters")
	}
	return nil
}

// terminalPrompter asks on the terminal.
type terminalPrompter struct{}

func (terminalPrompter) Ask(label string, mask bool, validate func(string) error) (string, error) {
	p := promptui.Prompt{Label: label, Validate: validate}
	if mask {
		p.Mask = '*'
	}
	return p.Run()
}

func (terminalPrompter) Choose(label string, items []string) (string, error) {
	s := promptui.Select{Label: label, Items: items}
	_, selected, err := s.Run()
	return selected, err
}
