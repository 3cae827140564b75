package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/teemow/plannr/internal/instrumentation"
	"github.com/teemow/plannr/internal/store"
)

func newUsersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "Manage user records",
	}
	cmd.AddCommand(newUsersCreateCmd())
	cmd.AddCommand(newUsersRemoveCmd())
	return cmd
}

func newUsersCreateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "create <email>",
		Short: "Create an empty user record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUserAction(cmd, instrumentation.ActionUserCreate, args[0])
		},
	}
}

func newUsersRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <email>",
		Short: "Remove a user record and its stored credentials",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUserAction(cmd, instrumentation.ActionUserRemove, args[0])
		},
	}
}

func runUserAction(cmd *cobra.Command, action, email string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}

	st, err := openStore(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}
	defer st.Close()

	audit := instrumentation.NewAuditLogger(logger, instrumentation.AuditConfig{
		Enabled:    cfg.Audit.Enabled,
		IncludePII: cfg.Audit.IncludePII,
	})
	event := instrumentation.NewAccountEvent(action, email)

	switch action {
	case instrumentation.ActionUserCreate:
		err = st.CreateUser(cmd.Context(), email)
	case instrumentation.ActionUserRemove:
		err = st.RemoveUser(cmd.Context(), email)
	default:
		err = fmt.Errorf("unknown user action %q", action)
	}
	audit.Log(event.Complete(err))

	switch {
	case errors.Is(err, store.ErrAlreadyExists):
		return fmt.Errorf("user %s already exists", email)
	case errors.Is(err, store.ErrNotFound):
		return fmt.Errorf("user %s not found", email)
	case err != nil:
		return err
	}

	verb := "created"
	if action == instrumentation.ActionUserRemove {
		verb = "removed"
	}
	fmt.Fprintf(cmd.OutOrStdout(), "user %s %s\n", email, verb)
	return nil
}
