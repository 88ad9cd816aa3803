package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"trivia-quiz/internal/domain"
)

// NewLoginCmd records the local player.
func NewLoginCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "login <username>",
		Short: "Log in as username",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := loadRuntime(cmd.Context(), *configPath)
			if err != nil {
				return err
			}
			defer rt.Close()

			if err := rt.auth.Login(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "logged in as %s\n", rt.auth.User().Username)
			return nil
		},
	}
}

// NewLogoutCmd clears the login record. The quiz session is kept.
func NewLogoutCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Log out",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := loadRuntime(cmd.Context(), *configPath)
			if err != nil {
				return err
			}
			defer rt.Close()

			if err := rt.auth.Logout(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "logged out")
			return nil
		},
	}
}

// NewStatusCmd prints the login and the persisted session.
func NewStatusCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show login and quiz session state",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := loadRuntime(cmd.Context(), *configPath)
			if err != nil {
				return err
			}
			defer rt.Close()

			out := cmd.OutOrStdout()
			if user := rt.auth.User(); user.IsLoggedIn {
				fmt.Fprintf(out, "user:     %s\n", user.Username)
			} else {
				fmt.Fprintln(out, "user:     (logged out)")
			}

			session := rt.quizStore(cmd.Context()).Snapshot()
			fmt.Fprintf(out, "session:  %s\n", session.State())
			switch session.State() {
			case domain.StateActive:
				fmt.Fprintf(out, "question: %d of %d\n", session.CurrentIndex+1, len(session.Questions))
				fmt.Fprintf(out, "score:    %d\n", session.Score)
				fmt.Fprintf(out, "time:     %s\n", domain.FormatClock(session.TimeRemaining))
			case domain.StateFinished:
				printSummary(out, domain.Summarize(session))
			}
			return nil
		},
	}
}

// NewResetCmd discards the persisted quiz session.
func NewResetCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Discard the current quiz session",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := loadRuntime(cmd.Context(), *configPath)
			if err != nil {
				return err
			}
			defer rt.Close()

			if err := rt.quizStore(cmd.Context()).ResetQuiz(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "quiz session reset")
			return nil
		},
	}
}
