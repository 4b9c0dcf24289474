package cli

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/roach88/hashview/internal/session"
)

// SessionResult is the output of session new and session show.
type SessionResult struct {
	ID                  string                     `json:"id"`
	CreationTime        time.Time                  `json:"creation_time"`
	LastAccessedTime    time.Time                  `json:"last_accessed_time"`
	MaxInactiveInterval string                     `json:"max_inactive_interval"`
	Attributes          map[string]json.RawMessage `json:"attributes"`
}

func newSessionResult(s *session.Session) SessionResult {
	return SessionResult{
		ID:                  s.ID(),
		CreationTime:        s.CreationTime().UTC(),
		LastAccessedTime:    s.LastAccessedTime().UTC(),
		MaxInactiveInterval: s.MaxInactiveInterval().String(),
		Attributes:          s.Attributes(),
	}
}

func (r SessionResult) Text() string {
	var b strings.Builder
	fmt.Fprintf(&b, "id:            %s\n", r.ID)
	fmt.Fprintf(&b, "created:       %s\n", r.CreationTime.Format(time.RFC3339))
	fmt.Fprintf(&b, "last accessed: %s\n", r.LastAccessedTime.Format(time.RFC3339))
	fmt.Fprintf(&b, "max inactive:  %s\n", r.MaxInactiveInterval)

	names := make([]string, 0, len(r.Attributes))
	for name := range r.Attributes {
		names = append(names, name)
	}
	if len(names) == 0 {
		b.WriteString("attributes:    (none)\n")
		return b.String()
	}
	b.WriteString("attributes:\n")
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(&b, "  %s = %s\n", name, r.Attributes[name])
	}
	return b.String()
}

// IncrementResult is the output of session increment.
type IncrementResult struct {
	ID string `json:"id"`
	session.Counter
}

func (r IncrementResult) Text() string {
	return fmt.Sprintf("increment:   %d\nupdatedDate: %s\n", r.Increment, r.UpdatedDate)
}

// DeleteSessionResult is the output of session delete.
type DeleteSessionResult struct {
	ID string `json:"id"`
}

func (r DeleteSessionResult) Text() string {
	return fmt.Sprintf("deleted session %s\n", r.ID)
}

// NewSessionCommand creates the session command group.
func NewSessionCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Manage sessions stored as hash records",
		Long: `Create, load and update sessions.

Sessions are loaded through the whitelist: attributes whose field
(sessionAttr:<name>) is not whitelisted are never read back.`,
		Args: usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cmd.AddCommand(newSessionNewCommand(opts))
	cmd.AddCommand(newSessionShowCommand(opts))
	cmd.AddCommand(newSessionIncrementCommand(opts))
	cmd.AddCommand(newSessionDeleteCommand(opts))

	return cmd
}

func newSessionNewCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "new",
		Short:         "Create and save an empty session",
		Args:          usageArgs(cobra.NoArgs),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(opts, cmd, func(a *app) error {
				repo := a.sessions()
				s := repo.New()
				if err := repo.Save(cmd.Context(), s); err != nil {
					return WrapExitError(ExitFailure, "failed to save session", err)
				}
				return a.out.Success(newSessionResult(s))
			})
		},
	}
}

func newSessionShowCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "show <id>",
		Short:         "Load a session",
		Args:          usageArgs(cobra.ExactArgs(1)),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(opts, cmd, func(a *app) error {
				s, err := a.sessions().FindByID(cmd.Context(), args[0])
				if err != nil {
					return WrapExitError(ExitFailure, "failed to load session", err)
				}
				return a.out.Success(newSessionResult(s))
			})
		},
	}
}

func newSessionIncrementCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "increment <id>",
		Short: "Bump a session's counter",
		Long: `Load a session, bump its increment attribute, stamp updatedDate and
write a fresh uuid attribute, then save it.

With the default whitelist the uuid attribute is written on every call
but never read back.`,
		Args:          usageArgs(cobra.ExactArgs(1)),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(opts, cmd, func(a *app) error {
				repo := a.sessions()
				s, err := repo.FindByID(cmd.Context(), args[0])
				if err != nil {
					return WrapExitError(ExitFailure, "failed to load session", err)
				}

				var prev string
				if ok, _ := s.Attribute(session.UUIDAttr, &prev); ok {
					a.logger.Info("Session uuid", zap.String("id", s.ID()), zap.String("uuid", prev))
				} else {
					a.logger.Info("Session uuid not loaded", zap.String("id", s.ID()))
				}

				now := time.Now()
				c, err := session.Increment(s, now)
				if err != nil {
					return WrapExitError(ExitFailure, "failed to increment", err)
				}
				s.SetLastAccessedTime(now)
				if err := repo.Save(cmd.Context(), s); err != nil {
					return WrapExitError(ExitFailure, "failed to save session", err)
				}
				return a.out.Success(IncrementResult{ID: s.ID(), Counter: c})
			})
		},
	}
}

func newSessionDeleteCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "delete <id>",
		Short:         "Delete a session",
		Args:          usageArgs(cobra.ExactArgs(1)),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(opts, cmd, func(a *app) error {
				if err := a.sessions().Delete(cmd.Context(), args[0]); err != nil {
					return WrapExitError(ExitFailure, "failed to delete session", err)
				}
				return a.out.Success(DeleteSessionResult{ID: args[0]})
			})
		},
	}
}
