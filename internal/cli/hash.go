package cli

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/hashview/internal/hashstore"
)

// HSetResult is the output of hset.
type HSetResult struct {
	Key    string `json:"key"`
	Fields int    `json:"fields"`
}

func (r HSetResult) Text() string {
	return fmt.Sprintf("set %d field(s) on %s\n", r.Fields, r.Key)
}

// HGetResult is the output of hget.
type HGetResult struct {
	Key   string `json:"key"`
	Field string `json:"field"`
	Value string `json:"value"`
}

func (r HGetResult) Text() string {
	return r.Value + "\n"
}

// EntriesResult is the output of hgetall.
type EntriesResult struct {
	Key       string            `json:"key"`
	Selective bool              `json:"selective"`
	Entries   map[string]string `json:"entries"`
}

func (r EntriesResult) Text() string {
	if len(r.Entries) == 0 {
		return "(empty)\n"
	}
	fields := make([]string, 0, len(r.Entries))
	for f := range r.Entries {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	var b strings.Builder
	for _, f := range fields {
		fmt.Fprintf(&b, "%s=%s\n", f, r.Entries[f])
	}
	return b.String()
}

// HDelResult is the output of hdel.
type HDelResult struct {
	Key     string `json:"key"`
	Removed int64  `json:"removed"`
}

func (r HDelResult) Text() string {
	return fmt.Sprintf("removed %d field(s) from %s\n", r.Removed, r.Key)
}

// KeysResult is the output of keys.
type KeysResult struct {
	Pattern string   `json:"pattern"`
	Keys    []string `json:"keys"`
}

func (r KeysResult) Text() string {
	return lines(r.Keys)
}

// ExpireResult is the output of expire.
type ExpireResult struct {
	Key     string `json:"key"`
	TTL     string `json:"ttl"`
	Deleted bool   `json:"deleted"`
}

func (r ExpireResult) Text() string {
	if r.Deleted {
		return fmt.Sprintf("deleted %s\n", r.Key)
	}
	return fmt.Sprintf("%s expires in %s\n", r.Key, r.TTL)
}

// TTLResult is the output of ttl. Milliseconds is -1 without an expiry.
type TTLResult struct {
	Key          string `json:"key"`
	TTL          string `json:"ttl"`
	Milliseconds int64  `json:"milliseconds"`
}

func (r TTLResult) Text() string {
	return r.TTL + "\n"
}

// WhitelistResult is the output of whitelist.
type WhitelistResult struct {
	Fields []string `json:"fields"`
}

func (r WhitelistResult) Text() string {
	return lines(r.Fields)
}

func lines(items []string) string {
	if len(items) == 0 {
		return "(empty)\n"
	}
	return strings.Join(items, "\n") + "\n"
}

// NewHSetCommand creates the hset command.
func NewHSetCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "hset <key> <field>=<value>...",
		Short: "Set fields on a record",
		Long: `Set one or more fields on a record, creating it if needed.

Fields outside the whitelist are stored too; they are only hidden from
bulk reads.

Examples:
  hashview hset user:1 name=ada sessionAttr:increment=3`,
		Args:          usageArgs(cobra.MinimumNArgs(2)),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			fields, err := parseAssignments(args[1:])
			if err != nil {
				return WrapExitError(ExitCommandError, "invalid field assignment", err)
			}
			return withApp(opts, cmd, func(a *app) error {
				if err := a.view.Hash(args[0]).SetAll(cmd.Context(), fields); err != nil {
					return WrapExitError(ExitFailure, "hset failed", err)
				}
				return a.out.Success(HSetResult{Key: args[0], Fields: len(fields)})
			})
		},
	}
}

// parseAssignments parses field=value arguments. A later assignment to the
// same field wins.
func parseAssignments(args []string) (map[string][]byte, error) {
	fields := make(map[string][]byte, len(args))
	for _, arg := range args {
		field, value, ok := strings.Cut(arg, "=")
		if !ok || field == "" {
			return nil, fmt.Errorf("expected <field>=<value>, got %q", arg)
		}
		fields[field] = []byte(value)
	}
	return fields, nil
}

// NewHGetCommand creates the hget command.
func NewHGetCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "hget <key> <field>",
		Short:         "Get one field of a record",
		Args:          usageArgs(cobra.ExactArgs(2)),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(opts, cmd, func(a *app) error {
				v, err := a.view.Hash(args[0]).Get(cmd.Context(), args[1])
				if err != nil {
					return WrapExitError(ExitFailure, "hget failed", err)
				}
				return a.out.Success(HGetResult{Key: args[0], Field: args[1], Value: string(v)})
			})
		},
	}
}

// NewHGetAllCommand creates the hgetall command.
func NewHGetAllCommand(opts *RootOptions) *cobra.Command {
	var raw bool

	cmd := &cobra.Command{
		Use:   "hgetall <key>",
		Short: "Read a record through the whitelist",
		Long: `Read every whitelisted field of a record in one multi-get.

Fields that are not whitelisted, or not set, are left out. Use --raw to
bypass the whitelist and read every field.

Examples:
  hashview hgetall hashview:sessions:42
  hashview hgetall hashview:sessions:42 --raw --format json`,
		Args:          usageArgs(cobra.ExactArgs(1)),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(opts, cmd, func(a *app) error {
				store := a.raw
				if !raw {
					store = a.view
				}
				entries, err := store.Hash(args[0]).Entries(cmd.Context())
				if err != nil {
					return WrapExitError(ExitFailure, "hgetall failed", err)
				}

				out := make(map[string]string, len(entries))
				for f, v := range entries {
					out[f] = string(v)
				}
				return a.out.Success(EntriesResult{Key: args[0], Selective: !raw, Entries: out})
			})
		},
	}

	cmd.Flags().BoolVar(&raw, "raw", false, "read every field, ignoring the whitelist")

	return cmd
}

// NewHDelCommand creates the hdel command.
func NewHDelCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "hdel <key> <field>...",
		Short:         "Delete fields from a record",
		Args:          usageArgs(cobra.MinimumNArgs(2)),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(opts, cmd, func(a *app) error {
				n, err := a.view.Hash(args[0]).Delete(cmd.Context(), args[1:]...)
				if err != nil {
					return WrapExitError(ExitFailure, "hdel failed", err)
				}
				return a.out.Success(HDelResult{Key: args[0], Removed: n})
			})
		},
	}
}

// NewKeysCommand creates the keys command.
func NewKeysCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "keys [pattern]",
		Short: "List keys matching a glob pattern",
		Long: `List live keys matching a glob pattern, sorted.

Patterns support *, ?, [abc], [^a-z] and \ escapes. The default is *.`,
		Args:          usageArgs(cobra.MaximumNArgs(1)),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			pattern := "*"
			if len(args) == 1 {
				pattern = args[0]
			}
			return withApp(opts, cmd, func(a *app) error {
				keys, err := a.view.Keys(cmd.Context(), pattern)
				if err != nil {
					return WrapExitError(ExitFailure, "keys failed", err)
				}
				if keys == nil {
					keys = []string{}
				}
				return a.out.Success(KeysResult{Pattern: pattern, Keys: keys})
			})
		},
	}
}

// NewExpireCommand creates the expire command.
func NewExpireCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "expire <key> <duration>",
		Short: "Set a record's time to live",
		Long: `Set a record's time to live. A zero or negative duration deletes it.

Examples:
  hashview expire user:1 90s`,
		Args:          usageArgs(cobra.ExactArgs(2)),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := time.ParseDuration(args[1])
			if err != nil {
				return WrapExitError(ExitCommandError, "invalid duration", err)
			}
			return withApp(opts, cmd, func(a *app) error {
				ok, err := a.view.Expire(cmd.Context(), args[0], d)
				if err != nil {
					return WrapExitError(ExitFailure, "expire failed", err)
				}
				if !ok {
					return WrapExitError(ExitFailure, "expire failed",
						fmt.Errorf("%w: %s", hashstore.ErrNoSuchKey, args[0]))
				}
				return a.out.Success(ExpireResult{Key: args[0], TTL: d.String(), Deleted: d <= 0})
			})
		},
	}
}

// NewTTLCommand creates the ttl command.
func NewTTLCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "ttl <key>",
		Short:         "Show a record's remaining time to live",
		Args:          usageArgs(cobra.ExactArgs(1)),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(opts, cmd, func(a *app) error {
				d, err := a.view.TTL(cmd.Context(), args[0])
				if errors.Is(err, hashstore.ErrNoSuchKey) {
					err = fmt.Errorf("%w: %s", err, args[0])
				}
				if err != nil {
					return WrapExitError(ExitFailure, "ttl failed", err)
				}

				if d == hashstore.NoExpiry {
					return a.out.Success(TTLResult{Key: args[0], TTL: "no expiry", Milliseconds: -1})
				}
				return a.out.Success(TTLResult{
					Key:          args[0],
					TTL:          d.Round(time.Second).String(),
					Milliseconds: d.Milliseconds(),
				})
			})
		},
	}
}

// NewWhitelistCommand creates the whitelist command.
func NewWhitelistCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "whitelist",
		Short: "Show the fields bulk reads may return",
		Long: `Show the configured whitelist, deduplicated, in declaration order.

The list comes from the config file or HASHVIEW_WHITELIST. No store is
opened.`,
		Args:          usageArgs(cobra.NoArgs),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}
			fields := cfg.Policy().Fields()
			if fields == nil {
				fields = []string{}
			}
			out := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
			return out.Success(WhitelistResult{Fields: fields})
		},
	}
}
