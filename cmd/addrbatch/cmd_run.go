package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/newtron-network/addrbatch/pkg/audit"
	"github.com/newtron-network/addrbatch/pkg/batch"
	"github.com/newtron-network/addrbatch/pkg/cli"
	"github.com/newtron-network/addrbatch/pkg/orchestrator"
	"github.com/newtron-network/addrbatch/pkg/session"
	"github.com/newtron-network/addrbatch/pkg/settings"
	"github.com/newtron-network/addrbatch/pkg/source"
	"github.com/newtron-network/addrbatch/pkg/util"
)

// batchOptions are the flags shared by run and preview. Empty and zero
// values are unset and fall through to lower configuration layers.
type batchOptions struct {
	file        string
	prefix      string
	description string
	zone        string
	netmask     string
	deviceType  string
	groupLimit  *int
	user        string
	port        int
	profile     string

	redisAddr string
	redisDB   int
	redisKey  string
}

func (o *batchOptions) bind(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVarP(&o.description, "description", "d", "", "description of this batch (default today's date)")
	f.StringVarP(&o.prefix, "action-description", "a", "", "group-name prefix (default "+batch.DefaultPrefix+")")
	f.StringVarP(&o.file, "path", "p", "-", "address list file, one address per line (- for stdin)")
	f.StringVarP(&o.zone, "zone", "z", "", "security zone (default "+batch.DefaultZone+")")
	f.StringVarP(&o.netmask, "netmask", "n", "", "address netmask (default "+batch.DefaultNetmask+")")
	f.StringVarP(&o.deviceType, "device-type", "t", "", "device type: ssg or srx (default ssg)")
	f.VarP(&optionalInt{&o.groupLimit}, "group-limit", "g", fmt.Sprintf("maximum addresses per group (default %d)", batch.DefaultGroupLimit))
	f.StringVarP(&o.user, "user", "u", "", "login user (default netscreen for ssg, root for srx)")
	f.IntVar(&o.port, "port", 0, "SSH port (default 22)")
	f.StringVar(&o.profile, "profile", "", "YAML batch profile")
	f.StringVar(&o.redisKey, "redis-key", "", "read the address list from this Redis list instead of -p")
	f.StringVar(&o.redisAddr, "redis-addr", "", "Redis address for --redis-key (default $ADDRBATCH_REDIS_ADDR)")
	f.IntVar(&o.redisDB, "redis-db", 0, "Redis database for --redis-key")
}

// optionalInt is an int flag that stays nil until given, so an explicit 0
// reaches validation instead of being read as unset.
type optionalInt struct {
	v **int
}

func (o *optionalInt) Set(s string) error {
	n, err := strconv.Atoi(s)
	if err != nil {
		return fmt.Errorf("%q is not an integer", s)
	}
	*o.v = &n
	return nil
}

func (o *optionalInt) String() string {
	if o.v == nil || *o.v == nil {
		return ""
	}
	return strconv.Itoa(**o.v)
}

func (o *optionalInt) Type() string { return "int" }

func (o *batchOptions) values() settings.Values {
	return settings.Values{
		DeviceType:  o.deviceType,
		Zone:        o.zone,
		Netmask:     o.netmask,
		Prefix:      o.prefix,
		Description: o.description,
		GroupLimit:  o.groupLimit,
		User:        o.user,
		Port:        o.port,
	}
}

// loadedBatch is a descriptor plus the configuration it was built from.
type loadedBatch struct {
	desc     *batch.Descriptor
	source   string
	settings *settings.Settings
	env      *settings.Env
}

// load merges settings, profile, environment and flags, reads the address
// list and builds the descriptor. host, when set, overrides every layer.
func (o *batchOptions) load(ctx context.Context, host string) (*loadedBatch, error) {
	s, err := settings.Load()
	if err != nil {
		return nil, fmt.Errorf("loading settings: %w", err)
	}
	e, err := settings.LoadEnv()
	if err != nil {
		return nil, err
	}
	var profile settings.Values
	if o.profile != "" {
		if profile, err = settings.LoadProfile(o.profile); err != nil {
			return nil, err
		}
	}

	flags := o.values()
	flags.Host = host
	v := settings.Merge(s.Values(), profile, e.Values(), flags)
	dialect, err := v.Dialect()
	if err != nil {
		return nil, err
	}

	src := o.source(e)
	if c, ok := src.(io.Closer); ok {
		defer c.Close()
	}
	addrs, err := src.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading addresses from %s: %w", src.Name(), err)
	}
	util.Debugf("loaded %d address%s from %s", len(addrs), plural(len(addrs), "es"), src.Name())

	desc, err := batch.New(dialect, addrs, v.Params())
	if err != nil {
		return nil, err
	}
	return &loadedBatch{desc: desc, source: src.Name(), settings: s, env: e}, nil
}

func (o *batchOptions) source(e *settings.Env) source.Source {
	if o.redisKey == "" {
		return source.NewFile(o.file)
	}
	addr := o.redisAddr
	if addr == "" {
		addr = e.RedisAddr
	}
	return source.NewRedis(addr, o.redisDB, o.redisKey)
}

func plural(n int, suffix string) string {
	if n == 1 {
		return ""
	}
	return suffix
}

// sessionOptions tune the SSH transport and shell timing of an executed run.
type sessionOptions struct {
	connectTimeout time.Duration
	connectRetries uint64
	readTimeout    time.Duration
	commitDelay    time.Duration
}

func (o *sessionOptions) bind(cmd *cobra.Command) {
	f := cmd.Flags()
	f.DurationVar(&o.connectTimeout, "connect-timeout", 0, "TCP connect and SSH handshake timeout (default $ADDRBATCH_CONNECT_TIMEOUT or 30s)")
	f.Uint64Var(&o.connectRetries, "connect-retries", 0, "extra TCP connect attempts (default $ADDRBATCH_CONNECT_RETRIES or 3)")
	f.DurationVar(&o.readTimeout, "read-timeout", 0, "quiet period that ends one command's output (dialect default)")
	f.DurationVar(&o.commitDelay, "commit-delay", 0, "settle delay after save/commit commands (dialect default)")
}

func (o *sessionOptions) dialer(cmd *cobra.Command, e *settings.Env) *session.SSHDialer {
	timeout, retries := e.ConnectTimeout, e.ConnectRetries
	if cmd.Flags().Changed("connect-timeout") {
		timeout = o.connectTimeout
	}
	if cmd.Flags().Changed("connect-retries") {
		retries = o.connectRetries
	}
	return session.NewSSHDialer(timeout, retries)
}

// tune applies the timing overrides to a dialect profile.
func (o *sessionOptions) tune(p session.Profile) session.Profile {
	if o.readTimeout > 0 {
		p.ReadTimeout = o.readTimeout
	}
	if o.commitDelay > 0 {
		p.Timing.Commit = o.commitDelay
	}
	return p
}

// auditPath picks the audit log: flag, then environment, then settings.
func auditPath(flag string, e *settings.Env, s *settings.Settings) string {
	switch {
	case flag != "":
		return flag
	case e != nil && e.AuditLog != "":
		return e.AuditLog
	case s != nil:
		return s.AuditLog
	}
	return ""
}

func newRunCmd() *cobra.Command {
	var (
		opts     batchOptions
		sess     sessionOptions
		execute  bool
		auditLog string
	)

	cmd := &cobra.Command{
		Use:   "run [flags] [host]",
		Short: "Preview, confirm and execute the apply and revert sequences",
		Long: `Build the apply and revert sequences of an address batch.

Without -x both sequences are printed and nothing is sent. With -x each
phase is previewed and confirmed separately. The login secret is asked for
once, after the first confirmation, and reused for the second phase.

Examples:
  addrbatch run -p addrs.txt fw1
  addrbatch run -p addrs.txt -d 2024-01-01 -a Deny_scan -x fw1
  cat addrs.txt | addrbatch run -t srx -z untrust -x srx1
  addrbatch run --redis-key blocklist:today -g 100 -x fw1`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			var host string
			if len(args) == 1 {
				host = args[0]
			}
			lb, err := opts.load(ctx, host)
			if err != nil {
				return err
			}

			o := &orchestrator.Orchestrator{Out: os.Stdout, Source: lb.source}
			if !execute {
				return o.DryRun(lb.desc)
			}

			term, err := cli.NewTerminal()
			if err != nil {
				return err
			}
			defer term.Close()
			o.Prompt = term

			dialer := sess.dialer(cmd, lb.env)
			o.NewRunner = func(p session.Profile) batch.Runner {
				return session.NewDriver(sess.tune(p), dialer)
			}

			if path := auditPath(auditLog, lb.env, lb.settings); path != "" {
				logger, err := audit.NewFileLogger(path, audit.RotationConfig{MaxSize: 10 << 20, MaxBackups: 5})
				if err != nil {
					return err
				}
				defer logger.Close()
				o.Audit = logger
			}

			_, err = o.Run(ctx, lb.desc)
			return err
		},
	}

	opts.bind(cmd)
	sess.bind(cmd)
	cmd.Flags().BoolVarP(&execute, "execute", "x", false, "execute (default is dry-run)")
	cmd.Flags().StringVar(&auditLog, "audit-log", "", "append executed phases to this JSON-lines file")
	return cmd
}

func newPreviewCmd() *cobra.Command {
	var (
		opts   batchOptions
		revert bool
	)

	cmd := &cobra.Command{
		Use:   "preview [flags] [host]",
		Short: "Print the apply or revert sequence",
		Long: `Print one command sequence of an address batch without connecting.

Examples:
  addrbatch preview -p addrs.txt
  addrbatch preview -t srx --revert -p addrs.txt`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var host string
			if len(args) == 1 {
				host = args[0]
			}
			lb, err := opts.load(cmd.Context(), host)
			if err != nil {
				return err
			}
			dir := batch.Apply
			if revert {
				dir = batch.Revert
			}
			o := &orchestrator.Orchestrator{Out: os.Stdout}
			return o.Preview(lb.desc, dir)
		},
	}

	opts.bind(cmd)
	cmd.Flags().BoolVar(&revert, "revert", false, "print the revert sequence")
	return cmd
}
