package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/unkn0wn-root/oncecache"
	"github.com/unkn0wn-root/oncecache/fingerprint"
	"github.com/unkn0wn-root/oncecache/internal/util"
)

var fpArgs []string

var fingerprintCmd = &cobra.Command{
	Use:   "fingerprint <request>",
	Short: "Print the fingerprint of a request",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, err := fingerprintOf(args[0], fpArgs)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), key)
		return nil
	},
}

// fingerprintOf renders text alone, or text plus name=value parameters as a Query.
func fingerprintOf(text string, params []string) (fingerprint.Key, error) {
	if len(params) == 0 {
		return fingerprint.String(text), nil
	}
	q := fingerprint.Query{Text: text, Args: make(map[string]any, len(params))}
	for _, p := range params {
		name, value, ok := strings.Cut(p, "=")
		if !ok || name == "" {
			return "", fmt.Errorf("bad --arg %q, want name=value", p)
		}
		q.Args[name] = value
	}
	return q.Key()
}

var getCmd = &cobra.Command{
	Use:   "get <request>",
	Short: "Print the cached value of a request",
	Args:  cobra.ExactArgs(1),
	RunE: withEnv(func(ctx context.Context, e *env, cmd *cobra.Command, args []string) error {
		v, ok, err := e.cache.Get(ctx, keyOf(args[0]))
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%s: not cached", keyOf(args[0]))
		}
		_, err = cmd.OutOrStdout().Write(append(v, '\n'))
		return err
	}),
}

var setTTL time.Duration

var setCmd = &cobra.Command{
	Use:   "set <request> <value>",
	Short: "Store a value for a request, bypassing any lease",
	Args:  cobra.ExactArgs(2),
	RunE: withEnv(func(ctx context.Context, e *env, cmd *cobra.Command, args []string) error {
		_, err := e.cache.Set(ctx, keyOf(args[0]), []byte(args[1]), setTTL)
		return err
	}),
}

var (
	fetchValue  string
	fetchTTL    time.Duration
	fetchNoLock bool
)

var fetchCmd = &cobra.Command{
	Use:   "fetch <request>",
	Short: "Return the cached value, populating it with --value under a lease on a miss",
	Args:  cobra.ExactArgs(1),
	RunE: withEnv(func(ctx context.Context, e *env, cmd *cobra.Command, args []string) error {
		computed := false
		v, err := e.cache.FetchOrCompute(ctx, keyOf(args[0]), func(context.Context) ([]byte, error) {
			computed = true
			return []byte(fetchValue), nil
		}, oncecache.CachingOptions{Expiry: fetchTTL, DistributedLock: !fetchNoLock})
		if err != nil {
			return err
		}
		src := "cache"
		if computed {
			src = "computed"
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s (%s)\n", v, src)
		return nil
	}),
}

var existsCmd = &cobra.Command{
	Use:   "exists <request>",
	Short: "Report whether a request is cached",
	Args:  cobra.ExactArgs(1),
	RunE: withEnv(func(ctx context.Context, e *env, cmd *cobra.Command, args []string) error {
		ok, err := e.cache.KeyExists(ctx, keyOf(args[0]))
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), ok)
		return nil
	}),
}

var leaseCmd = &cobra.Command{
	Use:   "lease <request>",
	Short: "Show who holds the populate lease of a request",
	Args:  cobra.ExactArgs(1),
	RunE: withEnv(func(ctx context.Context, e *env, cmd *cobra.Command, args []string) error {
		lk := util.LockKey(util.StorageKey(e.cfg.Namespace, string(keyOf(args[0]))))
		owner, held, err := e.locker.Query(ctx, lk)
		if err != nil {
			return err
		}
		if !held {
			fmt.Fprintf(cmd.OutOrStdout(), "%s: free\n", lk)
			return nil
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s: held by %s\n", lk, owner)
		return nil
	}),
}

func init() {
	fingerprintCmd.Flags().StringArrayVar(&fpArgs, "arg", nil, "request parameter as name=value (repeatable)")
	setCmd.Flags().DurationVar(&setTTL, "ttl", 0, "entry TTL (0 = 5m)")
	fetchCmd.Flags().StringVar(&fetchValue, "value", "", "value to store on a miss")
	fetchCmd.Flags().DurationVar(&fetchTTL, "ttl", 0, "entry TTL (0 = 5m)")
	fetchCmd.Flags().BoolVar(&fetchNoLock, "no-lock", false, "skip the distributed lease")

	rootCmd.AddCommand(fingerprintCmd, getCmd, setCmd, fetchCmd, existsCmd, leaseCmd)
}
