package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"checkin-service/config"
	"checkin-service/internal/capture"
	"checkin-service/pkg/client"
	applogger "checkin-service/pkg/logger"
)

type submitOptions struct {
	server    string
	path      string
	username  string
	checkType string
	lat       float64
	lon       float64
	photo     string
	timeout   time.Duration
	verbose   bool
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "checkin",
		Short:         "Command line client for the check-in service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newSubmitCmd())
	return root
}

func newSubmitCmd() *cobra.Command {
	opts := &submitOptions{}

	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Record a check-in or check-out with a photo",
		Example: "  checkin submit --server http://localhost:8080 --username สมชาย --type IN \\\n" +
			"    --lat 13.75 --lon 100.50 --photo selfie.jpg",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSubmit(cmd.Context(), opts, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.server, "server", "http://localhost:8080", "service base URL")
	f.StringVar(&opts.path, "path", client.SubmitPath, "submission path")
	f.StringVarP(&opts.username, "username", "u", "", "username to record")
	f.StringVarP(&opts.checkType, "type", "t", capture.CheckTypeIn, "IN or OUT")
	f.Float64Var(&opts.lat, "lat", 0, "latitude")
	f.Float64Var(&opts.lon, "lon", 0, "longitude")
	f.StringVarP(&opts.photo, "photo", "p", "", "photo file")
	f.DurationVar(&opts.timeout, "timeout", 30*time.Second, "overall timeout")
	f.BoolVarP(&opts.verbose, "verbose", "v", false, "log state transitions")
	_ = cmd.MarkFlagRequired("username")
	_ = cmd.MarkFlagRequired("photo")

	return cmd
}

func runSubmit(ctx context.Context, opts *submitOptions, stdout, stderr io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}

	logger := zap.NewNop()
	if opts.verbose {
		l, err := applogger.NewLogger(&config.LogConfig{Level: "debug", Format: "console", OutputPaths: []string{"stderr"}})
		if err != nil {
			return err
		}
		defer l.Sync()
		logger = l
	}

	data, err := os.ReadFile(opts.photo)
	if err != nil {
		return fmt.Errorf("read photo: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, opts.timeout)
	defer cancel()

	cfg := capture.DefaultConfig(opts.username)
	// 单次提交后进程退出，无需延迟复位
	cfg.SuccessResetDelay = 0
	cfg.Logger = logger
	cfg.OnTransition = func(from, to capture.Status) {
		logger.Debug("state", zap.String("from", string(from)), zap.String("to", string(to)))
	}

	submitter := capture.HTTPSubmitter{
		Client: client.New(opts.server,
			client.WithPath(opts.path),
			client.WithHTTPClient(&http.Client{Timeout: opts.timeout}),
		),
	}
	session := capture.NewSession(cfg, capture.StaticLocator{Latitude: opts.lat, Longitude: opts.lon}, submitter)

	if err := session.SelectCheckType(ctx, opts.checkType); err != nil {
		return report(stderr, err)
	}
	if err := session.Capture(data); err != nil {
		return report(stderr, err)
	}
	receipt, err := session.Confirm(ctx)
	if err != nil {
		return report(stderr, err)
	}

	fmt.Fprintf(stdout, "%s (record %d)\n", receipt.Message, receipt.RecordID)
	return nil
}

func report(w io.Writer, err error) error {
	var apiErr *client.APIError
	if errors.As(err, &apiErr) {
		fmt.Fprintf(w, "error: %s\n", apiErr.Message)
	} else {
		fmt.Fprintf(w, "error: %v\n", err)
	}
	return err
}
