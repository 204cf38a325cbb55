// Command gzinflate decompresses gzip streams: local files, http(s) URLs,
// or s3:// objects. Multiple files are decompressed concurrently, each
// writing to its own output path; "cat" mode always goes to stdout.
package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/coreos/go-systemd/v22/journal"
	"github.com/schollz/progressbar/v2"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"golang.org/x/crypto/ssh/terminal"
	"golang.org/x/sync/errgroup"

	"github.com/inflatehq/gzinflate/capnslog"
	"github.com/inflatehq/gzinflate/config"
	"github.com/inflatehq/gzinflate/driver"
	"github.com/inflatehq/gzinflate/lifecycle"
)

var plog = capnslog.NewPackageLogger("github.com/inflatehq/gzinflate", "main")

var (
	logLevel     string
	logFormat    string
	configPath   string
	showProgress bool
	outputDir    string
)

func main() {
	root := &cobra.Command{
		Use:   "gzinflate",
		Short: "decompress gzip streams from local files, URLs, or S3",
	}
	root.PersistentFlags().StringVar(&logLevel, "log-level", "INFO", "one of CRITICAL,ERROR,WARNING,NOTICE,INFO,DEBUG,TRACE")
	root.PersistentFlags().StringVar(&logFormat, "log-format", "", "one of string,glog,journal (default: string, or journal when a journald socket is live and this flag is unset)")
	root.PersistentFlags().StringVar(&configPath, "config", config.DefaultPath(), "path to a YAML file of flag defaults")
	root.PersistentFlags().BoolVar(&showProgress, "progress", true, "display a progress bar when output is not a terminal")
	root.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		return applyConfigDefaults(cmd.Flags())
	}

	group := lifecycle.NewGroup()

	catCmd := &cobra.Command{
		Use:   "cat [sources...]",
		Short: "decompress sources to stdout, concatenated",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCat(cmd.Context(), group, args)
		},
	}

	decompressCmd := &cobra.Command{
		Use:   "decompress [sources...]",
		Short: "decompress each source into a sibling file with the .gz suffix removed",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDecompress(cmd.Context(), group, args)
		},
	}
	decompressCmd.Flags().StringVar(&outputDir, "output-dir", "", "directory to write decompressed files into (default: alongside the source)")

	root.AddCommand(catCmd, decompressCmd)

	ctx, cancel := context.WithCancel(context.Background())
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt)
	go func() {
		<-sig
		plog.Noticef("interrupt received, waiting for in-flight jobs to drain")
		cancel()
		<-group.Stop()
	}()

	if err := root.ExecuteContext(ctx); err != nil {
		plog.Errorf("gzinflate: %v", err)
		os.Exit(1)
	}
}

// applyConfigDefaults loads configPath and applies its UPPER_SNAKE keys to
// every flag in fs that the user did not already set explicitly (fs is the
// invoked command's merged flag set, so this covers log-level, log-format,
// progress, and any subcommand-local flags like output-dir).
func applyConfigDefaults(fs *pflag.FlagSet) error {
	conf, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if err := config.SetFlagsFromYaml(fs, conf); err != nil {
		return err
	}
	level, err := capnslog.ParseLevel(strings.ToUpper(logLevel))
	if err != nil {
		return fmt.Errorf("gzinflate: %w", err)
	}
	capnslog.MustRepoLogger("github.com/inflatehq/gzinflate").SetGlobalLogLevel(level)
	capnslog.SetFormatter(resolveFormatter())
	return nil
}

// resolveFormatter picks a capnslog.Formatter from --log-format, falling
// back to journald when a live socket is detected and the flag was left at
// its default, and to plain stderr text otherwise.
func resolveFormatter() capnslog.Formatter {
	switch strings.ToLower(logFormat) {
	case "glog":
		return capnslog.NewGlogFormatter(os.Stderr)
	case "journal":
		return capnslog.NewJournaldFormatter()
	case "string":
		return capnslog.NewStringFormatter(os.Stderr)
	default:
		if journal.Enabled() {
			return capnslog.NewJournaldFormatter()
		}
		return capnslog.NewStringFormatter(os.Stderr)
	}
}

// openSource resolves name into a readable stream: an s3:// URL via the AWS
// SDK, an http(s):// URL via net/http, or a local file otherwise.
func openSource(ctx context.Context, name string) (io.ReadCloser, error) {
	switch {
	case strings.HasPrefix(name, "s3://"):
		return openS3(ctx, name)
	case strings.HasPrefix(name, "http://"), strings.HasPrefix(name, "https://"):
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, name, nil)
		if err != nil {
			return nil, err
		}
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			return nil, fmt.Errorf("gzinflate: fetching %s: %s", name, resp.Status)
		}
		return resp.Body, nil
	default:
		return os.Open(name)
	}
}

func openS3(ctx context.Context, uri string) (io.ReadCloser, error) {
	rest := strings.TrimPrefix(uri, "s3://")
	parts := strings.SplitN(rest, "/", 2)
	if len(parts) != 2 {
		return nil, fmt.Errorf("gzinflate: malformed s3 uri %q, want s3://bucket/key", uri)
	}
	sess, err := session.NewSession(aws.NewConfig())
	if err != nil {
		return nil, err
	}
	client := s3.New(sess)
	out, err := client.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(parts[0]),
		Key:    aws.String(parts[1]),
	})
	if err != nil {
		return nil, err
	}
	return out.Body, nil
}

func runCat(ctx context.Context, group *lifecycle.Group, sources []string) error {
	done := make(chan struct{})
	defer close(done)
	group.AddFunc("cat", func() <-chan struct{} { return done })

	if len(sources) == 0 {
		return driver.Decompress(os.Stdin, os.Stdout)
	}
	for _, src := range sources {
		rc, err := openSource(ctx, src)
		if err != nil {
			return err
		}
		err = driver.Decompress(rc, os.Stdout)
		rc.Close()
		if err != nil {
			return fmt.Errorf("gzinflate: %s: %w", src, err)
		}
	}
	return nil
}

func runDecompress(ctx context.Context, group *lifecycle.Group, sources []string) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, src := range sources {
		src := src
		g.Go(func() error {
			return decompressOne(ctx, group, src)
		})
	}
	return g.Wait()
}

// decompressOne registers itself with group so a SIGINT waits for the
// in-flight write and close to finish rather than tearing down mid-file, and
// removes its output file if the job was still running when the group was
// stopped rather than leaving a truncated decompression result on disk.
func decompressOne(ctx context.Context, group *lifecycle.Group, src string) error {
	done := make(chan struct{})
	succeeded := false

	dst := destPath(src)
	cleanup := func() {
		if !succeeded {
			plog.Infof("removing partial output %s", dst)
			os.Remove(dst)
		}
	}
	group.AddCleanup(src, func() <-chan struct{} { return done }, cleanup)
	defer close(done)

	rc, err := openSource(ctx, src)
	if err != nil {
		return fmt.Errorf("gzinflate: %s: %w", src, err)
	}
	defer rc.Close()

	f, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("gzinflate: %s: %w", src, err)
	}
	defer f.Close()

	var w io.Writer = f
	var bar *progressbar.ProgressBar
	if showProgress && !terminal.IsTerminal(int(os.Stdout.Fd())) {
		bar = progressbar.NewOptions64(-1,
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionSetPredictTime(false))
		bar.RenderBlank()
		w = io.MultiWriter(f, progressWriter{bar})
	}

	plog.Infof("decompressing %s -> %s", src, dst)
	if err := driver.Decompress(rc, w); err != nil {
		return fmt.Errorf("gzinflate: %s: %w", src, err)
	}
	if bar != nil {
		fmt.Fprintln(os.Stderr)
	}
	succeeded = true
	return nil
}

// progressWriter adapts a progressbar.ProgressBar to io.Writer so it can sit
// in an io.MultiWriter alongside the real output file.
type progressWriter struct {
	bar *progressbar.ProgressBar
}

func (p progressWriter) Write(b []byte) (int, error) {
	p.bar.Add(len(b))
	return len(b), nil
}

// destPath strips a trailing .gz from src (within outputDir if set) so
// "decompress archive.tar.gz" produces "archive.tar".
func destPath(src string) string {
	base := src
	if idx := strings.LastIndexAny(src, "/\\"); idx >= 0 {
		base = src[idx+1:]
	}
	base = strings.TrimSuffix(base, ".gz")
	if outputDir != "" {
		return outputDir + string(os.PathSeparator) + base
	}
	if idx := strings.LastIndexAny(src, "/\\"); idx >= 0 {
		return src[:idx+1] + base
	}
	return base
}
