package cmd

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/brogergvhs/wattdl/internal/chapters"
	"github.com/brogergvhs/wattdl/internal/config"
	"github.com/brogergvhs/wattdl/internal/downloader"
	"github.com/brogergvhs/wattdl/internal/extract"
	"github.com/brogergvhs/wattdl/internal/fetch"
	"github.com/brogergvhs/wattdl/internal/render"
	"github.com/brogergvhs/wattdl/internal/story"
	"github.com/brogergvhs/wattdl/internal/ui"
	"github.com/brogergvhs/wattdl/internal/util"

	"github.com/PuerkitoBio/goquery"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	// selection
	flagURL     string
	flagChapter string
	flagRange   string
	flagList    string

	// runtime
	flagOutput         string
	flagBaseName       string
	flagFormats        string
	flagFontPath       string
	flagChapterWorkers int
	flagTimeout        int
	flagRate           float64
	flagDryRun         bool
	flagNoProgress     bool

	// headers/auth
	flagCookie     string
	flagCookieFile string
	flagUserAgent  string
	flagCloudflare bool
)

func init() {
	downloadCmd := &cobra.Command{
		Use:   "download",
		Short: "Download a story and render it as Markdown, text, PDF and EPUB. Uses the defaults from the selected config, overwritten by CLI flags",
		RunE:  runDownload,
	}

	// selection
	downloadCmd.Flags().StringVar(&flagURL, "url", "", "story landing page URL")
	downloadCmd.Flags().StringVar(&flagChapter, "chapter", "", "download a single chapter by TOC position (e.g. 5)")
	downloadCmd.Flags().StringVar(&flagRange, "range", "", "download range of chapters by TOC position (e.g. 5-12)")
	downloadCmd.Flags().StringVar(&flagList, "list", "", "download specific chapter positions (e.g. 1,3,5)")

	// runtime
	downloadCmd.Flags().StringVar(&flagOutput, "output", "", "output folder for documents and images")
	downloadCmd.Flags().StringVar(&flagBaseName, "name", "", "base name of the output documents")
	downloadCmd.Flags().StringVar(&flagFormats, "formats", "", "output formats (e.g. \"md,epub\")")
	downloadCmd.Flags().StringVar(&flagFontPath, "font", "", "TrueType font used by the PDF output")
	downloadCmd.Flags().IntVar(&flagChapterWorkers, "chapter-workers", config.DefaultChapterWorkers, "parallel chapter downloads")
	downloadCmd.Flags().IntVar(&flagTimeout, "timeout", config.DefaultTimeoutSeconds, "per request timeout in seconds")
	downloadCmd.Flags().Float64Var(&flagRate, "rate", 0, "max requests per second, 0 for unlimited")
	downloadCmd.Flags().BoolVar(&flagDryRun, "dry-run", false, "show the story and selected chapters, don't download them")
	downloadCmd.Flags().BoolVar(&flagNoProgress, "no-progress", false, "disable the progress bar")

	// headers/auth
	downloadCmd.Flags().StringVar(&flagCookie, "cookie", "", "cookie string, e.g. \"key=value; other=123\"")
	downloadCmd.Flags().StringVar(&flagCookieFile, "cookie-file", "", "path to a text file with cookies (one header line)")
	downloadCmd.Flags().StringVar(&flagUserAgent, "user-agent", "", "override User-Agent")
	downloadCmd.Flags().BoolVar(&flagCloudflare, "cloudflare-bypass", false, "wrap the transport with the Cloudflare bypass headers")

	rootCmd.AddCommand(downloadCmd)
}

func runDownload(cmd *cobra.Command, _ []string) error {
	opts := config.Options{
		IgnoreConfig:     flagIgnoreConfig,
		Debug:            flagDebug,
		Output:           flagOutput,
		BaseName:         flagBaseName,
		FontPath:         flagFontPath,
		RequestsPerSec:   flagRate,
		DefaultURL:       flagURL,
		DefaultRange:     flagRange,
		DefaultList:      flagList,
		Cookie:           flagCookie,
		CookieFile:       flagCookieFile,
		UserAgent:        flagUserAgent,
		CloudflareBypass: flagCloudflare,
	}
	if flagChapter != "" {
		rng, err := chapterRange(flagChapter)
		if err != nil {
			return err
		}
		opts.DefaultRange = rng
	}
	if flagFormats != "" {
		opts.Formats = config.SplitList(flagFormats)
	}
	if cmd.Flags().Changed("chapter-workers") {
		opts.ChapterWorkers = flagChapterWorkers
	}
	if cmd.Flags().Changed("timeout") {
		opts.TimeoutSeconds = flagTimeout
	}

	cfg, usedPath, err := config.LoadMerged(opts)
	if err != nil {
		return err
	}

	log := ui.NewLogger(cfg.Debug)
	log.WithField("config", usedPath).Debug("config loaded")

	out := cmd.OutOrStdout()
	if cfg.Debug {
		fmt.Fprintln(out, "Full config:")
		cfg.Print(out)
		fmt.Fprintln(out)
	}

	j := &job{
		cfg:      cfg,
		log:      log,
		out:      out,
		progress: !flagNoProgress && !flagDryRun,
		dryRun:   flagDryRun,
	}

	return j.run(cmd.Context())
}

// job is one download run: landing page, chapters, then every output format.
type job struct {
	cfg      *config.Config
	log      logrus.FieldLogger
	out      io.Writer
	progress bool
	dryRun   bool
}

func (j *job) run(ctx context.Context) error {
	cfg := j.cfg
	start := time.Now()

	renderers, err := render.ByName(cfg.Formats, render.Options{FontPath: cfg.FontPath, Log: j.log})
	if err != nil {
		return err
	}

	if err := os.MkdirAll(cfg.Output, 0755); err != nil {
		return fmt.Errorf("cannot create output folder: %w", err)
	}
	stopCleanup := util.SetupInterruptHandler(cfg.Output, render.TempSuffix, j.log)
	defer stopCleanup()

	client := fetch.New(fetch.ClientOptions{
		Timeout:           cfg.Timeout(),
		UserAgent:         cfg.UserAgent,
		Cookie:            cfg.Cookie,
		CookieFile:        cfg.CookieFile,
		RequestsPerSecond: cfg.RequestsPerSec,
		CloudflareBypass:  cfg.CloudflareBypass,
		Log:               j.log,
	})

	stats := &ui.Stats{}
	images := downloader.New(client, cfg.Output, stats, j.log)
	extractor := extract.New(images, j.log)

	landing, err := client.Fetch(ctx, cfg.DefaultURL)
	if err != nil {
		return fmt.Errorf("loading story page: %w", err)
	}
	page, err := goquery.NewDocumentFromReader(bytes.NewReader(landing))
	if err != nil {
		return fmt.Errorf("parsing story page: %w", err)
	}

	toc := extract.ChapterList(page, originOf(cfg.DefaultURL))
	selected := chapters.Filter(toc, cfg.DefaultRange, cfg.DefaultList)
	if len(selected) == 0 && len(toc) > 0 {
		return fmt.Errorf("no chapters selected by range %q / list %q", cfg.DefaultRange, cfg.DefaultList)
	}

	if j.dryRun {
		meta, _ := extract.ParseMetadata(page)
		meta.Stats.ChapterCount = len(toc)
		j.printPlan(meta, toc, selected)
		return nil
	}

	meta := extractor.Metadata(ctx, page, cfg.DefaultURL, len(toc))
	j.log.WithFields(logrus.Fields{
		"title":    meta.Title,
		"chapters": len(toc),
		"selected": len(selected),
	}).Info("story loaded")

	orch := chapters.NewOrchestrator(client, extractor, cfg.ChapterWorkers, j.log)

	var pm *ui.MPBProgressManager
	if j.progress {
		pm = ui.NewProgressManager(j.out)
		orch.WithProgress(pm.Register("Chapters", stats))
	}

	results := orch.FetchAll(ctx, selected)
	if pm != nil {
		pm.Close()
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	stats.TotalChapters.Store(int64(len(results)))
	stats.FailedChapters.Store(int64(len(selected) - len(results)))

	doc := story.Document{Meta: meta, Chapters: results}
	paths, renderErr := render.WriteAll(cfg.Output, cfg.BaseName, doc, renderers)

	ui.Summary{
		Title:     meta.Title,
		Stats:     stats,
		Outputs:   paths,
		Elapsed:   time.Since(start),
		Requested: len(selected),
	}.Print(j.out)

	return renderErr
}

func (j *job) printPlan(meta story.Metadata, toc, selected []story.ChapterRef) {
	fmt.Fprintf(j.out, "%s by %s\n", meta.Title, meta.Author)
	fmt.Fprintf(j.out, "Tags: %s\n", meta.TagLine())
	fmt.Fprintf(j.out, "Views=%d, Votes=%d, Chapters=%d\n\n", meta.Stats.Views, meta.Stats.Votes, meta.Stats.ChapterCount)
	fmt.Fprintf(j.out, "Dry-run: %d of %d chapters selected.\n\n", len(selected), len(toc))
	for _, ch := range selected {
		fmt.Fprintf(j.out, "%3d) %s\n     %s\n", ch.Number(), ch.Title, ch.URL)
	}
}

// chapterRange turns a single TOC position into the equivalent range,
// which takes precedence over any configured range or list.
func chapterRange(chapter string) (string, error) {
	n, err := strconv.Atoi(strings.TrimSpace(chapter))
	if err != nil || n <= 0 {
		return "", fmt.Errorf("chapter %q is not a TOC position", chapter)
	}

	return fmt.Sprintf("%d-%d", n, n), nil
}

// originOf is the scheme and host chapter links are resolved against.
func originOf(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return extract.SiteOrigin
	}

	return u.Scheme + "://" + u.Host
}
