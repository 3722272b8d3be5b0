package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultStoryURL       = "https://www.wattpad.com/story/400248520"
	DefaultChapterWorkers = 5
	DefaultTimeoutSeconds = 10
	DefaultFontPath       = "fonts/DejaVuSans.ttf"
	DefaultBaseName       = "wattpad_book"
)

var DefaultFormats = []string{"md", "txt", "pdf", "epub"}

type Config struct {
	Output         string   `yaml:"output"`
	BaseName       string   `yaml:"base_name"`
	ChapterWorkers int      `yaml:"chapter_workers"`
	TimeoutSeconds int      `yaml:"timeout_seconds"`
	RequestsPerSec float64  `yaml:"requests_per_second"`
	Debug          bool     `yaml:"debug"`
	Formats        []string `yaml:"formats"`
	FontPath       string   `yaml:"font_path"`

	DefaultURL   string `yaml:"default_url"`
	DefaultRange string `yaml:"default_range"`
	DefaultList  string `yaml:"default_list"`

	Cookie           string `yaml:"cookie"`
	CookieFile       string `yaml:"cookie_file"`
	UserAgent        string `yaml:"user_agent"`
	CloudflareBypass bool   `yaml:"cloudflare_bypass"`
}

// Options carries CLI overrides. Zero values leave the loaded config untouched.
type Options struct {
	IgnoreConfig     bool
	Debug            bool
	Output           string
	BaseName         string
	ChapterWorkers   int
	TimeoutSeconds   int
	RequestsPerSec   float64
	Formats          []string
	FontPath         string
	DefaultURL       string
	DefaultRange     string
	DefaultList      string
	Cookie           string
	CookieFile       string
	UserAgent        string
	CloudflareBypass bool
}

func DefaultConfig() *Config {
	return &Config{
		Output:         ".",
		BaseName:       DefaultBaseName,
		ChapterWorkers: DefaultChapterWorkers,
		TimeoutSeconds: DefaultTimeoutSeconds,
		Formats:        append([]string(nil), DefaultFormats...),
		FontPath:       DefaultFontPath,
		DefaultURL:     DefaultStoryURL,
	}
}

func (c *Config) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

func SaveYAML(cfg *Config, path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

func LoadYAML(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	c := DefaultConfig()
	if err := yaml.Unmarshal(b, c); err != nil {
		return nil, err
	}

	return c, nil
}

// LoadMerged resolves the active profile, applies CLI overrides and fills
// defaults. The second return value describes where the config came from.
func LoadMerged(opts Options) (*Config, string, error) {
	if opts.IgnoreConfig {
		cfg := DefaultConfig()
		mergeConfig(cfg, opts)
		normalizeDefaults(cfg)
		return cfg, "(ignored config)", nil
	}

	activePath, err := ActiveConfigPath()
	if errors.Is(err, ErrNoConfig) || activePath == "" {
		cfg := DefaultConfig()
		mergeConfig(cfg, opts)
		normalizeDefaults(cfg)
		return cfg, "(default config in memory, run `wattdl config init` to create one)", nil
	}
	if err != nil {
		return nil, "", err
	}

	cfg, err := LoadYAML(activePath)
	if err != nil {
		return nil, "", fmt.Errorf("failed to load config %s: %w", activePath, err)
	}

	mergeConfig(cfg, opts)
	normalizeDefaults(cfg)

	return cfg, activePath, nil
}

func mergeConfig(c *Config, o Options) {
	if o.Output != "" {
		c.Output = o.Output
	}
	if o.BaseName != "" {
		c.BaseName = o.BaseName
	}
	if o.ChapterWorkers != 0 {
		c.ChapterWorkers = o.ChapterWorkers
	}
	if o.TimeoutSeconds != 0 {
		c.TimeoutSeconds = o.TimeoutSeconds
	}
	if o.RequestsPerSec != 0 {
		c.RequestsPerSec = o.RequestsPerSec
	}
	if len(o.Formats) > 0 {
		c.Formats = o.Formats
	}
	if o.FontPath != "" {
		c.FontPath = o.FontPath
	}
	if o.Debug {
		c.Debug = true
	}
	if o.DefaultURL != "" {
		c.DefaultURL = o.DefaultURL
	}
	if o.DefaultRange != "" {
		c.DefaultRange = o.DefaultRange
	}
	if o.DefaultList != "" {
		c.DefaultList = o.DefaultList
	}
	if o.Cookie != "" {
		c.Cookie = o.Cookie
	}
	if o.CookieFile != "" {
		c.CookieFile = o.CookieFile
	}
	if o.UserAgent != "" {
		c.UserAgent = o.UserAgent
	}
	if o.CloudflareBypass {
		c.CloudflareBypass = true
	}
}

func normalizeDefaults(c *Config) {
	if c.Output == "" {
		c.Output = "."
	}
	if c.BaseName == "" {
		c.BaseName = DefaultBaseName
	}
	if c.ChapterWorkers <= 0 {
		c.ChapterWorkers = DefaultChapterWorkers
	}
	if c.TimeoutSeconds <= 0 {
		c.TimeoutSeconds = DefaultTimeoutSeconds
	}
	if c.RequestsPerSec < 0 {
		c.RequestsPerSec = 0
	}
	if len(c.Formats) == 0 {
		c.Formats = append([]string(nil), DefaultFormats...)
	}
	if c.FontPath == "" {
		c.FontPath = DefaultFontPath
	}
	if c.DefaultURL == "" {
		c.DefaultURL = DefaultStoryURL
	}
}

// SplitList turns "md, pdf|epub" into its non-empty lowercase parts.
func SplitList(s string) []string {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == '|' || r == ',' || r == ' '
	})

	out := []string{}
	for _, f := range fields {
		f = strings.ToLower(strings.TrimSpace(f))
		if f != "" {
			out = append(out, f)
		}
	}

	return out
}

func (c *Config) Print(w io.Writer) {
	fmt.Fprintf(w, " -output: %s\n", c.Output)
	fmt.Fprintf(w, " -base_name: %s\n", c.BaseName)
	fmt.Fprintf(w, " -chapter_workers: %d\n", c.ChapterWorkers)
	fmt.Fprintf(w, " -timeout_seconds: %d\n", c.TimeoutSeconds)
	if c.RequestsPerSec > 0 {
		fmt.Fprintf(w, " -requests_per_second: %g\n", c.RequestsPerSec)
	}
	fmt.Fprintf(w, " -formats: %s\n", strings.Join(c.Formats, ", "))
	fmt.Fprintf(w, " -font_path: %s\n", c.FontPath)
	if c.Debug {
		fmt.Fprintf(w, " -debug: %t\n", c.Debug)
	}
	fmt.Fprintf(w, " -url: %s\n", c.DefaultURL)
	if c.DefaultRange != "" {
		fmt.Fprintf(w, " -range: %s\n", c.DefaultRange)
	}
	if c.DefaultList != "" {
		fmt.Fprintf(w, " -list: %s\n", c.DefaultList)
	}
	if c.Cookie != "" {
		fmt.Fprintf(w, " -cookie: (set)\n")
	}
	if c.CookieFile != "" {
		fmt.Fprintf(w, " -cookie_file: %s\n", c.CookieFile)
	}
	if c.UserAgent != "" {
		fmt.Fprintf(w, " -user_agent: %s\n", c.UserAgent)
	}
	if c.CloudflareBypass {
		fmt.Fprintf(w, " -cloudflare_bypass: %t\n", c.CloudflareBypass)
	}
}
