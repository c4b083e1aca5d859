// Package main provides the CLI entrypoint for wbrdash.
package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/open-wbr/wbrdash/internal/auth"
	"github.com/open-wbr/wbrdash/internal/chart"
	"github.com/open-wbr/wbrdash/internal/config"
	"github.com/open-wbr/wbrdash/internal/generator"
	"github.com/open-wbr/wbrdash/internal/service"
	"github.com/open-wbr/wbrdash/internal/source"
	"github.com/open-wbr/wbrdash/internal/tui"
)

const (
	defaultWeeks      = 13
	defaultMonths     = 12
	defaultSeedYears  = 2
	defaultSessionTTL = 24
	seedBatchSize     = 500
)

var (
	configPath string

	dashMetric string
	dashGroup  string
	dashAsOf   string
	dashWeeks  int
	dashMonths int

	sourceDriver string
	sourceDSN    string

	reportWidth int
	reportColor bool

	seedFrom  string
	seedTo    string
	seedValue int64
	seedTable string
)

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "wbrdash",
		Short:         "TUI dashboard for weekly business review metrics",
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE:          runDashboardCmd,
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file path (default: XDG config dir)")
	rootCmd.PersistentFlags().StringVar(&sourceDriver, "driver", "", "source driver: sqlite, mysql, bigquery, csv")
	rootCmd.PersistentFlags().StringVar(&sourceDSN, "dsn", "", "source path or connection URL")

	addReportFlags(rootCmd)

	rootCmd.AddCommand(newReportCmd())
	rootCmd.AddCommand(newMetricsCmd())
	rootCmd.AddCommand(newConfigCmd())
	rootCmd.AddCommand(newSeedCmd())
	rootCmd.AddCommand(newLoginCmd())
	rootCmd.AddCommand(newLogoutCmd())
	return rootCmd
}

func addReportFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&dashMetric, "metric", "", "metric name (default: first configured)")
	cmd.Flags().StringVar(&dashGroup, "group", "", "group filter")
	cmd.Flags().StringVar(&dashAsOf, "as-of", "", "reference date (YYYY-MM-DD, default: latest date in data)")
	cmd.Flags().IntVar(&dashWeeks, "weeks", defaultWeeks, "weekly buckets to show")
	cmd.Flags().IntVar(&dashMonths, "months", defaultMonths, "monthly buckets to show")
}

func resolveConfigPath() string {
	if configPath != "" {
		return configPath
	}
	return config.DefaultConfigPath()
}

func loadFileConfig(cmd *cobra.Command) (config.FileConfig, error) {
	fileCfg, err := config.LoadConfig(resolveConfigPath())
	if err != nil {
		return config.FileConfig{}, fmt.Errorf("failed to load config: %w", err)
	}
	applyStringConfig(cmd, "driver", &sourceDriver, fileCfg.Source.Driver)
	applyStringConfig(cmd, "dsn", &sourceDSN, fileCfg.Source.DSN)
	if len(fileCfg.Metrics) == 0 {
		fileCfg.Metrics = defaultMetrics()
	}
	return fileCfg, nil
}

// defaultMetrics lets the dashboard run against a seeded database before
// any config file exists.
func defaultMetrics() []config.MetricConfig {
	return []config.MetricConfig{{
		Name:        "visitors",
		Title:       "Visitors",
		Unit:        "people",
		Table:       "foot_traffic",
		DateColumn:  "obs_date",
		ValueColumn: "visitors",
		GroupColumn: "site",
	}}
}

func openSource(ctx context.Context, fileCfg config.FileConfig) (source.Source, error) {
	settings := source.Settings{
		Driver: sourceDriver,
		DSN:    sourceDSN,
	}
	if fileCfg.Source.Project != nil {
		settings.Project = *fileCfg.Source.Project
	}
	if fileCfg.Source.Dataset != nil {
		settings.Dataset = *fileCfg.Source.Dataset
	}
	if settings.Driver == "" && settings.DSN == "" && settings.Project == "" {
		settings.Driver = "sqlite"
		settings.DSN = config.DefaultDBPath()
	}
	src, err := source.Open(ctx, settings)
	if err != nil {
		return nil, fmt.Errorf("failed to open source: %w", err)
	}
	return src, nil
}

func buildRequest(cmd *cobra.Command, fileCfg config.FileConfig) (service.Request, error) {
	dash := fileCfg.DashboardSettings()
	applyIntFlagDefault(cmd, "weeks", &dashWeeks, dash.WeekWindow)
	applyIntFlagDefault(cmd, "months", &dashMonths, dash.MonthWindow)

	req := service.Request{
		Metric:      dashMetric,
		Group:       dashGroup,
		WeekWindow:  dashWeeks,
		MonthWindow: dashMonths,
	}
	if dashAsOf != "" {
		ref, err := time.Parse("2006-01-02", dashAsOf)
		if err != nil {
			return service.Request{}, fmt.Errorf("invalid --as-of value: %w", err)
		}
		req.ReferenceDate = ref.UTC()
	}
	return req, nil
}

func authOptions(fileCfg config.FileConfig) tui.AuthOptions {
	opts := tui.AuthOptions{
		CredentialsPath: config.DefaultCredentialsPath(),
		SessionPath:     config.DefaultSessionPath(),
		SessionTTL:      defaultSessionTTL * time.Hour,
	}
	if fileCfg.Auth.Enabled != nil {
		opts.Enabled = *fileCfg.Auth.Enabled
	}
	if fileCfg.Auth.CredentialsPath != nil {
		opts.CredentialsPath = *fileCfg.Auth.CredentialsPath
	}
	if fileCfg.Auth.SessionTTLHours != nil {
		opts.SessionTTL = time.Duration(*fileCfg.Auth.SessionTTLHours) * time.Hour
	}
	return opts
}

func runDashboardCmd(cmd *cobra.Command, _ []string) error {
	fileCfg, err := loadFileConfig(cmd)
	if err != nil {
		return err
	}
	req, err := buildRequest(cmd, fileCfg)
	if err != nil {
		return err
	}

	src, err := openSource(cmd.Context(), fileCfg)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := src.Close(); cerr != nil {
			logErrf("failed to close source: %v\n", cerr)
		}
	}()

	svc := service.New(src, fileCfg)
	m := tui.NewModel(svc, req, authOptions(fileCfg))
	program := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("failed to run TUI: %w", err)
	}
	return nil
}

func newReportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Print a plain-text report",
		Args:  cobra.NoArgs,
		RunE:  runReportCmd,
	}
	addReportFlags(cmd)
	cmd.Flags().IntVar(&reportWidth, "width", 0, "plot width (default: terminal width)")
	cmd.Flags().BoolVar(&reportColor, "color", false, "force colored output")
	return cmd
}

func runReportCmd(cmd *cobra.Command, _ []string) error {
	fileCfg, err := loadFileConfig(cmd)
	if err != nil {
		return err
	}
	if err := requireSession(fileCfg); err != nil {
		return err
	}
	req, err := buildRequest(cmd, fileCfg)
	if err != nil {
		return err
	}

	src, err := openSource(cmd.Context(), fileCfg)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := src.Close(); cerr != nil {
			logErrf("failed to close source: %v\n", cerr)
		}
	}()

	svc := service.New(src, fileCfg)
	rep, err := svc.Run(cmd.Context(), req)
	if err != nil {
		return err
	}
	return chart.RenderReport(cmd.OutOrStdout(), rep.Metric.Title, rep.Result, reportWidth, reportColor)
}

// requireSession rejects data-reading commands when auth is enabled and no
// valid session exists. The interactive dashboard shows its own login form.
func requireSession(fileCfg config.FileConfig) error {
	opts := authOptions(fileCfg)
	if !opts.Enabled {
		return nil
	}
	if _, ok, err := auth.LoadSession(opts.SessionPath); err != nil {
		return err
	} else if !ok {
		return fmt.Errorf("not signed in; run `wbrdash login` first")
	}
	return nil
}

func newMetricsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "metrics",
		Short: "List configured metrics and their data ranges",
		Args:  cobra.NoArgs,
		RunE:  runMetricsCmd,
	}
}

func runMetricsCmd(cmd *cobra.Command, _ []string) error {
	fileCfg, err := loadFileConfig(cmd)
	if err != nil {
		return err
	}
	src, err := openSource(cmd.Context(), fileCfg)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := src.Close(); cerr != nil {
			logErrf("failed to close source: %v\n", cerr)
		}
	}()

	svc := service.New(src, fileCfg)
	rows := make([][]string, 0, len(fileCfg.Metrics))
	for _, name := range svc.MetricNames() {
		m, err := svc.Metric(name)
		if err != nil {
			return err
		}
		span := "no data"
		minDate, maxDate, err := svc.DateRange(cmd.Context(), name)
		if err != nil {
			span = fmt.Sprintf("error: %v", err)
		} else if !minDate.IsZero() {
			span = fmt.Sprintf("%s .. %s", minDate.Format("2006-01-02"), maxDate.Format("2006-01-02"))
		}
		rows = append(rows, []string{m.Name, m.Title, m.Table, m.Unit, span})
	}
	headers := []string{"Name", "Title", "Table", "Unit", "Data range"}
	for _, line := range chart.FormatTable(headers, rows, nil) {
		if _, err := fmt.Fprintln(cmd.OutOrStdout(), line); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
	}
	return nil
}

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Create/open config file",
		Args:  cobra.NoArgs,
		RunE:  runConfigCmd,
	}
}

func runConfigCmd(_ *cobra.Command, _ []string) error {
	path := resolveConfigPath()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if _, err := os.Stat(path); err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("failed to stat config: %w", err)
		}
		if err := os.WriteFile(path, []byte(defaultConfigTemplate()), 0o644); err != nil {
			return fmt.Errorf("failed to write config: %w", err)
		}
	}

	editor := strings.TrimSpace(os.Getenv("EDITOR"))
	if editor == "" {
		editor = "vi"
	}
	parts := strings.Fields(editor)
	if len(parts) == 0 {
		return fmt.Errorf("editor command is empty")
	}
	cmd := exec.Command(parts[0], append(parts[1:], path)...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("failed to open editor: %w", err)
	}
	return nil
}

func newSeedCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Fill the warehouse with synthetic demo data",
		Args:  cobra.NoArgs,
		RunE:  runSeedCmd,
	}
	cmd.Flags().StringVar(&seedFrom, "from", "", "first day to generate (YYYY-MM-DD, default: 2 years ago)")
	cmd.Flags().StringVar(&seedTo, "to", "", "last day to generate (YYYY-MM-DD, default: today)")
	cmd.Flags().Int64Var(&seedValue, "seed", 1, "random seed; equal seeds produce equal data")
	cmd.Flags().StringVar(&seedTable, "metric", "", "metric to seed (default: all configured)")
	return cmd
}

func runSeedCmd(cmd *cobra.Command, _ []string) error {
	fileCfg, err := loadFileConfig(cmd)
	if err != nil {
		return err
	}

	to := time.Now().UTC()
	if seedTo != "" {
		to, err = time.Parse("2006-01-02", seedTo)
		if err != nil {
			return fmt.Errorf("invalid --to value: %w", err)
		}
	}
	from := to.AddDate(-defaultSeedYears, 0, 0)
	if seedFrom != "" {
		from, err = time.Parse("2006-01-02", seedFrom)
		if err != nil {
			return fmt.Errorf("invalid --from value: %w", err)
		}
	}
	if to.Before(from) {
		return fmt.Errorf("--to must not be before --from")
	}

	src, err := openSource(cmd.Context(), fileCfg)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := src.Close(); cerr != nil {
			logErrf("failed to close source: %v\n", cerr)
		}
	}()

	writer, ok := src.(source.Writer)
	if !ok {
		return fmt.Errorf("source %s does not support seeding; use a sqlite source", src.ID())
	}

	metrics := fileCfg.Metrics
	if seedTable != "" {
		m, err := fileCfg.Metric(seedTable)
		if err != nil {
			return err
		}
		metrics = nil
		for _, mc := range fileCfg.Metrics {
			if mc.Name == m.Name {
				metrics = append(metrics, mc)
			}
		}
	}

	for i, mc := range metrics {
		m, err := fileCfg.Metric(mc.Name)
		if err != nil {
			return err
		}
		if err := source.ValidateMapping(m.Columns); err != nil {
			return fmt.Errorf("metric %q: %w", m.Name, err)
		}
		if err := writer.EnsureTable(cmd.Context(), m.Table, m.Columns); err != nil {
			return fmt.Errorf("metric %q: %w", m.Name, err)
		}

		// Offset the seed per metric so tables do not mirror each other.
		gen := generator.New(seedValue + int64(i))
		rows := gen.Daily(from, to, generator.DefaultShape())

		logErrf("Seeding %s (%d rows)...\n", m.Table, len(rows))
		bar := progressbar.Default(int64(len(rows)))
		for start := 0; start < len(rows); start += seedBatchSize {
			end := start + seedBatchSize
			if end > len(rows) {
				end = len(rows)
			}
			if err := writer.InsertObservations(cmd.Context(), m.Table, m.Columns, rows[start:end]); err != nil {
				return fmt.Errorf("metric %q: %w", m.Name, err)
			}
			// Progress display only; the insert already succeeded.
			_ = bar.Add(end - start)
		}
		_ = bar.Finish()
	}
	logErrln("Done. Run `wbrdash` to open the dashboard.")
	return nil
}

func newLoginCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Sign in and store a session token",
		Args:  cobra.NoArgs,
		RunE:  runLoginCmd,
	}
}

func runLoginCmd(cmd *cobra.Command, _ []string) error {
	fileCfg, err := loadFileConfig(cmd)
	if err != nil {
		return err
	}
	opts := authOptions(fileCfg)

	logErrf("Username: ")
	reader := bufio.NewReader(os.Stdin)
	username, err := reader.ReadString('\n')
	if err != nil {
		return fmt.Errorf("failed to read username: %w", err)
	}
	username = strings.TrimSpace(username)

	logErrf("Password: ")
	passBytes, err := term.ReadPassword(int(os.Stdin.Fd()))
	logErrln()
	if err != nil {
		return fmt.Errorf("failed to read password: %w", err)
	}

	sess, err := auth.Login(opts.CredentialsPath, opts.SessionPath, username, string(passBytes), opts.SessionTTL)
	if err != nil {
		return err
	}
	logErrf("Signed in as %s (session valid until %s)\n", sess.Username, sess.ExpiresAt.Local().Format(time.RFC1123))
	return nil
}

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Remove the stored session token",
		Args:  cobra.NoArgs,
		RunE:  runLogoutCmd,
	}
}

func runLogoutCmd(_ *cobra.Command, _ []string) error {
	if err := auth.ClearSession(config.DefaultSessionPath()); err != nil {
		return err
	}
	logErrln("Signed out.")
	return nil
}

func applyStringConfig(cmd *cobra.Command, name string, target, value *string) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) || cmd.InheritedFlags().Changed(name) {
		return
	}
	*target = *value
}

// applyIntFlagDefault swaps the compiled-in default for the configured one
// when the user did not set the flag.
func applyIntFlagDefault(cmd *cobra.Command, name string, target *int, value int) {
	if cmd.Flags().Changed(name) {
		return
	}
	if value > 0 {
		*target = value
	}
}

func defaultConfigTemplate() string {
	return fmt.Sprintf(`# wbrdash configuration
# Uncomment a value to enable it. CLI flags override config values.

[source]
# driver = "sqlite"          # sqlite, mysql, bigquery, csv
# dsn = "%s"
# project = ""               # BigQuery project
# dataset = ""               # BigQuery dataset

[dashboard]
# weeks = %d                 # Weekly buckets to show
# months = %d                # Monthly buckets to show
# cache-ttl-minutes = 60     # Result cache lifetime

[auth]
# enabled = false
# credentials = "%s"
# session-ttl-hours = %d

[[metric]]
name = "visitors"
title = "Visitors"
unit = "people"
table = "foot_traffic"
date-column = "obs_date"
value-column = "visitors"
group-column = "site"
`,
		config.DefaultDBPath(),
		defaultWeeks,
		defaultMonths,
		config.DefaultCredentialsPath(),
		defaultSessionTTL,
	)
}

func logErrf(format string, args ...any) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}

func logErrln(args ...any) {
	if _, err := fmt.Fprintln(os.Stderr, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}
