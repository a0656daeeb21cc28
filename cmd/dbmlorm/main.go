package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tordrt/dbmlorm"
	"github.com/tordrt/dbmlorm/internal/config"
	"github.com/tordrt/dbmlorm/internal/logging"
)

var (
	configPath string
	logLevel   string
	logFormat  string

	inputFile  string
	outputFile string
	outputDir  string
	enumType   string
	enumLength int
	nonNative  bool
	docFormat  string

	dbURL      string
	mysqlURL   string
	sqlitePath string
	tables     string
	exclude    string
	schemaName string
)

var rootCmd = &cobra.Command{
	Use:           "dbmlorm",
	Short:         "Generate SeaORM entities from DBML",
	Long:          `dbmlorm checks DBML schema definitions and generates SeaORM entity source and documentation from them. It can also extract DBML from PostgreSQL, MySQL or SQLite databases and from PostgreSQL DDL.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate SeaORM entities from a DBML file",
	RunE:  runGenerate,
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Check a DBML file for errors",
	RunE:  runCheck,
}

var docCmd = &cobra.Command{
	Use:   "doc",
	Short: "Document a DBML file as markdown or text",
	RunE:  runDoc,
}

var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Extract DBML from a live database",
	RunE:  runExtract,
}

var importSQLCmd = &cobra.Command{
	Use:   "import-sql",
	Short: "Convert PostgreSQL DDL to DBML",
	RunE:  runImportSQL,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "YAML config file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn or error")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "Log format: text or json")

	for _, cmd := range []*cobra.Command{generateCmd, checkCmd, docCmd, importSQLCmd} {
		cmd.Flags().StringVarP(&inputFile, "input", "i", "", "Input file")
	}
	for _, cmd := range []*cobra.Command{generateCmd, docCmd, extractCmd, importSQLCmd} {
		cmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output file (default: stdout)")
	}
	for _, cmd := range []*cobra.Command{generateCmd, docCmd, extractCmd} {
		cmd.Flags().StringVarP(&outputDir, "output-dir", "d", "", "Output directory for multi-file output")
	}

	generateCmd.Flags().StringVar(&enumType, "enum-type", "", "Enum storage type: string or integer")
	generateCmd.Flags().IntVar(&enumLength, "enum-length", 0, "Column length of non-native string enums")
	generateCmd.Flags().BoolVar(&nonNative, "no-native-enum", false, "Store enums in plain columns instead of native database enums")

	docCmd.Flags().StringVarP(&docFormat, "format", "f", "markdown", "Output format: markdown or text")

	extractCmd.Flags().StringVar(&dbURL, "db-url", "", "PostgreSQL connection string")
	extractCmd.Flags().StringVar(&mysqlURL, "mysql-url", "", "MySQL connection string")
	extractCmd.Flags().StringVar(&sqlitePath, "sqlite", "", "SQLite database file path")
	extractCmd.Flags().StringVarP(&tables, "tables", "t", "", "Specific tables (comma-separated, optional)")
	extractCmd.Flags().StringVarP(&exclude, "exclude", "e", "", "Tables to skip (comma-separated, optional)")
	extractCmd.Flags().StringVarP(&schemaName, "schema", "s", "", "Database schema name (default: public for PostgreSQL)")

	rootCmd.AddCommand(generateCmd, checkCmd, docCmd, extractCmd, importSQLCmd)
}

// loadConfig reads the config file and environment, then applies command line flags
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("input") {
		cfg.Input = inputFile
	}
	if flags.Changed("output") {
		cfg.Output = outputFile
	}
	if flags.Changed("output-dir") {
		cfg.OutputDir = outputDir
	}
	if flags.Changed("enum-type") {
		cfg.EnumType = enumType
	}
	if flags.Changed("enum-length") {
		n := enumLength
		cfg.EnumLength = &n
	}
	if flags.Changed("no-native-enum") {
		cfg.NativeEnum = !nonNative
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = logLevel
	}
	if flags.Changed("log-format") {
		cfg.LogFormat = logFormat
	}
	return cfg, nil
}

func setup(cmd *cobra.Command) (*config.Config, *zap.Logger, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}

func readInput(path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("--input must be specified")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read input: %w", err)
	}
	return string(data), nil
}

// withOutput opens the output file, or stdout when path is empty, for the duration of write
func withOutput(path string, write func(w io.Writer) error) error {
	if path == "" {
		return write(os.Stdout)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer func() {
		if err := f.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "warning: failed to close output file: %v\n", err)
		}
	}()
	return write(f)
}

func runGenerate(cmd *cobra.Command, args []string) error {
	cfg, logger, err := setup(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if cfg.Output != "" && cfg.OutputDir != "" {
		return fmt.Errorf("cannot use both --output-dir and --output flags")
	}

	src, err := readInput(cfg.Input)
	if err != nil {
		return err
	}

	gen := &dbmlorm.GenerateOptions{
		EnumType:   cfg.EnumType,
		EnumLength: cfg.EnumLength,
		NativeEnum: cfg.NativeEnum,
		Logger:     logger,
	}
	if cfg.OutputDir != "" {
		return dbmlorm.Generate(src, gen, &dbmlorm.OutputOptions{OutputDir: cfg.OutputDir})
	}
	return withOutput(cfg.Output, func(w io.Writer) error {
		return dbmlorm.Generate(src, gen, &dbmlorm.OutputOptions{Writer: w})
	})
}

func runCheck(cmd *cobra.Command, args []string) error {
	cfg, logger, err := setup(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	src, err := readInput(cfg.Input)
	if err != nil {
		return err
	}

	m, err := dbmlorm.Check(src)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s: ok (%d tables, %d enums, %d refs)\n", cfg.Input, len(m.Tables), len(m.Enums), len(m.Refs))
	return nil
}

func runDoc(cmd *cobra.Command, args []string) error {
	cfg, logger, err := setup(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	if cfg.Output != "" && cfg.OutputDir != "" {
		return fmt.Errorf("cannot use both --output-dir and --output flags")
	}

	src, err := readInput(cfg.Input)
	if err != nil {
		return err
	}

	if cfg.OutputDir != "" {
		return dbmlorm.Document(src, docFormat, &dbmlorm.OutputOptions{OutputDir: cfg.OutputDir})
	}
	return withOutput(cfg.Output, func(w io.Writer) error {
		return dbmlorm.Document(src, docFormat, &dbmlorm.OutputOptions{Writer: w})
	})
}

// databaseURL picks the single database flag, falling back to DATABASE_URL
func databaseURL(cfg *config.Config) (string, error) {
	var urls []string
	if dbURL != "" {
		urls = append(urls, dbURL)
	}
	if mysqlURL != "" {
		urls = append(urls, "mysql://"+strings.TrimPrefix(mysqlURL, "mysql://"))
	}
	if sqlitePath != "" {
		urls = append(urls, "sqlite://"+sqlitePath)
	}

	switch len(urls) {
	case 0:
		if cfg.DatabaseURL != "" {
			return cfg.DatabaseURL, nil
		}
		return "", fmt.Errorf("one of --db-url, --mysql-url, or --sqlite must be specified")
	case 1:
		return urls[0], nil
	default:
		return "", fmt.Errorf("only one of --db-url, --mysql-url, or --sqlite can be specified")
	}
}

func runExtract(cmd *cobra.Command, args []string) error {
	cfg, logger, err := setup(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	url, err := databaseURL(cfg)
	if err != nil {
		return err
	}
	if cfg.Output != "" && cfg.OutputDir != "" {
		return fmt.Errorf("cannot use both --output-dir and --output flags")
	}

	ctx := context.Background()
	opts := &dbmlorm.Options{
		Tables:        parseTableList(tables),
		ExcludeTables: parseTableList(exclude),
		SchemaName:    schemaName,
		Logger:        logger,
	}

	if cfg.OutputDir != "" {
		return dbmlorm.ExtractAndFormat(ctx, url, opts, &dbmlorm.OutputOptions{OutputDir: cfg.OutputDir})
	}
	return withOutput(cfg.Output, func(w io.Writer) error {
		return dbmlorm.ExtractAndFormat(ctx, url, opts, &dbmlorm.OutputOptions{Writer: w})
	})
}

func runImportSQL(cmd *cobra.Command, args []string) error {
	cfg, logger, err := setup(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	src, err := readInput(cfg.Input)
	if err != nil {
		return err
	}

	s, err := dbmlorm.ImportSQL(src)
	if err != nil {
		return err
	}
	logger.Info("imported SQL",
		zap.String("input", cfg.Input),
		zap.Int("tables", len(s.Tables)),
		zap.Int("refs", len(s.Refs)))

	return withOutput(cfg.Output, func(w io.Writer) error {
		return dbmlorm.FormatDBML(s, w)
	})
}

// parseTableList splits a comma-separated flag value
func parseTableList(s string) []string {
	if s == "" {
		return nil
	}
	list := strings.Split(s, ",")
	for i, t := range list {
		list[i] = strings.TrimSpace(t)
	}
	return list
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
