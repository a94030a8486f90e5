package main

import (
	"io"
	"os"
	"path/filepath"

	"foundryverify/pkg/config"
	"foundryverify/pkg/standardjson"

	"github.com/ethereum/go-ethereum/log"
	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
)

// 命令行参数，全部可选；不带参数时使用默认路径
type options struct {
	configPath   string
	root         string
	artifact     string
	foundryTOML  string
	output       string
	strictHashes bool
	verbose      bool
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "standardjson",
		Short: "Rebuild a solc standard-json input from a Foundry build artifact",
		Long: "Reads the compiled artifact, collects every referenced source (plus remapping aliases\n" +
			"from foundry.toml), strips build-only settings and writes a standard-json input that\n" +
			"solc --standard-json and block explorers accept for verification.",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			setupLogger(cmd.ErrOrStderr(), opts.verbose)

			cfg, err := loadConfig(cmd, opts)
			if err != nil {
				return err
			}

			out, err := standardjson.NewBuilder(cfg, log.Root()).Run(cmd.Context())
			if err != nil {
				return err
			}

			color.New(color.FgGreen).Fprintf(cmd.OutOrStdout(), "Standard JSON written to %s\n", out)
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.configPath, "config", "", "YAML config file (optional)")
	flags.StringVar(&opts.root, "root", "", "project root (default: nearest directory containing foundry.toml)")
	flags.StringVar(&opts.artifact, "artifact", "", "build artifact path (default "+config.DefaultArtifact+")")
	flags.StringVar(&opts.foundryTOML, "foundry-toml", "", "foundry config path (default "+config.DefaultFoundryTOML+")")
	flags.StringVar(&opts.output, "output", "", "output path (default "+config.DefaultOutput+")")
	flags.BoolVar(&opts.strictHashes, "strict-hashes", false, "fail when a source differs from the compiled keccak256")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "enable debug logging")

	return cmd
}

// loadConfig 默认值 < 配置文件 < 命令行参数
func loadConfig(cmd *cobra.Command, opts *options) (*config.Config, error) {
	cfg := config.Default()
	if opts.configPath != "" {
		loaded, err := config.Load(opts.configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	flags := cmd.Flags()
	if flags.Changed("root") {
		cfg.Root = opts.root
	}
	if flags.Changed("artifact") {
		cfg.Artifact = opts.artifact
	}
	if flags.Changed("foundry-toml") {
		cfg.FoundryTOML = opts.foundryTOML
	}
	if flags.Changed("output") {
		cfg.Output = opts.output
	}
	if flags.Changed("strict-hashes") {
		cfg.StrictHashes = opts.strictHashes
	}

	if cfg.Root == "" {
		root, err := config.DetectRoot(".")
		if err != nil {
			return nil, err
		}
		cfg.Root = root
	}
	root, err := filepath.Abs(cfg.Root)
	if err != nil {
		return nil, err
	}
	cfg.Root = root
	return cfg, cfg.Validate()
}

func setupLogger(w io.Writer, verbose bool) {
	level := log.LevelInfo
	if verbose {
		level = log.LevelDebug
	}
	useColor := false
	if f, ok := w.(*os.File); ok {
		useColor = isatty.IsTerminal(f.Fd())
	}
	log.SetDefault(log.NewLogger(log.NewTerminalHandlerWithLevel(w, level, useColor)))
}
