package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/dwarflint/dwarflint/internal/applog"
	"github.com/dwarflint/dwarflint/internal/diag"
	"github.com/dwarflint/dwarflint/internal/lint"
	"github.com/dwarflint/dwarflint/internal/objfile"
	"github.com/dwarflint/dwarflint/pkg/utils"
)

var cfgFile string

var (
	flagStrict        bool
	flagGNU           bool
	flagIgnoreMissing bool
	flagQuiet         bool
	flagSkip          []string
	flagColor         string
	flagReport        string
	flagVerbose       bool
	flagTraceOffsets  string
)

// RootCmd is the base "dwarflint FILE..." command.
var RootCmd = &cobra.Command{
	Use:   "dwarflint FILE...",
	Short: "A pedantic checker of DWARF debugging information structure",
	Long: `dwarflint parses the DWARF debugging information in one or more ELF
object files and reports structural problems: bad offsets, dangling
references, malformed abbreviation tables and bloated or missing data that
valid producers shouldn't emit.

It does not interpret DWARF the way a debugger does; it checks that the
encoding itself is sound.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runLint,
}

func init() {
	RootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.dwarflintrc.yaml)")
	RootCmd.Flags().BoolVar(&flagStrict, "strict", false, "enable pedantic checks that produce false positives against common but non-conforming producers")
	RootCmd.Flags().BoolVar(&flagGNU, "gnu", false, "accept constructs emitted by the GNU toolchain that are technically bloat")
	RootCmd.Flags().BoolVarP(&flagIgnoreMissing, "ignore-missing", "i", false, "don't report missing DWARF sections as an error")
	RootCmd.Flags().BoolVarP(&flagQuiet, "quiet", "q", false, "don't print the \"No errors\" summary line for clean files")
	RootCmd.Flags().StringSliceVar(&flagSkip, "skip", nil, fmt.Sprintf("skip checks in one or more areas (%s)", utils.FormatSlice(diag.AreaNames(), ", ")))
	RootCmd.Flags().StringVar(&flagColor, "color", "auto", "colorize diagnostics: auto, always or never")
	RootCmd.Flags().StringVar(&flagReport, "report", "text", "diagnostic report format: text or yaml")
	RootCmd.Flags().BoolVarP(&flagVerbose, "verbose", "v", false, "log the tool's own progress to stderr")
	RootCmd.Flags().StringVar(&flagTraceOffsets, "trace-offsets", "", "write the checker's progress records (each pipeline stage with its section offset) to this file as JSON")

	cobra.OnInitialize(initConfig)
}

var exitCode int

// Execute runs the root command and, if it fails, exits the process with
// the recorded exit code (1 when none was set). It is called by main.main;
// it only needs to run once.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		if exitCode == 0 {
			exitCode = 1
		}
		os.Exit(exitCode)
	}
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		viper.AddConfigPath(home)
		viper.SetConfigType("yaml")
		viper.SetConfigName(".dwarflintrc")
	}

	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

func colorFunc(mode string) func(level string) (string, string) {
	useColor := mode == "always" || (mode == "auto" && color.NoColor == false)
	if !useColor {
		return nil
	}
	return func(level string) (string, string) {
		c := color.New(color.FgYellow, color.Bold)
		if level == "error" {
			c = color.New(color.FgRed, color.Bold)
		}
		return c.Sprint(level + ":"), color.Reset.String()
	}
}

func runLint(cmd *cobra.Command, args []string) error {
	var traceFile *os.File
	if flagTraceOffsets != "" {
		f, err := os.Create(flagTraceOffsets)
		if err != nil {
			return fmt.Errorf("dwarflint: can't create trace file: %w", err)
		}
		defer f.Close()
		traceFile = f
	}

	var traceOut io.Writer
	if traceFile != nil {
		traceOut = traceFile
	}
	logger := applog.New(flagVerbose, traceOut)

	opts := lint.Options{
		Strict:        flagStrict,
		GNU:           flagGNU,
		IgnoreMissing: flagIgnoreMissing,
		Quiet:         flagQuiet,
		Skip:          flagSkip,
		Color:         colorFunc(flagColor),
		Logger:        logger,
	}

	exitCodes := []int{0}

	for _, path := range args {
		sections, err := objfile.Load(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "dwarflint: %s: %v\n", path, err)
			exitCodes = append(exitCodes, 1)
			continue
		}

		out := cmd.OutOrStdout()
		if flagReport == "yaml" {
			out = io.Discard
		}
		report, err := lint.Run(path, sections, opts, out)
		if err != nil {
			fmt.Fprintf(os.Stderr, "dwarflint: %s: %v\n", path, err)
			exitCodes = append(exitCodes, 1)
			continue
		}

		if flagReport == "yaml" {
			if err := writeYAMLReport(cmd, report); err != nil {
				return err
			}
		}

		if report.ErrorCount > 0 {
			exitCodes = append(exitCodes, 1)
		}
	}

	worstExit := utils.Max(exitCodes)

	if worstExit != 0 {
		exitCode = worstExit
		return fmt.Errorf("dwarflint: one or more files failed validation")
	}
	return nil
}
