package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime/debug"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/infermark/infermark/internal/log"
	"github.com/infermark/infermark/internal/model"
	"github.com/infermark/infermark/internal/run"
)

var (
	userConfigPath string // default config dir for infermark on given OS
	configPath     string // actual config file used (if loaded)
	config         model.Config

	flagConfigFilePath string // value of --config flag
	flagVerbose        bool   // value of --verbose flag
)

func init() {
	d, err := os.UserConfigDir()
	if err != nil {
		panic(err)
	}
	userConfigPath = filepath.Join(d, "infermark")
}

func main() {
	// root flags
	rootCmd.PersistentFlags().StringVar(&flagConfigFilePath, "config", "", "Config file to load - default is infermark.yaml in current directory or in "+userConfigPath)
	rootCmd.PersistentFlags().BoolVar(&flagVerbose, "verbose", false, "verbose logging")

	// run overrides, environment wins over config file
	runCmd.Flags().Int("port", 0, "port override for both servers")
	runCmd.Flags().String("model", "", "model identifier override")
	runCmd.Flags().String("cuda-device", "", "CUDA_VISIBLE_DEVICES override")
	_ = viper.BindPFlag("port", runCmd.Flags().Lookup("port"))
	_ = viper.BindPFlag("model", runCmd.Flags().Lookup("model"))
	_ = viper.BindPFlag("cuda-device", runCmd.Flags().Lookup("cuda-device"))
	_ = viper.BindEnv("cuda-device", "CUDA_VISIBLE_DEVICES")

	// never print messages
	rootCmd.SilenceErrors = true

	// parse or create a config, setup logging
	rootCmd.PersistentPreRunE = initInfermark

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(frameworksCmd)
	rootCmd.AddCommand(versionCmd)

	if err := rootCmd.Execute(); err != nil {
		slog.Error("infermark failed", "err", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:          "infermark",
	Short:        "Harness benchmarking inference frameworks one after another",
	SilenceUsage: true,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "run executes the configured benchmark sequence",
	RunE:  doRun,
}

var frameworksCmd = &cobra.Command{
	Use:   "frameworks",
	Short: "frameworks lists the benchmarkable frameworks",
	Run: func(cmd *cobra.Command, args []string) {
		for _, name := range run.Frameworks() {
			fmt.Println(name)
		}
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "version provides version of infermark",
	Run: func(cmd *cobra.Command, args []string) {
		if configPath != "" {
			fmt.Printf("config: %s\n", configPath)
		}
		info, ok := debug.ReadBuildInfo()
		printVersion(os.Stdout, info, ok)
	},
}

func printVersion(out io.Writer, info *debug.BuildInfo, ok bool) {
	if !ok || info == nil {
		fmt.Fprintln(out, "infermark: version info not available")
		return
	}

	fmt.Fprintf(out, "infermark: %s\n", info.Main.Version)
	fmt.Fprintf(out, "go:        %s\n", info.GoVersion)
	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			fmt.Fprintf(out, "commit: %s\n", s.Value)
		case "vcs.time":
			fmt.Fprintf(out, "date:   %s\n", s.Value)
		case "vcs.modified":
			fmt.Fprintf(out, "dirty:  %s\n", s.Value)
		}
	}
	fmt.Fprintln(out)
}

func doRun(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	// flag/env overrides beat the config file
	if port := viper.GetInt("port"); port != 0 {
		config.Port = port
	}
	if m := viper.GetString("model"); m != "" {
		config.Model = m
	}
	if dev := viper.GetString("cuda-device"); dev != "" {
		config.CudaDevice = dev
	}

	attrs := slog.Group("infermark",
		slog.String("run_id", uuid.NewString()),
		slog.Int("pid", os.Getpid()),
	)
	ctx = log.ContextAttrs(ctx, attrs)

	root, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("getting working directory: %w", err)
	}
	return run.Run(ctx, config, root)
}

func initInfermark(cmd *cobra.Command, _ []string) error {
	if envConfig, ok := os.LookupEnv("INFERMARKCONFIG"); ok {
		configPath = envConfig
	} else if flagConfigFilePath != "" {
		configPath = flagConfigFilePath
	} else {
		for _, d := range []string{userConfigPath, "."} {
			path := filepath.Join(d, "infermark.yaml")
			if exists(path) {
				configPath = path
				break
			}
		}
	}

	// store default configuration
	if configPath == "" {
		config = model.DefaultConfig()
		configPath = filepath.Join(userConfigPath, "infermark.yaml")
		err := os.MkdirAll(filepath.Dir(configPath), 0755)
		if err != nil {
			return fmt.Errorf("creating directory %s: %w", filepath.Dir(configPath), err)
		}

		f, err := os.Create(configPath)
		if err != nil {
			return fmt.Errorf("creating file %s: %w", configPath, err)
		}
		defer func() {
			_ = f.Close()
		}()
		enc := yaml.NewEncoder(f)
		if err := enc.Encode(config); err != nil {
			return fmt.Errorf("storing configuration: %w", err)
		}
	} else {
		f, err := os.Open(configPath)
		if err != nil {
			return fmt.Errorf("opening config file: %w", err)
		}
		defer func() {
			_ = f.Close()
		}()
		config, err = model.LoadConfig(f)
		if err != nil {
			for _, d := range model.CueErrDetails(err) {
				slog.Error(d)
			}
			return fmt.Errorf("parsing config: %w", err)
		}
	}

	// --verbose has a precedence over config file
	if flagVerbose {
		config.Service.Verbose = true
	}

	slog.SetDefault(log.New(config.Service.Verbose))

	slog.Debug("infermark run", "configPath", configPath)
	slog.Debug("infermark run", "config", config)
	return nil
}

func exists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
