// logcat 把标准输入的每一行写入按配置组装的日志工厂
//
//	tail -f app.out | logcat -c logging.yaml --category app --level warn
//	logcat dump --dir /var/lib/logkit --since 1h
package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/gocrud/logkit"
	"github.com/gocrud/logkit/config"
	"github.com/gocrud/logkit/logging"
	pebblestore "github.com/gocrud/logkit/pebble"
	"github.com/spf13/cobra"
)

const (
	configFlagName    = "config"
	configFlagShort   = "c"
	categoryFlagName  = "category"
	levelFlagName     = "level"
	minLevelFlagName  = "min-level"
	dirFlagName       = "dir"
	sinceFlagName     = "since"
	defaultCategory   = "logcat"
	defaultLineLevel  = "info"
	maxLineSize       = 1024 * 1024
	dumpCmdName       = "dump"
	dumpCmdShort      = "print records stored by the pebble sink as JSON lines"
	rootCmdShort      = "pipe stdin lines into the configured log sinks"
	categoryFlagUsage = "category used for every line"
	levelFlagUsage    = "level used for every line (trace, debug, info, warn, error)"
	minLevelFlagUsage = "override the configured minimum level"
	configFlagUsage   = "path to the logging YAML file; LOGKIT_ environment variables are applied on top"
	dirFlagUsage      = "pebble data directory"
	sinceFlagUsage    = "only print records newer than this duration, e.g. 30m"
)

// rootFlags 命令行参数
type rootFlags struct {
	configPath string
	category   string
	level      string
	minLevel   string
}

func (f *rootFlags) addFlags(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringVarP(&f.configPath, configFlagName, configFlagShort, "", configFlagUsage)
	flags.StringVar(&f.category, categoryFlagName, defaultCategory, categoryFlagUsage)
	flags.StringVar(&f.level, levelFlagName, defaultLineLevel, levelFlagUsage)
	flags.StringVar(&f.minLevel, minLevelFlagName, "", minLevelFlagUsage)
}

func main() {
	if err := rootCmd(os.Stdin).Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd(in io.Reader) *cobra.Command {
	flags := &rootFlags{}
	cmd := &cobra.Command{
		Use:   "logcat",
		Short: rootCmdShort,
		Args:  cobra.NoArgs,

		SilenceUsage: true,

		RunE: func(cmd *cobra.Command, _ []string) error {
			return runCat(in, flags)
		},
	}
	flags.addFlags(cmd)
	cmd.AddCommand(dumpCmd())
	return cmd
}

func runCat(in io.Reader, flags *rootFlags) error {
	level, err := logging.ParseLogLevel(flags.level)
	if err != nil {
		return err
	}

	opts, err := config.Load(flags.configPath)
	if err != nil {
		return err
	}
	if flags.minLevel != "" {
		opts.MinimumLevel = flags.minLevel
	}

	factory, err := logkit.NewFactory(opts)
	if err != nil {
		return err
	}
	defer factory.Dispose()

	logger, err := factory.CreateLogger(flags.category)
	if err != nil {
		return err
	}

	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if line == "" {
			continue
		}
		logger.Log(level, line)
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read input: %w", err)
	}
	return nil
}

func dumpCmd() *cobra.Command {
	var dir string
	var since time.Duration

	cmd := &cobra.Command{
		Use:   dumpCmdName,
		Short: dumpCmdShort,
		Args:  cobra.NoArgs,

		SilenceUsage: true,

		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := pebblestore.NewProvider(pebblestore.Options{Dir: dir})
			if err != nil {
				return err
			}
			defer store.Close()

			var from time.Time
			if since > 0 {
				from = time.Now().Add(-since)
			}

			encoder := json.NewEncoder(cmd.OutOrStdout())
			var encodeErr error
			err = store.Read(from, time.Time{}, func(record pebblestore.Record) bool {
				encodeErr = encoder.Encode(record)
				return encodeErr == nil
			})
			if err != nil {
				return err
			}
			return encodeErr
		},
	}

	cmd.Flags().StringVar(&dir, dirFlagName, "", dirFlagUsage)
	cmd.Flags().DurationVar(&since, sinceFlagName, 0, sinceFlagUsage)
	_ = cmd.MarkFlagRequired(dirFlagName)
	return cmd
}
