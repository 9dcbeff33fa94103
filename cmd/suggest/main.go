// Package main 提供 suggest 命令行客户端：填写建议、管理本地草稿并提交到中继端点。
package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"runtime"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"fitlog/backend/internal/client"
	"fitlog/backend/internal/config"
	"fitlog/backend/internal/draft"
	"fitlog/backend/internal/form"
	"fitlog/backend/internal/logger"
	"fitlog/backend/internal/scheduler"
	"fitlog/backend/internal/storage/sqlite"
)

const version = "1.0.0"

// errReported 错误已通过提示输出，main 不再重复打印
var errReported = errors.New("already reported")

var (
	cfg   *config.ClientConfig
	log   *zap.Logger
	db    *sqlite.Store
	relay *client.RelayClient
	ctrl  *form.Controller
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		if !errors.Is(err, errReported) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "suggest",
	Short: "Send product suggestions to the FitLog team",
	Long: `suggest fills in the suggestion form from flags, keeps a local draft
between runs and submits it to the suggestion relay.

The relay URL and draft location come from FITLOG_CLIENT_RELAY_URL and
FITLOG_CLIENT_DRAFT_PATH (a .env file in the working directory is read too).`,
	SilenceUsage:       true,
	SilenceErrors:      true,
	PersistentPreRunE:  setup,
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error { return teardown() },
}

func init() {
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(submitCmd)
	rootCmd.AddCommand(draftCmd)
	rootCmd.AddCommand(limitsCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "suggest v%s\n", version)
	},
}

// setup 加载配置并创建表单控制器
func setup(cmd *cobra.Command, args []string) error {
	if cmd.Name() == "version" {
		return nil
	}

	var err error
	cfg, err = config.LoadClient()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err = logger.NewLogger(logger.FromLogConfig("suggest", cfg.Log))
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	db, err = sqlite.Open(cfg.DraftPath)
	if err != nil {
		return fmt.Errorf("open draft store: %w", err)
	}

	relay = client.NewRelayClient(cfg.RelayURL, cfg.RequestTimeout, log)
	ctrl = form.New(
		draft.NewStore(db, log),
		relay,
		scheduler.NewReal(),
		newNotifier(cmd.ErrOrStderr()),
		form.Options{
			AutosaveInterval: cfg.AutosaveInterval,
			SubmitCooldown:   cfg.SubmitCooldown,
			Metadata:         clientMetadata,
		},
		log,
	)
	return nil
}

// teardown 停止控制器并释放资源
func teardown() error {
	if ctrl != nil {
		ctrl.Close()
	}
	if log != nil {
		_ = log.Sync()
	}
	if db != nil {
		return db.Close()
	}
	return nil
}

// newNotifier 将提示输出到 stderr
func newNotifier(w io.Writer) form.Notifier {
	return form.NotifierFunc(func(level form.NoticeLevel, message string) {
		fmt.Fprintf(w, "[%s] %s\n", level, message)
	})
}

// clientMetadata 随提交附带的客户端信息
func clientMetadata() map[string]any {
	return map[string]any{
		"client":  "suggest-cli",
		"version": version,
		"os":      runtime.GOOS,
		"arch":    runtime.GOARCH,
	}
}
