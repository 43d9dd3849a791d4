package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"deptrack/pkg/app"
	"deptrack/pkg/config"
	"deptrack/pkg/manifest"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// DefaultManifest 未指定参数时在当前目录查找
const DefaultManifest = "deptrack.yaml"

var (
	cfgFile string
	verbose bool
	// 全局应用实例，供子命令使用
	DT *app.App
)

var rootCmd = &cobra.Command{
	Use:           "deptrack",
	Short:         "deptrack: dependency drift detection for multi-unit builds",
	SilenceUsage:  true,
	SilenceErrors: true,
	// PersistentPreRunE 会在所有子命令执行前运行
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level := slog.LevelInfo
		if verbose {
			level = slog.LevelDebug
		}
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

		var err error
		DT, err = app.NewApp(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to initialize deptrack: %w", err)
		}
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if DT != nil {
			return DT.Close()
		}
		return nil
	},
}

// Execute 是入口
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	cobra.OnInitialize(initConfig)

	// 1. 全局参数
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.deptrack/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log every tracked dependency line")

	// 2. 可以在 yaml 里写，也可以用参数覆盖
	bindFlag("storage-path", "storage.path", "", "Directory of the disk repository")
	bindFlag("coordinator", "coordinator.addr", "", "Address of deptrack-server for cross-process aggregation")
}

func bindFlag(flag, key, def, usage string) {
	rootCmd.PersistentFlags().String(flag, def, usage)
	if err := viper.BindPFlag(key, rootCmd.PersistentFlags().Lookup(flag)); err != nil {
		fmt.Println("Failed to bind flag:", err)
		os.Exit(1)
	}
}

// initConfig 读取配置文件和环境变量
func initConfig() {
	if err := config.Load(cfgFile); err != nil {
		fmt.Println("Config error:", err)
		os.Exit(1)
	}
}

// loadManifest 参数为空时读取当前目录的 deptrack.yaml
func loadManifest(args []string) (*manifest.Manifest, error) {
	path := DefaultManifest
	if len(args) > 0 {
		path = args[0]
	}
	return manifest.Load(path)
}

func requireApp() error {
	if DT == nil {
		return fmt.Errorf("app not initialized")
	}
	return nil
}
