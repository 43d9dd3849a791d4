package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Load 初始化 Viper 配置
// cfgFile: 可选，用户显式指定的配置文件路径
func Load(cfgFile string) error {
	// 1. 默认值
	setDefaults()

	// 2. 配置搜索路径
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return err
		}

		// 当前目录 -> ./.deptrack -> ~/.deptrack
		viper.AddConfigPath(".")
		viper.AddConfigPath(".deptrack")
		viper.AddConfigPath(filepath.Join(home, ".deptrack"))

		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	// 3. 环境变量: DEPTRACK_STORAGE_PATH 对应 storage.path
	viper.SetEnvPrefix("DEPTRACK")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// 4. 配置文件可以没有，但格式错误必须报错
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("fatal error config file: %w", err)
		}
	} else {
		fmt.Fprintln(os.Stderr, "🔧 Using config file:", viper.ConfigFileUsed())
	}

	return nil
}

func setDefaults() {
	// 远程仓库
	wd, _ := os.Getwd()
	viper.SetDefault("storage.type", "disk")
	viper.SetDefault("storage.path", filepath.Join(wd, ".deptrack", "repository"))

	viper.SetDefault("s3.region", "us-east-1")

	// 基线缓存，redis_url 为空表示不启用
	viper.SetDefault("cache.redis_url", "")
	viper.SetDefault("cache.ttl", 10*time.Minute)

	// 台账
	viper.SetDefault("ledger.type", "none")
	viper.SetDefault("ledger.path", filepath.Join(wd, ".deptrack", "ledger.db"))
	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.sslmode", "disable")

	// 协调服务
	viper.SetDefault("coordinator.addr", "")
	viper.SetDefault("server.listen", ":7070")

	viper.SetDefault("fingerprint.workers", runtime.NumCPU())
}
