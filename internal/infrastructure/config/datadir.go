package config

import (
	"os"
	"path/filepath"
	"sync"
)

const (
	// EnvDataDir 数据目录环境变量名
	EnvDataDir = "OLIVIA_DATA_DIR"
	// DefaultDataDirName 默认数据目录名
	DefaultDataDirName = ".olivia"
)

var (
	dataDirOnce sync.Once
	dataDirPath string
)

// GetDataDir 获取数据根目录
// 优先读取 OLIVIA_DATA_DIR 环境变量，默认 ~/.olivia/
// 此函数是所有数据路径的唯一入口，禁止直接拼接 homeDir + ".olivia"
func GetDataDir() string {
	dataDirOnce.Do(func() {
		if dir := os.Getenv(EnvDataDir); dir != "" {
			dataDirPath = dir
		} else {
			homeDir, err := os.UserHomeDir()
			if err != nil {
				// 回退到当前目录
				dataDirPath = DefaultDataDirName
				return
			}
			dataDirPath = filepath.Join(homeDir, DefaultDataDirName)
		}
	})
	return dataDirPath
}

// GetUploadDir 获取上传文件暂存目录
func GetUploadDir() string {
	return filepath.Join(GetDataDir(), "uploads")
}

// ResetDataDir 重置数据目录缓存（仅用于测试）
func ResetDataDir() {
	dataDirOnce = sync.Once{}
	dataDirPath = ""
}
