package utils

import (
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// LoadConfig reads a .env file from the given path (if present) and binds all
// environment variables through viper so config keys can be resolved either
// from the file or the process environment.
func LoadConfig(path string) {
	_ = godotenv.Load(filepath.Join(path, ".env"))

	viper.SetConfigFile(filepath.Join(path, ".env"))
	viper.SetConfigType("env")
	viper.AutomaticEnv()
	_ = viper.ReadInConfig()
}
