package utils

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

// LoadEnv loads key/value pairs from a dotenv file into the process
// environment. Variables that are already set keep their values. It returns
// false when the file does not exist and the existing environment is used as-is.
func LoadEnv(path string) (bool, error) {
	if path == "" {
		return false, nil
	}
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return false, nil
	}
	if err := godotenv.Load(path); err != nil {
		return false, fmt.Errorf("load env file %s: %w", path, err)
	}
	return true, nil
}

// ReadEnv parses a dotenv file without touching the process environment.
func ReadEnv(path string) (map[string]string, error) {
	values, err := godotenv.Read(path)
	if err != nil {
		return nil, fmt.Errorf("read env file %s: %w", path, err)
	}
	return values, nil
}

// WriteEnv writes values as a dotenv file, keys sorted.
func WriteEnv(path string, values map[string]string) error {
	if err := godotenv.Write(values, path); err != nil {
		return fmt.Errorf("write env file %s: %w", path, err)
	}
	return nil
}
