package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/samson-dev/samson-db/config"
	"github.com/samson-dev/samson-db/utils"
	"github.com/spf13/cobra"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Scaffold a .env file and a schema directory",
	Long: `Create a .env file with every connection key and a schema directory
holding a first schema file. Existing files are never overwritten; an existing
.env is checked for missing keys instead.

Examples:
  samson-db init
  samson-db init --env-file .env.test --schema-dir ./db/schema
`,
	Run: func(cmd *cobra.Command, args []string) {
		created, missing, err := scaffoldEnv(envFile)
		if err != nil {
			fmt.Println("❌ Failed to prepare env file:", err)
			os.Exit(1)
		}
		if created {
			fmt.Println("✅ Created", envFile)
			fmt.Println("📝 Edit the connection values before running migrate")
		} else if len(missing) > 0 {
			fmt.Printf("⚠️  %s exists but is missing:\n", envFile)
			for _, key := range missing {
				fmt.Println("   -", key)
			}
		} else {
			fmt.Println("✅", envFile, "already defines every required key")
		}

		dir := settings.GetString(config.KeySchemaDir)
		first, err := scaffoldSchema(dir)
		if err != nil {
			fmt.Println("❌ Failed to create schema directory:", err)
			os.Exit(1)
		}
		if first != "" {
			fmt.Println("✅ Created", first)
			fmt.Println("🚀 Run 'samson-db migrate' to apply it")
		} else {
			fmt.Println("📁", dir, "already contains schema files")
		}
	},
}

var requiredKeys = []string{
	config.KeyHost, config.KeyPort, config.KeyName, config.KeyUsername, config.KeyPassword,
}

// scaffoldEnv writes a template env file at path, or reports the required
// keys an existing one lacks.
func scaffoldEnv(path string) (created bool, missing []string, err error) {
	if _, statErr := os.Stat(path); statErr == nil {
		values, err := utils.ReadEnv(path)
		if err != nil {
			return false, nil, err
		}
		for _, key := range requiredKeys {
			if values[key] == "" {
				missing = append(missing, key)
			}
		}
		return false, missing, nil
	} else if !errors.Is(statErr, fs.ErrNotExist) {
		return false, nil, statErr
	}

	err = utils.WriteEnv(path, map[string]string{
		config.KeyDriver:    config.DriverPostgres,
		config.KeyHost:      "localhost",
		config.KeyPort:      "5432",
		config.KeyName:      "samson",
		config.KeyUsername:  "postgres",
		config.KeyPassword:  "postgres",
		config.KeySchema:    "public",
		config.KeySSLMode:   "disable",
		config.KeySchemaDir: config.DefaultSchemaDir,
		config.KeyLogLevel:  config.DefaultLogLevel,
		config.KeyBaseURL:   "http://localhost:8000",
	})
	if err != nil {
		return false, nil, err
	}
	return true, nil, nil
}

const initialSchema = `-- Schema files are applied in file name order on every migrate run.
-- Keep them idempotent.

CREATE TABLE IF NOT EXISTS retailer (
    id UUID PRIMARY KEY,
    name TEXT NOT NULL,
    created_at TIMESTAMP NOT NULL DEFAULT now(),
    updated_at TIMESTAMP
);

CREATE TABLE IF NOT EXISTS vendor (
    id UUID PRIMARY KEY,
    retailer_id UUID REFERENCES retailer(id),
    name TEXT NOT NULL,
    created_at TIMESTAMP NOT NULL DEFAULT now(),
    updated_at TIMESTAMP
);
`

// scaffoldSchema creates dir with a first schema file when it holds no
// regular files. It returns the created file path, or "" when nothing was
// written.
func scaffoldSchema(dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", err
	}
	for _, e := range entries {
		if e.Type().IsRegular() {
			return "", nil
		}
	}

	path := filepath.Join(dir, "001_init.sql")
	if err := os.WriteFile(path, []byte(initialSchema), 0o644); err != nil {
		return "", err
	}
	return path, nil
}
