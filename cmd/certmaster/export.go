// Copyright (c) 2025 ToeiRei
// Certmaster - SSH certificate authority service
// This source code is licensed under the MIT license found in the LICENSE file.

package main

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/klauspost/compress/zstd"
	"github.com/spf13/cobra"

	"github.com/toeirei/certmaster/internal/db"
	"github.com/toeirei/certmaster/internal/i18n"
)

// exportCmd dumps the full inventory (users, hosts, principals, grants and
// issuance history) as YAML, optionally zstd-compressed for cold storage.
var exportCmd = &cobra.Command{
	Use:   "export [file]",
	Short: "Export the database as a YAML backup",
	Long: `Writes users, hosts, principals, grants and the issuance ledger as a
single YAML document. With no file argument the YAML is printed to
stdout. Files ending in .zst are compressed with zstd.`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		data, err := db.ExportDataForBackup()
		if err != nil {
			log.Fatalf("%s: %v", i18n.T("cli.export_failed"), err)
		}

		out, err := yaml.Marshal(data)
		if err != nil {
			log.Fatalf("Error encoding backup: %v", err)
		}

		if len(args) == 0 {
			fmt.Print(string(out))
			return
		}

		path := args[0]
		if strings.HasSuffix(path, ".zst") {
			f, err := os.Create(path)
			if err != nil {
				log.Fatalf("Error creating backup file: %v", err)
			}
			defer f.Close()
			enc, err := zstd.NewWriter(f)
			if err != nil {
				log.Fatalf("Error initializing compressor: %v", err)
			}
			if _, err := enc.Write(out); err != nil {
				log.Fatalf("Error writing backup: %v", err)
			}
			if err := enc.Close(); err != nil {
				log.Fatalf("Error finalizing backup: %v", err)
			}
		} else {
			if err := os.WriteFile(path, out, 0600); err != nil {
				log.Fatalf("Error writing backup: %v", err)
			}
		}

		_ = db.LogAction("EXPORT_BACKUP", fmt.Sprintf("file=%s at=%s", path, time.Now().UTC().Format(time.RFC3339)))
		fmt.Printf("%s: %s\n", i18n.T("cli.export_success"), path)
	},
}
