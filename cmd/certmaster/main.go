// Copyright (c) 2025 ToeiRei
// Certmaster - SSH certificate authority service
// This source code is licensed under the MIT license found in the LICENSE file.

// main.go sets up the command-line interface (CLI) for the Certmaster
// application using the Cobra library. It defines the root command,
// subcommands (like serve, issue, revoke), flags, and the main entry
// point for execution.
package main

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/toeirei/certmaster/internal/db"
	"github.com/toeirei/certmaster/internal/i18n"
	"github.com/toeirei/certmaster/internal/issue"
	"github.com/toeirei/certmaster/internal/logging"
	"github.com/toeirei/certmaster/internal/signer"
)

var version = "dev" // this will be set by the linker
var cfgFile string

// main is the entry point of the application.
func main() {
	if err := rootCmd.Execute(); err != nil {
		// The error is already printed by Cobra on failure.
		os.Exit(1)
	}
}

var rootCmd *cobra.Command

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd = newRootCmd()

	// Set defaults in viper. These are used if not set in the config file or by flags.
	viper.SetDefault("database.type", "sqlite")
	viper.SetDefault("database.dsn", "./certmaster.db")
	viper.SetDefault("language", "en")
	viper.SetDefault("debug", false)
	viper.SetDefault("server.addr", ":8080")
	viper.SetDefault("signer.ca_key", "/keys/ssh_user_ca")
	viper.SetDefault("signer.binary", "ssh-keygen")
	viper.SetDefault("signer.timeout", signer.DefaultTimeout.String())
	viper.SetDefault("cert.default_ttl", "16h")
}

// newRootCmd creates and configures a new root cobra command.
// This function is used to create the main application command as well as
// fresh instances for isolated testing.
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "certmaster",
		Short: "Certmaster is a lightweight SSH user certificate authority.",
		Long: `Certmaster signs short-lived SSH user certificates and decides,
at login time, which principals a user may assume on a given host.
A database of users, hosts and principal grants becomes the source
of truth; sshd consumes the authorized-principals and revoked-keys
feeds directly.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Initialize logging, i18n and the database for all commands.
			// Viper has already read the config by this point.
			i18n.Init(viper.GetString("language"))
			logging.SetDebug(viper.GetBool("debug"))
			db.SetDebug(viper.GetBool("debug"))
			dbType := viper.GetString("database.type")
			dsn := viper.GetString("database.dsn")
			if err := db.InitDB(dbType, dsn); err != nil {
				return fmt.Errorf("%s: %w", i18n.T("cli.error_init_db"), err)
			}
			return nil
		},
		Run: func(cmd *cobra.Command, args []string) {
			_ = cmd.Help()
		},
	}

	// Add subcommands to the newly created root command.
	cmd.AddCommand(serveCmd)
	cmd.AddCommand(issueCmd)
	cmd.AddCommand(revokeCmd)
	cmd.AddCommand(principalsCmd)
	cmd.AddCommand(revokedCmd)
	cmd.AddCommand(auditCmd)
	cmd.AddCommand(exportCmd)
	cmd.AddCommand(maintainCmd)
	cmd.AddCommand(userCmd)
	cmd.AddCommand(hostCmd)
	cmd.AddCommand(principalCmd)
	cmd.AddCommand(grantCmd)
	cmd.AddCommand(ungrantCmd)
	cmd.AddCommand(caCmd)
	cmd.AddCommand(configCmd)

	// Set version
	cmd.Version = version

	// Define flags
	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./certmaster.yaml)")
	cmd.PersistentFlags().String("db-type", "sqlite", "Database type (e.g., sqlite, postgres, mysql)")
	cmd.PersistentFlags().String("db-dsn", "./certmaster.db", "Database connection string (DSN)")
	cmd.PersistentFlags().String("lang", "en", `CLI language ("en", "de")`)
	cmd.PersistentFlags().Bool("debug", false, "Enable debug logging")

	// Bind flags to viper
	_ = viper.BindPFlag("database.type", cmd.PersistentFlags().Lookup("db-type"))
	_ = viper.BindPFlag("database.dsn", cmd.PersistentFlags().Lookup("db-dsn"))
	_ = viper.BindPFlag("language", cmd.PersistentFlags().Lookup("lang"))
	_ = viper.BindPFlag("debug", cmd.PersistentFlags().Lookup("debug"))

	return cmd
}

// initConfig reads in a configuration file and environment variables.
// It uses Viper to search for a config file (certmaster.yaml) in the home
// and current directories. If a config file is not found, it attempts to
// create a default one. It also binds environment variables prefixed with
// "CERTMASTER".
func initConfig() {
	if cfgFile != "" {
		// Use config file from the flag.
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		viper.AddConfigPath(home)
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(".certmaster")
	}

	viper.SetEnvPrefix("CERTMASTER")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv() // read in environment variables that match

	// If a config file is found, read it in.
	if err := viper.ReadInConfig(); err != nil {
		// If the config file is not found, we can create one with default values
		// to make configuration discoverable for the user.
		if _, ok := err.(viper.ConfigFileNotFoundError); ok && cfgFile == "" {
			const defaultConfigPath = ".certmaster.yaml"
			defaultContent := `# Certmaster configuration file.
# This file is automatically generated with default values.

database:
  # The type of database to use. Supported values: "sqlite", "postgres", "mysql".
  # Note: PostgreSQL and MySQL support is experimental.
  type: sqlite

  # The Data Source Name (DSN) for the database connection.
  # For SQLite, this is the path to the database file.
  dsn: ./certmaster.db

# The default language for CLI output. Supported: "en", "de".
language: en

server:
  # Listen address for the HTTP API.
  addr: ":8080"

signer:
  # Path to the CA private key handed to ssh-keygen -s.
  ca_key: /keys/ssh_user_ca
  # Signing tool and per-invocation timeout.
  binary: ssh-keygen
  timeout: 10s

cert:
  # TTL applied when a sign request carries none.
  default_ttl: 16h
`
			// If writing fails (e.g., due to permissions), we don't treat it as a
			// fatal error. The app will simply run with the default values set in memory.
			if err := os.WriteFile(defaultConfigPath, []byte(defaultContent), 0644); err == nil {
				fmt.Println("No config file found. Created a default '.certmaster.yaml' in the current directory.")
			}
		}
	}
}

// newIssuer wires the configured signer and default TTL into an Issuer
// backed by the initialized store.
func newIssuer() *issue.Issuer {
	sgn := &signer.KeygenSigner{
		CAKeyPath: viper.GetString("signer.ca_key"),
		Binary:    viper.GetString("signer.binary"),
		Timeout:   viper.GetDuration("signer.timeout"),
	}
	return issue.New(db.DefaultStore(), sgn, issue.WithDefaultTTL(viper.GetString("cert.default_ttl")))
}

// issueCmd signs a public key file from the command line.
var issueCmd = &cobra.Command{
	Use:   "issue <username> <pubkey-file>",
	Short: "Issue a certificate for a user's public key",
	Long: `Signs the given OpenSSH public key file for the named user.
The requested principals must be a subset of the user's grants.
The certificate is printed to stdout.`,
	Args: cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		username, keyPath := args[0], args[1]
		pubkey, err := os.ReadFile(keyPath)
		if err != nil {
			log.Fatalf("Error reading public key file: %v", err)
		}
		principals, _ := cmd.Flags().GetStringSlice("principal")
		ttlFlag, _ := cmd.Flags().GetString("ttl")
		keyID, _ := cmd.Flags().GetString("key-id")

		res, err := newIssuer().Issue(cmd.Context(), issue.Request{
			Username:   username,
			Principals: principals,
			PublicKey:  string(pubkey),
			TTL:        ttlFlag,
			KeyID:      keyID,
		})
		if err != nil {
			log.Fatalf("%s: %v", i18n.T("cli.issue_failed"), err)
		}
		logging.Infof("%s: key_id=%s serial=%d", i18n.T("cli.issue_success"), res.KeyID, res.Serial)
		fmt.Println(res.Certificate)
	},
}

// revokeCmd marks an issued certificate revoked by serial.
var revokeCmd = &cobra.Command{
	Use:   "revoke <serial>",
	Short: "Revoke an issued certificate by serial",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		serial, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			log.Fatalf("Invalid serial '%s': %v", args[0], err)
		}
		if err := db.RevokeSerial(serial); err != nil {
			if errors.Is(err, db.ErrNotFound) {
				log.Fatalf("%s: %d", i18n.T("cli.revoke_unknown_serial"), serial)
			}
			log.Fatalf("Error revoking serial %d: %v", serial, err)
		}
		fmt.Printf("%s: %d\n", i18n.T("cli.revoke_success"), serial)
	},
}

// principalsCmd prints the login-gate allow-list for a (user, host) pair.
var principalsCmd = &cobra.Command{
	Use:   "principals <user> <host>",
	Short: "Show the principals a user may assume on a host",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		allowed, err := authorizedPrincipals(args[0], args[1])
		if err != nil {
			log.Fatalf("Error evaluating principals: %v", err)
		}
		if len(allowed) == 0 {
			logging.Infof("%s", i18n.T("cli.principals_none"))
			return
		}
		for _, p := range allowed {
			fmt.Println(p)
		}
	},
}

// revokedCmd prints the revoked-serials feed.
var revokedCmd = &cobra.Command{
	Use:   "revoked",
	Short: "Print the revoked-serials feed",
	Run: func(cmd *cobra.Command, args []string) {
		serials, err := db.RevokedSerials()
		if err != nil {
			log.Fatalf("Error listing revoked serials: %v", err)
		}
		for _, s := range serials {
			fmt.Printf("@revoked serial:%d\n", s)
		}
	},
}

// auditCmd prints the audit log, most recent first.
var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Print the audit log",
	Run: func(cmd *cobra.Command, args []string) {
		entries, err := db.GetAllAuditLogEntries()
		if err != nil {
			log.Fatalf("Error reading audit log: %v", err)
		}
		if len(entries) == 0 {
			fmt.Println(i18n.T("cli.audit_empty"))
			return
		}
		for _, e := range entries {
			fmt.Printf("%s  %-24s %s\n", e.Timestamp, e.Action, e.Details)
		}
	},
}

// maintainCmd runs engine-specific database maintenance.
var maintainCmd = &cobra.Command{
	Use:   "maintain",
	Short: "Run database maintenance (vacuum, optimize)",
	Run: func(cmd *cobra.Command, args []string) {
		dbType := viper.GetString("database.type")
		dsn := viper.GetString("database.dsn")
		if err := db.RunDBMaintenance(dbType, dsn); err != nil {
			log.Fatalf("Maintenance failed: %v", err)
		}
		logging.Infof("maintenance completed for %s", dbType)
	},
}

func init() {
	issueCmd.Flags().StringSliceP("principal", "n", nil, "Principal to request (repeatable)")
	issueCmd.Flags().String("ttl", "", "Certificate validity (e.g. 8h, 1d12h); defaults to cert.default_ttl")
	issueCmd.Flags().String("key-id", "", "Certificate key identity; defaults to <username>-<timestamp>")
}
