// Copyright (c) 2025 ToeiRei
// Certmaster - SSH certificate authority service
// This source code is licensed under the MIT license found in the LICENSE file.

// admin.go holds the inventory commands: users, hosts, principals and
// the grants that tie them together.
package main

import (
	"fmt"
	"log"
	"strings"

	"github.com/spf13/cobra"

	"github.com/toeirei/certmaster/internal/authz"
	"github.com/toeirei/certmaster/internal/db"
	"github.com/toeirei/certmaster/internal/i18n"
)

// authorizedPrincipals evaluates the login gate against the default store.
func authorizedPrincipals(user, host string) ([]string, error) {
	return authz.AuthorizedPrincipals(db.DefaultStore(), user, host)
}

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage users",
}

var userAddCmd = &cobra.Command{
	Use:   "add <username>",
	Short: "Add a new user",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if _, err := db.AddUser(args[0]); err != nil {
			log.Fatalf("%s: %v", i18n.T("cli.user_add_failed"), err)
		}
		fmt.Printf("%s: %s\n", i18n.T("cli.user_added"), args[0])
	},
}

var userListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all users",
	Run: func(cmd *cobra.Command, args []string) {
		users, err := db.GetAllUsers()
		if err != nil {
			log.Fatalf("Error listing users: %v", err)
		}
		for _, u := range users {
			state := "active"
			if !u.IsActive {
				state = "inactive"
			}
			grants, err := db.GrantedPrincipalsForUser(u.Username)
			if err != nil {
				log.Fatalf("Error listing grants for %s: %v", u.Username, err)
			}
			fmt.Printf("%-24s %-8s %s\n", u.Username, state, strings.Join(grants, ","))
		}
	},
}

var userActivateCmd = &cobra.Command{
	Use:   "activate <username>",
	Short: "Mark a user active",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		setUserActive(args[0], true)
	},
}

var userDeactivateCmd = &cobra.Command{
	Use:   "deactivate <username>",
	Short: "Mark a user inactive; all authorization collapses to deny",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		setUserActive(args[0], false)
	},
}

func setUserActive(username string, active bool) {
	if err := db.SetUserActive(username, active); err != nil {
		log.Fatalf("Error updating user '%s': %v", username, err)
	}
	if active {
		fmt.Printf("%s: %s\n", i18n.T("cli.user_activated"), username)
	} else {
		fmt.Printf("%s: %s\n", i18n.T("cli.user_deactivated"), username)
	}
}

var hostCmd = &cobra.Command{
	Use:   "host",
	Short: "Manage hosts",
}

var hostAddCmd = &cobra.Command{
	Use:   "add <hostname>",
	Short: "Add a new host",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if _, err := db.AddHost(args[0]); err != nil {
			log.Fatalf("%s: %v", i18n.T("cli.host_add_failed"), err)
		}
		fmt.Printf("%s: %s\n", i18n.T("cli.host_added"), args[0])
	},
}

var hostListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all hosts",
	Run: func(cmd *cobra.Command, args []string) {
		hosts, err := db.GetAllHosts()
		if err != nil {
			log.Fatalf("Error listing hosts: %v", err)
		}
		for _, h := range hosts {
			grants, err := db.GrantedPrincipalsForHost(h.Hostname)
			if err != nil {
				log.Fatalf("Error listing grants for %s: %v", h.Hostname, err)
			}
			fmt.Printf("%-32s %s\n", h.Hostname, strings.Join(grants, ","))
		}
	},
}

var principalCmd = &cobra.Command{
	Use:   "principal",
	Short: "Manage principals",
}

var principalAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Add a new principal",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if _, err := db.AddPrincipal(args[0]); err != nil {
			log.Fatalf("%s: %v", i18n.T("cli.principal_add_failed"), err)
		}
		fmt.Printf("%s: %s\n", i18n.T("cli.principal_added"), args[0])
	},
}

var principalListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all principals",
	Run: func(cmd *cobra.Command, args []string) {
		principals, err := db.GetAllPrincipals()
		if err != nil {
			log.Fatalf("Error listing principals: %v", err)
		}
		for _, p := range principals {
			fmt.Println(p.Name)
		}
	},
}

// grantCmd attaches a principal to a user or host.
var grantCmd = &cobra.Command{
	Use:   "grant <user|host> <name> <principal>",
	Short: "Grant a principal to a user or host",
	Args:  cobra.ExactArgs(3),
	Run: func(cmd *cobra.Command, args []string) {
		kind, name, principal := args[0], args[1], args[2]
		var err error
		switch kind {
		case "user":
			err = db.GrantUserPrincipal(name, principal)
		case "host":
			err = db.GrantHostPrincipal(name, principal)
		default:
			log.Fatalf("Unknown grant target '%s' (want user or host)", kind)
		}
		if err != nil {
			log.Fatalf("%s: %v", i18n.T("cli.grant_failed"), err)
		}
		fmt.Printf("%s: %s -> %s\n", i18n.T("cli.grant_success"), name, principal)
	},
}

// ungrantCmd detaches a principal from a user or host.
var ungrantCmd = &cobra.Command{
	Use:   "ungrant <user|host> <name> <principal>",
	Short: "Remove a principal grant from a user or host",
	Args:  cobra.ExactArgs(3),
	Run: func(cmd *cobra.Command, args []string) {
		kind, name, principal := args[0], args[1], args[2]
		var err error
		switch kind {
		case "user":
			err = db.RevokeUserPrincipal(name, principal)
		case "host":
			err = db.RevokeHostPrincipal(name, principal)
		default:
			log.Fatalf("Unknown grant target '%s' (want user or host)", kind)
		}
		if err != nil {
			log.Fatalf("%s: %v", i18n.T("cli.ungrant_failed"), err)
		}
		fmt.Printf("%s: %s -> %s\n", i18n.T("cli.ungrant_success"), name, principal)
	},
}

func init() {
	userCmd.AddCommand(userAddCmd)
	userCmd.AddCommand(userListCmd)
	userCmd.AddCommand(userActivateCmd)
	userCmd.AddCommand(userDeactivateCmd)
	hostCmd.AddCommand(hostAddCmd)
	hostCmd.AddCommand(hostListCmd)
	principalCmd.AddCommand(principalAddCmd)
	principalCmd.AddCommand(principalListCmd)
}
