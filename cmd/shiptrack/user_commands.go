package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"shiptrack/internal/access"
	"shiptrack/internal/api"
	"shiptrack/internal/jobs"
)

func newUserCommand(ctx *commandContext) *cobra.Command {
	userCmd := &cobra.Command{
		Use:   "user",
		Short: "Manage the user directory",
		Long:  "Manage the user directory. These commands open the job store directly.",
	}
	userCmd.AddCommand(newUserAddCommand(ctx))
	userCmd.AddCommand(newUserListCommand(ctx))
	return userCmd
}

func newUserAddCommand(ctx *commandContext) *cobra.Command {
	var name, email, role string
	var admin bool
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a user",
		RunE: func(cmd *cobra.Command, args []string) error {
			parsed, ok := access.ParseRole(role)
			if !ok {
				return fmt.Errorf("unknown role %q (valid: %s)", role, roleNames())
			}
			return ctx.withStore(func(store *jobs.Store) error {
				created, err := store.CreateUser(cmd.Context(), access.User{
					Name:    name,
					Email:   email,
					Role:    parsed,
					IsAdmin: admin,
				})
				if err != nil {
					return err
				}
				if ctx.jsonMode() {
					return writeJSON(cmd, api.FromUser(created))
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Added user %s (#%d) as %s\n", created.Name, created.ID, displayLabel(string(created.Role)))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "Display name")
	cmd.Flags().StringVar(&email, "email", "", "Unique email address")
	cmd.Flags().StringVar(&role, "role", "", "Role: "+roleNames())
	cmd.Flags().BoolVar(&admin, "admin", false, "Grant full access regardless of role")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("role")
	return cmd
}

func newUserListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List users",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(store *jobs.Store) error {
				users, err := store.ListUsers(cmd.Context())
				if err != nil {
					return err
				}
				list := make([]api.User, 0, len(users))
				for _, user := range users {
					list = append(list, api.FromUser(user))
				}
				if ctx.jsonMode() {
					return writeJSON(cmd, list)
				}
				if len(list) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No users found")
					return nil
				}
				rows := make([][]string, 0, len(list))
				for _, user := range list {
					adminFlag := ""
					if user.IsAdmin {
						adminFlag = "yes"
					}
					rows = append(rows, []string{strconv.FormatInt(user.ID, 10), user.Name, user.Email, displayLabel(user.Role), adminFlag})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]column{numCol("ID"), textCol("Name"), textCol("Email"), textCol("Role"), textCol("Admin")},
					rows,
				))
				return nil
			})
		},
	}
}

func roleNames() string {
	roles := access.AllRoles()
	names := make([]string, 0, len(roles))
	for _, role := range roles {
		names = append(names, string(role))
	}
	return strings.Join(names, ", ")
}
