package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"linkup/linkup-shell/internal/api"
	"linkup/linkup-shell/internal/auth"
)

var loginUsername string

// whoamiCmd runs the startup session check against the stored credentials.
var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show who the stored backend session belongs to",
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		a.Session().CheckSession(cmd.Context())
		printIdentity(cmd.OutOrStdout(), a.Session().Snapshot())
		return nil
	},
}

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in and store the backend session",
	Long: `Log in to the LinkUp backend and store the session cookie so the web
shell starts authenticated.

The password is read from LINKUP_PASSWORD or, when unset, from the first
line of standard input.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		username := strings.TrimSpace(loginUsername)
		if username == "" {
			return errors.New("--username is required")
		}
		password, err := readPassword(cmd.InOrStdin())
		if err != nil {
			return err
		}

		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		id, err := a.Session().Login(cmd.Context(), auth.Credentials{Username: username, Password: password})
		if err != nil {
			return fmt.Errorf("login failed: %s", api.Message(err, "Login failed"))
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s (%s)\n", id.Username, id.DisplayName())
		return nil
	},
}

// logoutCmd always drops the stored session, even if the backend call fails.
var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "End the backend session and forget the stored cookie",
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.Session().Logout(cmd.Context()); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "warning: backend logout failed: %v\n", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
		return nil
	},
}

func init() {
	loginCmd.Flags().StringVarP(&loginUsername, "username", "u", "", "LinkUp username")
}

func readPassword(in io.Reader) (string, error) {
	if p := os.Getenv("LINKUP_PASSWORD"); p != "" {
		return p, nil
	}
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read password: %w", err)
	}
	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		return "", errors.New("password is required (set LINKUP_PASSWORD or pipe it on stdin)")
	}
	return line, nil
}

func printIdentity(w io.Writer, st auth.State) {
	if !st.Authenticated() {
		fmt.Fprintln(w, "Not logged in")
		return
	}
	id := st.Identity
	fmt.Fprintf(w, "%s (%s)\n", id.Username, id.DisplayName())
	if id.Email != "" {
		fmt.Fprintf(w, "  email: %s\n", id.Email)
	}
	if id.IsPrimeMember {
		fmt.Fprintln(w, "  prime: yes")
	}
}
