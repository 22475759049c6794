package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"mediagate/pkg/credentials"
	"mediagate/pkg/ui"
)

var credentialsCmd = &cobra.Command{
	Use:     "credentials",
	Aliases: []string{"creds"},
	Short:   "Manage upstream credentials",
	Long: `Manage upstream credentials such as the YouTube Data API key.

Credentials are stored using, in order of preference:
  - System keychain (when available)
  - Encrypted file with PBKDF2 key derivation
  - Environment variables (read only)

The server falls back to the stored YouTube key when API_KEY is not set.`,
}

var credentialsSetCmd = &cobra.Command{
	Use:   "set [name]",
	Short: "Store a credential",
	Long: `Store a credential. The secret is read from the terminal without
echo, or from stdin when it is not a terminal.

The name defaults to 'youtube'.`,
	Example: `  # Store the YouTube Data API key interactively
  mediagate credentials set

  # Pipe it in
  echo "$KEY" | mediagate credentials set youtube`,
	Args: cobra.MaximumNArgs(1),
	RunE: runCredentialsSet,
}

var credentialsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "List stored credentials with masked secrets",
	Args:  cobra.NoArgs,
	RunE:  runCredentialsShow,
}

var credentialsDeleteCmd = &cobra.Command{
	Use:   "delete [name]",
	Short: "Remove a credential from every writable store",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runCredentialsDelete,
}

func init() {
	rootCmd.AddCommand(credentialsCmd)
	credentialsCmd.AddCommand(credentialsSetCmd)
	credentialsCmd.AddCommand(credentialsShowCmd)
	credentialsCmd.AddCommand(credentialsDeleteCmd)
}

func credentialName(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return credentials.YouTubeAPIKey
}

func runCredentialsSet(cmd *cobra.Command, args []string) error {
	manager, err := credentials.NewManager("")
	if err != nil {
		return fmt.Errorf("failed to initialize credential manager: %w", err)
	}

	name := credentialName(args)
	secret, err := readSecret(cmd, fmt.Sprintf("Secret for %s: ", name))
	if err != nil {
		return err
	}

	if err := manager.Store(&credentials.Credential{Name: name, Secret: secret}); err != nil {
		return err
	}
	ui.PrintSuccess(cmd.OutOrStdout(), "Stored credential "+name)
	return nil
}

// readSecret prompts without echo on a terminal and reads one line otherwise
func readSecret(cmd *cobra.Command, prompt string) (string, error) {
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		fmt.Fprint(cmd.OutOrStdout(), prompt)
		raw, err := term.ReadPassword(fd)
		fmt.Fprintln(cmd.OutOrStdout())
		if err != nil {
			return "", fmt.Errorf("failed to read secret: %w", err)
		}
		return strings.TrimSpace(string(raw)), nil
	}

	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("failed to read secret: %w", err)
	}
	return strings.TrimSpace(line), nil
}

func runCredentialsShow(cmd *cobra.Command, args []string) error {
	manager, err := credentials.NewManager("")
	if err != nil {
		return fmt.Errorf("failed to initialize credential manager: %w", err)
	}

	creds, err := manager.List()
	if err != nil {
		return err
	}
	writeCredentials(cmd.OutOrStdout(), creds)
	return nil
}

// writeCredentials prints one row per credential with the secret masked
func writeCredentials(w io.Writer, creds []*credentials.Credential) {
	if len(creds) == 0 {
		fmt.Fprintln(w, ui.Dim("No credentials stored"))
		return
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tSECRET\tMODIFIED")
	for _, cred := range creds {
		safe := credentials.Sanitize(cred)
		modified := "-"
		if !safe.LastModified.IsZero() {
			modified = safe.LastModified.Format("2006-01-02 15:04")
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", safe.Name, safe.Secret, modified)
	}
	tw.Flush()
}

func runCredentialsDelete(cmd *cobra.Command, args []string) error {
	manager, err := credentials.NewManager("")
	if err != nil {
		return fmt.Errorf("failed to initialize credential manager: %w", err)
	}

	name := credentialName(args)
	if err := manager.Delete(name); err != nil {
		return err
	}
	ui.PrintSuccess(cmd.OutOrStdout(), "Deleted credential "+name)
	return nil
}
