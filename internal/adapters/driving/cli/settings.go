package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/mail2shivb/fileupload/internal/core/domain"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Manage application settings",
	Long: `View and configure credentials, endpoints and limits.

Environment variables named FILEUPLOAD_<SECTION>_<KEY> override stored
values, e.g. FILEUPLOAD_GRAPH_TENANT_ID overrides graph.tenant_id.`,
	RunE: runSettingsShow,
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current settings",
	RunE:  runSettingsShow,
}

var settingsWizardCmd = &cobra.Command{
	Use:   "wizard",
	Short: "Interactive setup wizard",
	Long:  `Run an interactive wizard to configure all required settings step by step.`,
	RunE:  runSettingsWizard,
}

func init() {
	settingsCmd.AddCommand(settingsShowCmd)
	settingsCmd.AddCommand(settingsWizardCmd)
	rootCmd.AddCommand(settingsCmd)
}

func runSettingsShow(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}
	s := settings.Redacted()

	cmd.Println(styles.Title.Render("Current Settings"))
	cmd.Println("================")
	cmd.Printf("File: %s\n", settingsService.Path())
	cmd.Println()

	cmd.Println("[Graph]")
	cmd.Printf("  Authority: %s\n", s.Graph.AuthorityHost)
	cmd.Printf("  Tenant ID: %s\n", valueOrUnset(s.Graph.TenantID))
	cmd.Printf("  Client ID: %s\n", valueOrUnset(s.Graph.ClientID))
	cmd.Printf("  Client Secret: %s\n", valueOrUnset(s.Graph.ClientSecret))
	cmd.Printf("  Base URL: %s\n", s.Graph.BaseURL)
	cmd.Printf("  Drive ID: %s\n", valueOrUnset(s.Graph.DriveID))
	cmd.Printf("  Parent Path: %s\n", s.Graph.ParentPath)
	cmd.Println()

	cmd.Println("[Retrieval]")
	cmd.Printf("  Endpoint: %s\n", valueOrUnset(s.Retrieval.Endpoint))
	cmd.Printf("  Top N: %d\n", s.Retrieval.TopN)
	cmd.Println()

	cmd.Println("[Completion]")
	cmd.Printf("  Endpoint: %s\n", valueOrUnset(s.Completion.Endpoint))
	if s.Completion.IsAzure() {
		cmd.Printf("  Deployment: %s\n", s.Completion.Deployment)
		cmd.Printf("  API Version: %s\n", s.Completion.APIVersion)
	} else {
		cmd.Printf("  Model: %s\n", valueOrUnset(s.Completion.Model))
	}
	cmd.Printf("  API Key: %s\n", valueOrUnset(s.Completion.APIKey))
	cmd.Printf("  Timeout: %s\n", s.Completion.Timeout)
	cmd.Println()

	cmd.Println("[Server]")
	cmd.Printf("  Address: %s\n", s.Server.Addr)
	cmd.Printf("  Request Timeout: %s\n", s.Server.RequestTimeout)
	cmd.Printf("  Max Upload: %d bytes\n", s.Server.MaxUploadBytes)
	cmd.Println()

	cmd.Println("[Limits]")
	cmd.Printf("  Retries: %d (%s..%s)\n", s.Retry.MaxRetries, s.Retry.InitialInterval, s.Retry.MaxInterval)
	cmd.Printf("  Rate: %.1f req/s, burst %d\n", s.RateLimit.RequestsPerSecond, s.RateLimit.Burst)
	cmd.Printf("  Upload Fragment: %d bytes\n", s.Upload.FragmentSize)
	cmd.Println()

	if err := settings.Validate(); err != nil {
		cmd.Println(styles.Warning.Render(fmt.Sprintf("Warning: %v", err)))
		cmd.Println("Run 'fileupload settings wizard' to fix configuration issues.")
	} else {
		cmd.Println("Configuration is valid.")
	}

	return nil
}

func runSettingsWizard(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}

	cmd.Println("fileupload Settings Wizard")
	cmd.Println("==========================")
	cmd.Println("Press Enter to keep the value in brackets.")
	cmd.Println()

	in := cmd.InOrStdin()
	reader := bufio.NewReader(in)

	cmd.Println("Step 1: Storage (Microsoft Graph)")
	cmd.Println("---------------------------------")
	settings.Graph.TenantID = prompt(cmd, reader, "Tenant ID", settings.Graph.TenantID)
	settings.Graph.ClientID = prompt(cmd, reader, "Client ID", settings.Graph.ClientID)
	settings.Graph.ClientSecret = promptSecret(cmd, in, reader, "Client secret", settings.Graph.ClientSecret)
	settings.Graph.DriveID = prompt(cmd, reader, "Drive ID", settings.Graph.DriveID)
	settings.Graph.ParentPath = prompt(cmd, reader, "Upload folder", settings.Graph.ParentPath)
	cmd.Println()

	cmd.Println("Step 2: Retrieval")
	cmd.Println("-----------------")
	settings.Retrieval.Endpoint = prompt(cmd, reader, "Retrieval endpoint", settings.Retrieval.Endpoint)
	topN := prompt(cmd, reader, "Passages per question", strconv.Itoa(settings.Retrieval.TopN))
	settings.Retrieval.TopN = parsePositive(topN, settings.Retrieval.TopN)
	cmd.Println()

	cmd.Println("Step 3: Completion")
	cmd.Println("------------------")
	settings.Completion.Endpoint = prompt(cmd, reader, "Completion endpoint", settings.Completion.Endpoint)
	settings.Completion.Deployment = prompt(cmd, reader,
		"Azure deployment (blank for OpenAI-compatible)", settings.Completion.Deployment)
	if settings.Completion.Deployment == "" {
		settings.Completion.Model = prompt(cmd, reader, "Model", settings.Completion.Model)
	}
	settings.Completion.APIKey = promptSecret(cmd, in, reader, "API key", settings.Completion.APIKey)
	cmd.Println()

	if err := settingsService.Save(settings); err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}

	cmd.Println("Configuration Complete!")
	cmd.Println("=======================")
	if err := settings.Validate(); err != nil {
		cmd.Printf("Warning: %v\n", err)
	} else {
		cmd.Printf("All settings are valid and saved to %s.\n", settingsService.Path())
	}

	return nil
}

// Helper functions.

func valueOrUnset(v string) string {
	if v == "" {
		return "(not set)"
	}
	return v
}

// prompt asks for a value, keeping current on empty input.
func prompt(cmd *cobra.Command, reader *bufio.Reader, label, current string) string {
	if current != "" {
		cmd.Printf("%s [%s]: ", label, current)
	} else {
		cmd.Printf("%s: ", label)
	}
	if v := readLine(reader); v != "" {
		return v
	}
	return current
}

// promptSecret asks for a secret without echo when reading from a terminal.
func promptSecret(cmd *cobra.Command, in io.Reader, reader *bufio.Reader, label, current string) string {
	if current != "" {
		cmd.Printf("%s [%s]: ", label, domain.MaskSecret(current))
	} else {
		cmd.Printf("%s: ", label)
	}
	v := readPassword(in, reader)
	cmd.Println()
	if v != "" {
		return v
	}
	return current
}

//nolint:errcheck // CLI helper, error ignored for UX
func readLine(reader *bufio.Reader) string {
	input, _ := reader.ReadString('\n')
	return strings.TrimSpace(input)
}

func parsePositive(input string, defaultVal int) int {
	val, err := strconv.Atoi(strings.TrimSpace(input))
	if err != nil || val < 1 {
		return defaultVal
	}
	return val
}

func readPassword(in io.Reader, reader *bufio.Reader) string {
	// Try to read password without echo
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		password, err := term.ReadPassword(int(f.Fd()))
		if err == nil {
			return strings.TrimSpace(string(password))
		}
	}
	// Fallback to regular input
	return readLine(reader)
}
