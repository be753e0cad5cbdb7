package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"igvision/pkg/auth"
	"igvision/pkg/ui"
)

// authCmd represents the auth command
var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage API credentials",
	Long: `Manage stored API credentials securely.

Credentials are stored using:
  - System keychain (when available)
  - Encrypted file with PBKDF2 key derivation
  - Environment variables (read-only fallback)

Never share your tokens or config files!`,
}

// loginCmd represents the auth login command
var loginCmd = &cobra.Command{
	Use:   "login [name]",
	Short: "Store API credentials securely",
	Long: `Store API credentials securely in the system keychain or encrypted file.

You will be prompted for:
  - Account name (if not provided)
  - Apify API token
  - Path to a Google service account JSON file (optional)

To get an Apify token, open https://console.apify.com and go to
Settings > API & Integrations. For Vision analysis, create a service
account key in the Google Cloud console with the Vision API enabled.`,
	Example: `  # Interactive login
  igvision auth login

  # Login with account name
  igvision auth login work`,
	Args: cobra.MaximumNArgs(1),
	Run:  runLogin,
}

// logoutCmd represents the auth logout command
var logoutCmd = &cobra.Command{
	Use:   "logout [name]",
	Short: "Remove stored credentials",
	Long: `Remove stored API credentials.

If no account name is provided, you will be shown a list of stored
accounts to choose from. You can also remove all accounts at once.`,
	Example: `  # Interactive logout
  igvision auth logout

  # Logout specific account
  igvision auth logout work`,
	Args: cobra.MaximumNArgs(1),
	Run:  runLogout,
}

// authListCmd represents the auth list command
var authListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all stored accounts",
	Long:  `List all stored accounts with sanitized credential information.`,
	Run:   runList,
}

func init() {
	rootCmd.AddCommand(authCmd)
	authCmd.AddCommand(loginCmd)
	authCmd.AddCommand(logoutCmd)
	authCmd.AddCommand(authListCmd)
}

func runLogin(cmd *cobra.Command, args []string) {
	manager, err := auth.NewManager()
	if err != nil {
		ui.PrintError("Failed to initialize credential manager", err.Error())
		os.Exit(1)
	}

	var name string
	if len(args) > 0 {
		name = args[0]
	}

	reader := bufio.NewReader(os.Stdin)

	auth.ShowCredentialSetupGuide()

	fmt.Print("Ready to enter your credentials? (Y/n): ")
	ready, _ := reader.ReadString('\n')
	if strings.ToLower(strings.TrimSpace(ready)) == "n" {
		fmt.Println("\nRun 'igvision auth login' when you're ready.")
		return
	}

	fmt.Println()

	if name == "" {
		fmt.Print("📛 Account name [default]: ")
		input, err := reader.ReadString('\n')
		if err != nil {
			ui.PrintError("Failed to read account name", err.Error())
			os.Exit(1)
		}
		name = strings.TrimSpace(input)
		if name == "" {
			name = "default"
		}
	}

	if existing, _ := manager.Retrieve(name); existing != nil {
		fmt.Printf("\n⚠️  Account '%s' already exists. Update credentials? (y/N): ", name)
		input, _ := reader.ReadString('\n')
		if !strings.HasPrefix(strings.ToLower(strings.TrimSpace(input)), "y") {
			return
		}
	}

	fmt.Println("\n🔐 Enter your Apify token (it will be hidden as you type):")
	fmt.Println()

	var token string
	for {
		fmt.Printf("Apify API token: ")
		token, err = readPassword()
		if err != nil {
			ui.PrintError("Failed to read token", err.Error())
			os.Exit(1)
		}

		if len(token) < 20 {
			fmt.Println("\n❌ That doesn't look like a valid Apify token.")
			fmt.Println("   It should be a long string, usually starting with 'apify_api_'.")
			fmt.Print("\nTry again? (Y/n): ")
			retryInput, _ := reader.ReadString('\n')
			if strings.ToLower(strings.TrimSpace(retryInput)) == "n" {
				os.Exit(1)
			}
			continue
		}
		break
	}

	fmt.Print("\n👁  Google service account JSON file (press Enter to skip): ")
	credsPath, _ := reader.ReadString('\n')
	credsPath = strings.TrimSpace(credsPath)
	if credsPath != "" {
		if _, err := os.Stat(credsPath); err != nil {
			ui.PrintWarning("Credentials file not readable, storing anyway", err)
		}
	}

	fmt.Println("\n📋 Summary:")
	fmt.Printf("   Account: %s\n", name)
	fmt.Printf("   Apify token: %s...%s (hidden)\n", token[:6], token[len(token)-4:])
	if credsPath != "" {
		fmt.Printf("   Vision credentials: %s\n", credsPath)
	} else {
		fmt.Println("   Vision credentials: none (analysis disabled)")
	}

	account := &auth.Account{
		Name:                  name,
		ApifyToken:            token,
		VisionCredentialsFile: credsPath,
		LastModified:          time.Now(),
	}

	fmt.Println("\n💾 Storing credentials securely...")
	if err := manager.Store(account); err != nil {
		ui.PrintError("Failed to store credentials", err.Error())
		os.Exit(1)
	}

	fmt.Println("\n🎉 Credentials stored successfully!")
	ui.PrintSuccess(fmt.Sprintf("Account saved: %s", name))

	fmt.Println("\n📖 Quick Start Guide:")
	fmt.Println("   Scrape any public profile:")
	fmt.Printf("   $ igvision scrape <instagram_username> --limit 10\n")
	fmt.Println("\n   Use specific account:")
	fmt.Printf("   $ igvision scrape <instagram_username> --account %s\n", name)
	fmt.Println("\n⚠️  Never share your tokens or config files!")
}

func runLogout(cmd *cobra.Command, args []string) {
	manager, err := auth.NewManager()
	if err != nil {
		ui.PrintError("Failed to initialize credential manager", err.Error())
		os.Exit(1)
	}

	if len(args) == 0 {
		accounts, err := manager.List()
		if err != nil || len(accounts) == 0 {
			ui.PrintError("No stored accounts found", "")
			return
		}

		if len(accounts) == 1 {
			account := accounts[0]
			reader := bufio.NewReader(os.Stdin)
			fmt.Printf("Remove account '%s'? (y/N): ", account.Name)
			input, _ := reader.ReadString('\n')
			if !strings.HasPrefix(strings.ToLower(strings.TrimSpace(input)), "y") {
				return
			}

			if err := manager.Delete(account.Name); err != nil {
				ui.PrintError("Failed to remove account", err.Error())
				os.Exit(1)
			}
			ui.PrintSuccess("Account removed: " + account.Name)
			return
		}

		fmt.Println("Select account to remove:")
		for i, account := range accounts {
			fmt.Printf("  %d. %s\n", i+1, account.Name)
		}
		fmt.Printf("  %d. Remove all accounts\n", len(accounts)+1)
		fmt.Printf("  0. Cancel\n\n")

		reader := bufio.NewReader(os.Stdin)
		fmt.Print("Choice: ")
		input, _ := reader.ReadString('\n')

		var choice int
		fmt.Sscanf(strings.TrimSpace(input), "%d", &choice)

		if choice == 0 {
			return
		} else if choice == len(accounts)+1 {
			fmt.Print("Remove ALL accounts? This cannot be undone! (yes/N): ")
			confirm, _ := reader.ReadString('\n')
			if strings.TrimSpace(confirm) != "yes" {
				return
			}

			if err := manager.DeleteAll(); err != nil {
				ui.PrintError("Failed to remove all accounts", err.Error())
				os.Exit(1)
			}
			ui.PrintSuccess("All accounts removed")
			return
		} else if choice > 0 && choice <= len(accounts) {
			account := accounts[choice-1]
			if err := manager.Delete(account.Name); err != nil {
				ui.PrintError("Failed to remove account", err.Error())
				os.Exit(1)
			}
			ui.PrintSuccess("Account removed: " + account.Name)
			return
		} else {
			ui.PrintError("Invalid choice", "")
			os.Exit(1)
		}
	}

	name := args[0]
	if err := manager.Delete(name); err != nil {
		ui.PrintError("Failed to remove account", err.Error())
		os.Exit(1)
	}
	ui.PrintSuccess("Account removed: " + name)
}

func runList(cmd *cobra.Command, args []string) {
	manager, err := auth.NewManager()
	if err != nil {
		ui.PrintError("Failed to initialize credential manager", err.Error())
		os.Exit(1)
	}

	accounts, err := manager.List()
	if err != nil {
		ui.PrintError("Failed to list accounts", err.Error())
		os.Exit(1)
	}

	if len(accounts) == 0 {
		ui.PrintInfo("No stored accounts", "Use 'igvision auth login' to add an account")
		return
	}

	ui.PrintHighlight("Stored Accounts")
	fmt.Println()

	for i, account := range accounts {
		sanitized := auth.SanitizeAccount(account)
		fmt.Printf("%d. Account: %s\n", i+1, sanitized.Name)
		fmt.Printf("   Apify token: %s\n", sanitized.ApifyToken)
		if sanitized.VisionCredentialsFile != "" {
			fmt.Printf("   Vision credentials: %s\n", sanitized.VisionCredentialsFile)
		}
		fmt.Printf("   Last Modified: %s\n", sanitized.LastModified.Format("2006-01-02 15:04:05"))
		fmt.Println()
	}
}

// readPassword reads a password from stdin without echoing
func readPassword() (string, error) {
	if term.IsTerminal(int(syscall.Stdin)) {
		password, err := term.ReadPassword(int(syscall.Stdin))
		fmt.Println()
		if err == nil {
			return string(password), nil
		}
	}

	// Fallback to regular input
	reader := bufio.NewReader(os.Stdin)
	input, err := reader.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(input), nil
}
