package auth

import (
	"fmt"
	"strings"
)

// ShowCredentialSetupGuide displays step-by-step instructions for
// obtaining the two credentials the tool needs
func ShowCredentialSetupGuide() {
	fmt.Println(strings.Repeat("=", 80))
	fmt.Println("📚 CREDENTIAL SETUP GUIDE")
	fmt.Println(strings.Repeat("=", 80))
	fmt.Println()

	fmt.Println("This tool needs two credentials: an Apify API token for scraping and")
	fmt.Println("(optionally) a Google Cloud service account for Vision analysis.")
	fmt.Println()

	fmt.Println("🔑 STEP 1: Get an Apify API token")
	fmt.Println("   - Go to https://console.apify.com and sign in (free tier works)")
	fmt.Println("   - Open Settings → API & Integrations")
	fmt.Println("   - Copy your personal API token (starts with 'apify_api_')")
	fmt.Println()

	fmt.Println("👁  STEP 2: Create a Google Cloud service account (optional)")
	fmt.Println("   - Go to https://console.cloud.google.com and create or pick a project")
	fmt.Println("   - Enable the Cloud Vision API for the project")
	fmt.Println("   - Create a service account under IAM & Admin → Service Accounts")
	fmt.Println("   - Create a JSON key for it and download the file")
	fmt.Println("   - Note the file path; you will be asked for it")
	fmt.Println()

	fmt.Println("💾 STEP 3: Store the credentials")
	fmt.Println("   Run: igvision auth login")
	fmt.Println("   Or export them instead:")
	fmt.Println("     export IGVISION_APIFY_TOKEN=apify_api_...")
	fmt.Println("     export IGVISION_VISION_CREDENTIALS=/path/to/service-account.json")
	fmt.Println()

	fmt.Println("💡 TIPS:")
	fmt.Println("   • Skipping the Vision credentials disables analysis but not scraping")
	fmt.Println("   • Actor runs consume Apify platform credits; small limits are cheap")
	fmt.Println()

	fmt.Println("⚠️  SECURITY WARNING:")
	fmt.Println("   • The Apify token gives full access to your Apify account")
	fmt.Println("   • NEVER share it or commit it to version control")
	fmt.Println("   • Store it with this tool (keychain or encrypted file) or env vars")
	fmt.Println()
	fmt.Println(strings.Repeat("=", 80))
	fmt.Println()
}

// ShowQuickSetupGuide shows a condensed version for experienced users
func ShowQuickSetupGuide() {
	fmt.Println("\n🔑 Quick Guide: console.apify.com → Settings → API & Integrations → copy token")
	fmt.Println("   Vision (optional): GCP project → enable Vision API → service account JSON key")
	fmt.Println("   Type 'help' for detailed instructions")
}
