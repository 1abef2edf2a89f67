package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/tutorconnect/payment-bridge/internal/utils"
	"github.com/tutorconnect/payment-bridge/pkg/jwt"
)

func main() {
	adminToken := flag.Bool("admin-token", false, "also mint an admin token signed with ADMIN_JWT_SECRET")
	subject := flag.String("subject", "ops", "subject recorded as the actor on payout changes")
	expiry := flag.Duration("expiry", time.Hour, "admin token lifetime")
	webhookSecret := flag.Bool("webhook-secret", false, "also print a local webhook signing secret for cmd/mockwebhook")
	flag.Parse()

	fmt.Println("===========================================")
	fmt.Println("Secret Generator for the payment bridge")
	fmt.Println("===========================================")
	fmt.Println()

	secret := os.Getenv("ADMIN_JWT_SECRET")
	if secret == "" {
		generated, err := utils.GenerateAdminSecret()
		if err != nil {
			log.Fatalf("Failed to generate secret: %v", err)
		}
		secret = generated
		fmt.Println("Add this to your .env file:")
		fmt.Println()
		fmt.Printf("ADMIN_JWT_SECRET=%s\n", secret)
		fmt.Println()
	} else {
		fmt.Println("Using ADMIN_JWT_SECRET from the environment")
		fmt.Println()
	}

	if *webhookSecret {
		whsec, err := utils.GenerateWebhookSecret()
		if err != nil {
			log.Fatalf("Failed to generate webhook secret: %v", err)
		}
		fmt.Printf("STRIPE_WEBHOOK_SECRET=%s\n", whsec)
		fmt.Println()
	}

	if *adminToken {
		token, err := jwt.NewService(secret, *expiry).GenerateAccessToken(*subject, []string{jwt.RoleAdmin})
		if err != nil {
			log.Fatalf("Failed to mint admin token: %v", err)
		}
		fmt.Printf("Admin token for %q (expires in %s):\n\n%s\n\n", *subject, *expiry, token)
	}

	fmt.Println("IMPORTANT: keep these secrets out of version control")
	fmt.Println("===========================================")
}
