// Command mockwebhook posts a signed checkout.session.completed event to a
// running payment bridge, for local testing without the Stripe CLI.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/tutorconnect/payment-bridge/pkg/gateway"
)

func main() {
	target := flag.String("url", "http://localhost:3000/payment-webhook", "webhook endpoint")
	secret := flag.String("secret", os.Getenv("STRIPE_WEBHOOK_SECRET"), "webhook signing secret")
	amount := flag.String("amount", "1500", "amount in major units")
	currency := flag.String("currency", "inr", "ISO currency code")
	bookingID := flag.String("booking", "", "bookingId metadata (omit to skip the booking update)")
	parentID := flag.String("parent", "parent_local", "parentId metadata")
	tutorID := flag.String("tutor", "tutor_local", "tutorId metadata")
	intentID := flag.String("intent", "", "payment intent id (empty for a session without one)")
	eventID := flag.String("event", "", "event id (reuse one to test redelivery)")
	eventType := flag.String("type", gateway.EventTypeCheckoutSessionCompleted, "event type")
	flag.Parse()

	if *secret == "" {
		log.Fatal("a signing secret is required (-secret or STRIPE_WEBHOOK_SECRET)")
	}

	major, err := decimal.NewFromString(*amount)
	if err != nil {
		log.Fatalf("invalid amount %q: %v", *amount, err)
	}

	if *eventID == "" {
		*eventID = "evt_local_" + strings.ReplaceAll(uuid.NewString(), "-", "")
	}

	payload, err := buildEvent(*eventID, *eventType, major, *currency, *intentID, map[string]string{
		"bookingId": *bookingID,
		"parentId":  *parentID,
		"tutorId":   *tutorID,
	})
	if err != nil {
		log.Fatalf("failed to build event: %v", err)
	}

	req, err := http.NewRequest(http.MethodPost, *target, bytes.NewReader(payload))
	if err != nil {
		log.Fatalf("failed to build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "Stripe/1.0 (+https://stripe.com/docs/webhooks)")
	req.Header.Set(gateway.SignatureHeader, gateway.SignPayload(payload, *secret, time.Now()))

	client := &http.Client{Timeout: 30 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		log.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	fmt.Printf("event %s -> %s\n%s\n", *eventID, resp.Status, body)
}

func buildEvent(eventID, eventType string, amount decimal.Decimal, currency, intentID string, metadata map[string]string) ([]byte, error) {
	for k, v := range metadata {
		if v == "" {
			delete(metadata, k)
		}
	}

	session := map[string]interface{}{
		"id":                   "cs_test_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:24],
		"object":               "checkout.session",
		"amount_total":         gateway.ToMinorUnits(amount),
		"currency":             currency,
		"customer_email":       "parent@example.com",
		"metadata":             metadata,
		"mode":                 "payment",
		"payment_method_types": []string{"card"},
		"payment_status":       "paid",
		"status":               "complete",
	}
	if intentID != "" {
		session["payment_intent"] = intentID
	}

	event := map[string]interface{}{
		"id":          eventID,
		"object":      "event",
		"api_version": "2025-03-31.basil",
		"created":     time.Now().Unix(),
		"type":        eventType,
		"data": map[string]interface{}{
			"object": session,
		},
	}
	return json.Marshal(event)
}
