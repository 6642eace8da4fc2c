package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"
)

// Interactive helper: registers a domain against a running API instance
// and prints the DNS record the owner has to publish.
func main() {
	api := os.Getenv("API_BASE")
	if api == "" {
		api = "http://localhost:8080"
	}
	key := os.Getenv("PUBLIC_API_KEY")

	reader := bufio.NewReader(os.Stdin)
	fmt.Print("Enter a domain to monitor (e.g., example.com): ")
	raw, _ := reader.ReadString('\n')
	raw = strings.TrimSpace(raw)
	if raw == "" {
		fmt.Println("No domain given.")
		return
	}

	body, _ := json.Marshal(map[string]string{"domain": raw})
	req, err := http.NewRequest(http.MethodPost, api+"/api/domains", bytes.NewReader(body))
	if err != nil {
		fmt.Println("Error building request:", err)
		return
	}
	req.Header.Set("Content-Type", "application/json")
	if key != "" {
		req.Header.Set("X-API-Key", key)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		fmt.Println("Error contacting API:", err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		fmt.Println("API returned status:", resp.Status)
		return
	}

	var out struct {
		Domain           string `json:"domain"`
		VerificationCode string `json:"verificationCode"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		fmt.Println("Error decoding response:", err)
		return
	}

	fmt.Println("Registered:", out.Domain)
	fmt.Println("Add this TXT record to your DNS, then POST /api/domains/" + out.Domain + "/verify:")
	fmt.Println("  Name: ", out.Domain)
	fmt.Println("  Value:", "monitoring-verify="+out.VerificationCode)
}
