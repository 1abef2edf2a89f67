package utils

import (
	"strings"

	ua "github.com/mssola/user_agent"
)

// ClientInfo holds what we record about the sender of a request
type ClientInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
	OS      string `json:"os"`
	IsBot   bool   `json:"is_bot"`
	Raw     string `json:"raw"`
}

// ParseUserAgent parses a User-Agent header
func ParseUserAgent(userAgent string) ClientInfo {
	if userAgent == "" || userAgent == "Unknown" {
		return ClientInfo{Name: "Unknown", OS: "Unknown", Raw: userAgent}
	}

	parser := ua.New(userAgent)
	name, version := parser.Browser()
	if name == "" {
		// Server-to-server clients like Stripe/1.0 parse as a bare product token
		name, version = productToken(userAgent)
	}

	return ClientInfo{
		Name:    name,
		Version: version,
		OS:      osName(parser),
		IsBot:   parser.Bot(),
		Raw:     userAgent,
	}
}

// DescribeUserAgent returns a short "name/version" label for audit entries
func DescribeUserAgent(userAgent string) string {
	info := ParseUserAgent(userAgent)
	if info.Version == "" {
		return info.Name
	}
	return info.Name + "/" + info.Version
}

func productToken(userAgent string) (string, string) {
	token := strings.Fields(userAgent)[0]
	name, version, _ := strings.Cut(token, "/")
	if name == "" {
		return "Unknown", ""
	}
	return name, version
}

func osName(parser *ua.UserAgent) string {
	info := parser.OSInfo()
	if info.Name == "" {
		return "Unknown"
	}
	if info.Version != "" {
		return info.Name + " " + info.Version
	}
	return info.Name
}
