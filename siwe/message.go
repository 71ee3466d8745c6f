// Package siwe decodes and renders Sign-In-With-Ethereum (EIP-4361) messages.
//
// Parsing is purely syntactic: a parsed Message is a candidate until its
// signature and nonce have been checked by the caller.
package siwe

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Version is the only message schema version defined by EIP-4361.
const Version = "1"

const (
	headerSuffix = " wants you to sign in with your Ethereum account:"

	tagURI            = "URI: "
	tagVersion        = "Version: "
	tagChainID        = "Chain ID: "
	tagNonce          = "Nonce: "
	tagIssuedAt       = "Issued At: "
	tagExpirationTime = "Expiration Time: "
	tagNotBefore      = "Not Before: "
	tagRequestID      = "Request ID: "
	tagResources      = "Resources:"
	resourcePrefix    = "- "
)

var (
	// ErrMalformed is returned when a message violates the EIP-4361 grammar.
	ErrMalformed = errors.New("siwe: malformed message")

	// ErrExpired is returned when the message expiration time has passed.
	ErrExpired = errors.New("siwe: message expired")

	// ErrNotYetValid is returned when the message not-before time is in the future.
	ErrNotYetValid = errors.New("siwe: message not yet valid")
)

// Message is a decoded EIP-4361 authentication message.
type Message struct {
	Scheme         string         `json:"scheme,omitempty"`
	Domain         string         `json:"domain"`
	Address        common.Address `json:"address"`
	Statement      string         `json:"statement,omitempty"`
	URI            string         `json:"uri"`
	Version        string         `json:"version"`
	ChainID        int64          `json:"chainId"`
	Nonce          string         `json:"nonce"`
	IssuedAt       time.Time      `json:"issuedAt"`
	ExpirationTime *time.Time     `json:"expirationTime,omitempty"`
	NotBefore      *time.Time     `json:"notBefore,omitempty"`
	RequestID      string         `json:"requestId,omitempty"`
	Resources      []string       `json:"resources,omitempty"`
}

// String renders the message in its canonical line-oriented form.
// The address is always rendered with its EIP-55 checksum.
func (m *Message) String() string {
	var b strings.Builder

	if m.Scheme != "" {
		b.WriteString(m.Scheme)
		b.WriteString("://")
	}
	b.WriteString(m.Domain)
	b.WriteString(headerSuffix)
	b.WriteString("\n")
	b.WriteString(m.Address.Hex())
	b.WriteString("\n\n")
	if m.Statement != "" {
		b.WriteString(m.Statement)
		b.WriteString("\n")
	}
	b.WriteString("\n")

	b.WriteString(tagURI + m.URI + "\n")
	b.WriteString(tagVersion + m.Version + "\n")
	b.WriteString(tagChainID + strconv.FormatInt(m.ChainID, 10) + "\n")
	b.WriteString(tagNonce + m.Nonce + "\n")
	b.WriteString(tagIssuedAt + formatTime(m.IssuedAt))
	if m.ExpirationTime != nil {
		b.WriteString("\n" + tagExpirationTime + formatTime(*m.ExpirationTime))
	}
	if m.NotBefore != nil {
		b.WriteString("\n" + tagNotBefore + formatTime(*m.NotBefore))
	}
	if m.RequestID != "" {
		b.WriteString("\n" + tagRequestID + m.RequestID)
	}
	if len(m.Resources) > 0 {
		b.WriteString("\n" + tagResources)
		for _, r := range m.Resources {
			b.WriteString("\n" + resourcePrefix + r)
		}
	}

	return b.String()
}

// ValidAt checks the optional validity window against t.
func (m *Message) ValidAt(t time.Time) error {
	if m.ExpirationTime != nil && !t.Before(*m.ExpirationTime) {
		return fmt.Errorf("%w: expired at %s", ErrExpired, formatTime(*m.ExpirationTime))
	}
	if m.NotBefore != nil && t.Before(*m.NotBefore) {
		return fmt.Errorf("%w: valid from %s", ErrNotYetValid, formatTime(*m.NotBefore))
	}
	return nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}
