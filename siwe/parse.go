package siwe

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Parse decodes raw into a Message. Any deviation from the grammar, a missing
// required field or an invalid field value yields an error wrapping ErrMalformed.
func Parse(raw string) (*Message, error) {
	lines := strings.Split(raw, "\n")
	for len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}

	p := &parser{lines: lines}
	msg := &Message{}

	if err := p.header(msg); err != nil {
		return nil, err
	}
	if err := p.address(msg); err != nil {
		return nil, err
	}
	if err := p.statement(msg); err != nil {
		return nil, err
	}
	if err := p.fields(msg); err != nil {
		return nil, err
	}

	return msg, nil
}

type parser struct {
	lines []string
	pos   int
}

func (p *parser) next() (string, bool) {
	if p.pos >= len(p.lines) {
		return "", false
	}
	line := p.lines[p.pos]
	p.pos++
	return line, true
}

func (p *parser) peek() (string, bool) {
	if p.pos >= len(p.lines) {
		return "", false
	}
	return p.lines[p.pos], true
}

func malformed(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrMalformed}, args...)...)
}

func (p *parser) header(msg *Message) error {
	line, ok := p.next()
	if !ok || !strings.HasSuffix(line, headerSuffix) {
		return malformed("missing header line")
	}

	origin := strings.TrimSuffix(line, headerSuffix)
	if scheme, rest, found := strings.Cut(origin, "://"); found {
		if scheme == "" {
			return malformed("empty scheme")
		}
		msg.Scheme = scheme
		origin = rest
	}
	if origin == "" || strings.ContainsAny(origin, " \t/") {
		return malformed("invalid domain %q", origin)
	}
	msg.Domain = origin

	return nil
}

func (p *parser) address(msg *Message) error {
	line, ok := p.next()
	if !ok || line == "" {
		return malformed("missing address")
	}
	if !common.IsHexAddress(line) || !strings.HasPrefix(line, "0x") {
		return malformed("invalid address %q", line)
	}

	addr := common.HexToAddress(line)
	hexPart := line[2:]
	mixedCase := strings.ToLower(hexPart) != hexPart && strings.ToUpper(hexPart) != hexPart
	if mixedCase && addr.Hex() != line {
		return malformed("address %q has an invalid checksum", line)
	}
	msg.Address = addr

	return nil
}

// statement consumes the blank separator lines and the optional statement.
// Both the strict form (blank, statement?, blank) and the single blank line
// emitted by some clients when no statement is present are accepted.
func (p *parser) statement(msg *Message) error {
	line, ok := p.next()
	if !ok || line != "" {
		return malformed("expected blank line after address")
	}

	line, ok = p.peek()
	if !ok {
		return malformed("missing URI")
	}
	switch {
	case line == "":
		p.pos++
	case strings.HasPrefix(line, tagURI):
	default:
		msg.Statement = line
		p.pos++
		if blank, ok := p.next(); !ok || blank != "" {
			return malformed("expected blank line after statement")
		}
	}

	return nil
}

func (p *parser) tagged(tag string, required bool) (string, bool, error) {
	line, ok := p.peek()
	if !ok || !strings.HasPrefix(line, tag) {
		if required {
			return "", false, malformed("missing %q", strings.TrimSuffix(tag, ": "))
		}
		return "", false, nil
	}
	p.pos++

	// request-id = *pchar may be empty
	value := strings.TrimPrefix(line, tag)
	if value == "" && tag != tagRequestID {
		return "", false, malformed("empty %q", strings.TrimSuffix(tag, ": "))
	}
	return value, true, nil
}

func (p *parser) fields(msg *Message) error {
	uri, _, err := p.tagged(tagURI, true)
	if err != nil {
		return err
	}
	if u, err := url.Parse(uri); err != nil || u.Scheme == "" {
		return malformed("invalid URI %q", uri)
	}
	msg.URI = uri

	version, _, err := p.tagged(tagVersion, true)
	if err != nil {
		return err
	}
	if version != Version {
		return malformed("unsupported version %q", version)
	}
	msg.Version = version

	chainID, _, err := p.tagged(tagChainID, true)
	if err != nil {
		return err
	}
	id, err := strconv.ParseInt(chainID, 10, 64)
	if err != nil || id <= 0 {
		return malformed("invalid chain id %q", chainID)
	}
	msg.ChainID = id

	nonce, _, err := p.tagged(tagNonce, true)
	if err != nil {
		return err
	}
	if !isAlphanumeric(nonce) {
		return malformed("invalid nonce %q", nonce)
	}
	msg.Nonce = nonce

	issuedAt, _, err := p.tagged(tagIssuedAt, true)
	if err != nil {
		return err
	}
	if msg.IssuedAt, err = parseTime(issuedAt); err != nil {
		return malformed("invalid issued at %q", issuedAt)
	}

	if v, ok, err := p.tagged(tagExpirationTime, false); err != nil {
		return err
	} else if ok {
		t, err := parseTime(v)
		if err != nil {
			return malformed("invalid expiration time %q", v)
		}
		msg.ExpirationTime = &t
	}

	if v, ok, err := p.tagged(tagNotBefore, false); err != nil {
		return err
	} else if ok {
		t, err := parseTime(v)
		if err != nil {
			return malformed("invalid not before %q", v)
		}
		msg.NotBefore = &t
	}

	if v, ok, err := p.tagged(tagRequestID, false); err != nil {
		return err
	} else if ok {
		msg.RequestID = v
	}

	if line, ok := p.peek(); ok && line == tagResources {
		p.pos++
		for {
			line, ok := p.peek()
			if !ok || !strings.HasPrefix(line, resourcePrefix) {
				break
			}
			p.pos++
			resource := strings.TrimPrefix(line, resourcePrefix)
			if u, err := url.Parse(resource); err != nil || u.Scheme == "" {
				return malformed("invalid resource %q", resource)
			}
			msg.Resources = append(msg.Resources, resource)
		}
	}

	if line, ok := p.peek(); ok {
		return malformed("unexpected line %q", line)
	}

	return nil
}

func parseTime(v string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, v)
}

func isAlphanumeric(s string) bool {
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		default:
			return false
		}
	}
	return s != ""
}
