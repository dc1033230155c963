// Package security は外部URLの検証、SSRF防止クライアント、テキストのサニタイズを提供する。
package security

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/doyensec/safeurl"
)

// URLValidator は保存対象リンクの検証インターフェース。
type URLValidator interface {
	ValidateLink(rawURL string) error
}

// ErrInvalidURL はURL検証エラーの基底。
var ErrInvalidURL = errors.New("invalid url")

// allowedSchemes は許可されるURLスキーム。
var allowedSchemes = []string{"http", "https"}

// blockedNetworks は外部取得でブロックするネットワーク範囲。
// safeurlはDialerレベルでDNS解決後のIPも検証するため、ここでは静的チェックのみ行う。
var blockedNetworks []net.IPNet

func init() {
	cidrs := []string{
		"10.0.0.0/8",
		"172.16.0.0/12",
		"192.168.0.0/16",
		"127.0.0.0/8",
		// クラウドメタデータIP (169.254.169.254) を含む
		"169.254.0.0/16",
		"0.0.0.0/8",
		"::1/128",
		"fe80::/10",
		"fc00::/7",
	}
	for _, cidr := range cidrs {
		_, network, err := net.ParseCIDR(cidr)
		if err != nil {
			panic(fmt.Sprintf("invalid CIDR in blockedNetworks: %s: %v", cidr, err))
		}
		blockedNetworks = append(blockedNetworks, *network)
	}
}

// URLGuard はURL検証とSSRF防止HTTPクライアントの生成を行う。
type URLGuard struct {
	maxLength int
}

// NewURLGuard はURLGuardを生成する。maxLengthが0以下の場合は2048を使う。
func NewURLGuard(maxLength int) *URLGuard {
	if maxLength <= 0 {
		maxLength = 2048
	}
	return &URLGuard{maxLength: maxLength}
}

// ValidateLink は保存されるリンクが絶対URLかつhttp/httpsであることを検証する。
// リンクはサーバーから取得しないため、宛先IPの検証は行わない。
func (g *URLGuard) ValidateLink(rawURL string) error {
	_, err := g.parse(rawURL)
	return err
}

// ValidateFetchURL はサーバーから取得するURLを検証する。
// ValidateLinkの条件に加えて、プライベートIPとlocalhostを拒否する。
func (g *URLGuard) ValidateFetchURL(rawURL string) error {
	parsed, err := g.parse(rawURL)
	if err != nil {
		return err
	}

	host := parsed.Hostname()
	if ip := net.ParseIP(host); ip != nil {
		for _, network := range blockedNetworks {
			if network.Contains(ip) {
				return fmt.Errorf("%w: blocked IP address %s", ErrInvalidURL, ip)
			}
		}
		return nil
	}
	if strings.EqualFold(host, "localhost") || strings.HasSuffix(strings.ToLower(host), ".localhost") {
		return fmt.Errorf("%w: blocked host %s", ErrInvalidURL, host)
	}
	return nil
}

func (g *URLGuard) parse(rawURL string) (*url.URL, error) {
	if rawURL == "" {
		return nil, fmt.Errorf("%w: empty URL", ErrInvalidURL)
	}
	if len(rawURL) > g.maxLength {
		return nil, fmt.Errorf("%w: URL exceeds %d bytes", ErrInvalidURL, g.maxLength)
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}

	scheme := strings.ToLower(parsed.Scheme)
	allowed := false
	for _, s := range allowedSchemes {
		if scheme == s {
			allowed = true
			break
		}
	}
	if !allowed {
		return nil, fmt.Errorf("%w: disallowed scheme %q", ErrInvalidURL, parsed.Scheme)
	}
	if parsed.Hostname() == "" {
		return nil, fmt.Errorf("%w: empty host", ErrInvalidURL)
	}
	return parsed, nil
}

// NewSafeClient はSSRF防止機能付きのHTTPクライアントを生成する。
// プライベートIP、ループバック、リンクローカル、メタデータIPへの接続は
// safeurlがDNS解決後に拒否する。
func (g *URLGuard) NewSafeClient(timeout time.Duration) *http.Client {
	config := safeurl.GetConfigBuilder().
		SetTimeout(timeout).
		SetAllowedSchemes(allowedSchemes...).
		SetAllowedPorts(80, 443).
		Build()

	return safeurl.Client(config).Client
}

var _ URLValidator = (*URLGuard)(nil)
