package resty_fetcher

import (
	"context"
	"net/http"
	"net/http/cookiejar"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/user/profile-scraper/internal/proxy"
	"go.uber.org/zap"
	"golang.org/x/net/publicsuffix"
)

// Transport performs one GET with no retries of its own.
// A non-nil error means no HTTP response was received.
type Transport interface {
	Do(ctx context.Context, url string) (status int, body string, err error)
}

// browserHeaders mimic a desktop Chrome navigation.
var browserHeaders = map[string]string{
	"Accept":                    "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,image/apng,*/*;q=0.8,application/signed-exchange;v=b3;q=0.7",
	"Accept-Language":           "pt-BR,pt;q=0.9,en-US;q=0.8,en;q=0.7",
	"Priority":                  "u=0, i",
	"Sec-Ch-Ua":                 `"Not)A;Brand";v="8", "Chromium";v="138", "Google Chrome";v="138"`,
	"Sec-Ch-Ua-Mobile":          "?0",
	"Sec-Ch-Ua-Platform":        `"Linux"`,
	"Sec-Fetch-Dest":            "document",
	"Sec-Fetch-Mode":            "navigate",
	"Sec-Fetch-Site":            "same-origin",
	"Sec-Fetch-User":            "?1",
	"Upgrade-Insecure-Requests": "1",
	"User-Agent":                "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/138.0.0.0 Safari/537.36",
}

// RestyTransport sends requests through resty. One client is kept per proxy
// so rotation never mutates a client other workers are using; all clients
// share one cookie jar.
type RestyTransport struct {
	direct  *resty.Client
	proxied map[string]*resty.Client
	proxies *proxy.Manager
}

func NewRestyTransport(timeout time.Duration, proxies *proxy.Manager, logger *zap.Logger) (*RestyTransport, error) {
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, err
	}
	if proxies == nil {
		proxies = proxy.NewManager(nil, nil)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	newClient := func() *resty.Client {
		return resty.New().
			SetTimeout(timeout).
			SetHeaders(browserHeaders).
			SetCookieJar(jar).
			SetRetryCount(0).
			SetRedirectPolicy(resty.FlexibleRedirectPolicy(10)).
			SetLogger(logger.Sugar())
	}

	proxyURLs := proxies.Proxies()
	t := &RestyTransport{
		direct:  newClient(),
		proxied: make(map[string]*resty.Client, len(proxyURLs)),
		proxies: proxies,
	}
	for _, p := range proxyURLs {
		t.proxied[p] = newClient().SetProxy(p)
	}
	return t, nil
}

func (t *RestyTransport) client() *resty.Client {
	if c, ok := t.proxied[t.proxies.GetProxy()]; ok {
		return c
	}
	return t.direct
}

func (t *RestyTransport) Do(ctx context.Context, url string) (int, string, error) {
	req := t.client().R().SetContext(ctx)
	if ua := t.proxies.GetUserAgent(); ua != "" {
		req.SetHeader("User-Agent", ua)
	}
	resp, err := req.Get(url)
	if err != nil {
		return 0, "", err
	}
	return resp.StatusCode(), resp.String(), nil
}

var _ Transport = (*RestyTransport)(nil)

// statusText is used in error messages.
func statusText(code int) string {
	if s := http.StatusText(code); s != "" {
		return s
	}
	return "unknown"
}
