package simclient

import (
	"context"
	"net/http"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/kilianp07/evload/config"
)

func credentials(c config.AuthConfig) clientcredentials.Config {
	return clientcredentials.Config{
		ClientID:     c.ClientID,
		ClientSecret: c.ClientSecret,
		TokenURL:     c.TokenURL,
		Scopes:       c.Scopes,
	}
}

// httpClient returns the client used for simulation requests. With auth
// enabled, tokens are fetched on first use and refreshed once expired.
func httpClient(cfg config.SimulatorConfig) *http.Client {
	base := &http.Client{Timeout: cfg.Timeout()}
	if !cfg.Auth.Enabled() {
		return base
	}
	cc := credentials(cfg.Auth)
	hc := cc.Client(context.WithValue(context.Background(), oauth2.HTTPClient, base))
	hc.Timeout = cfg.Timeout()
	return hc
}
