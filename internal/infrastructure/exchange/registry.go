package exchange

import (
	"sort"

	"go.uber.org/zap"

	"github.com/vitos/crypto_signal_relay/internal/config"
	"github.com/vitos/crypto_signal_relay/internal/domain"
)

// Registry is the process-wide mapping from exchange name to an
// authenticated connector. It is built once at startup and read-only
// afterwards, so it is safe for concurrent use without locking.
type Registry struct {
	connectors map[string]domain.Connector
}

func NewRegistry(connectors map[string]domain.Connector) *Registry {
	m := make(map[string]domain.Connector, len(connectors))
	for name, c := range connectors {
		m[name] = c
	}
	return &Registry{connectors: m}
}

// FromSecrets builds a registry from configured credentials. An exchange
// with a missing key or secret is simply absent, not an error.
func FromSecrets(secrets *config.Secrets, log *zap.Logger) *Registry {
	connectors := make(map[string]domain.Connector)

	if secrets.BybitAPIKey != "" && secrets.BybitAPISecret != "" {
		connectors["bybit"] = NewBybitAdapter(secrets.BybitAPIKey, secrets.BybitAPISecret, "")
	}
	if secrets.BinanceAPIKey != "" && secrets.BinanceAPISecret != "" {
		connectors["binance"] = NewBinanceAdapter(secrets.BinanceAPIKey, secrets.BinanceAPISecret, "")
	}

	names := make([]string, 0, len(connectors))
	for name := range connectors {
		names = append(names, name)
	}
	sort.Strings(names)
	log.Info("Exchange registry built", zap.Strings("exchanges", names))

	return &Registry{connectors: connectors}
}

func (r *Registry) Get(name string) (domain.Connector, bool) {
	c, ok := r.connectors[name]
	return c, ok
}

func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.connectors))
	for name := range r.connectors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
