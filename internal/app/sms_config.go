package app

import "github.com/medconnecthq/medconnect/internal/notify"

// GatewaySettings converts SMSConfig to the notify package representation.
func (c SMSConfig) GatewaySettings() notify.GatewaySettings {
	return notify.GatewaySettings{
		Enabled: c.Enabled,
		URL:     c.URL,
		APIKey:  c.APIKey,
		Sender:  c.Sender,
		Timeout: c.Timeout,
	}
}
