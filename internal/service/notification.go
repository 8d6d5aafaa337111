// internal/service/notification.go
package service

import (
	"fmt"

	"github.com/domipancho/courier-tracker/internal/reporter"
)

const (
	NotificationTitle   = "DomiPancho - Entrega Activa"
	NotificationWaiting = "Rastreando tu ubicación"

	inTransitPrefix = "Pedido en camino · "
)

// Notification is the content of the ongoing tracking notice.
type Notification struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

func notificationFor(latest *reporter.PositionSample, activeOrder bool) Notification {
	body := NotificationWaiting
	if latest != nil {
		body = fmt.Sprintf("Última ubicación: %.5f, %.5f (%.0fm)",
			latest.Latitude, latest.Longitude, latest.AccuracyMeters)
	}
	if activeOrder {
		body = inTransitPrefix + body
	}
	return Notification{Title: NotificationTitle, Body: body}
}
