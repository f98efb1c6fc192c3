package shrinkage

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	notificationsCacheKey = "mermas:notificaciones"
	notificationsCacheTTL = 60 * time.Second

	// changeHorizon is how far ahead the feed warns about upcoming automatic
	// changes.
	changeHorizon = 2 * 24 * time.Hour
)

// Notifier serves the read-only alerting feed: products at or below their
// minimum stock and products about to hit their automatic change window. The
// feed is cached in Redis for a short TTL; a cache failure degrades to a
// direct read.
type Notifier struct {
	repo  RepositoryPort
	cache *redis.Client
	now   func() time.Time
}

// NewNotifier builds a Notifier. The cache client may be nil.
func NewNotifier(repo RepositoryPort, cache *redis.Client) *Notifier {
	return &Notifier{repo: repo, cache: cache, now: func() time.Time { return time.Now().UTC() }}
}

// Feed returns the current notifications.
func (n *Notifier) Feed(ctx context.Context) ([]Notification, error) {
	if n.cache != nil {
		if raw, err := n.cache.Get(ctx, notificationsCacheKey).Bytes(); err == nil {
			var cached []Notification
			if json.Unmarshal(raw, &cached) == nil {
				return cached, nil
			}
		}
	}

	notifications, err := n.build(ctx)
	if err != nil {
		return nil, err
	}

	if n.cache != nil {
		if raw, err := json.Marshal(notifications); err == nil {
			_ = n.cache.Set(ctx, notificationsCacheKey, raw, notificationsCacheTTL).Err()
		}
	}
	return notifications, nil
}

func (n *Notifier) build(ctx context.Context) ([]Notification, error) {
	now := n.now()
	notifications := []Notification{}

	low, err := n.repo.ListLowStock(ctx)
	if err != nil {
		return nil, err
	}
	for _, p := range low {
		notifications = append(notifications, Notification{
			Tipo:        NotificacionStockBajo,
			IDProducto:  p.ID,
			Producto:    p.Nombre,
			StockActual: p.StockActual,
			StockMinimo: p.StockMinimo,
		})
	}

	due, err := n.repo.ListChangeDue(ctx, now.Add(changeHorizon))
	if err != nil {
		return nil, err
	}
	for _, p := range due {
		deadline := p.FechaCreacion.AddDate(0, 0, p.TiempoCambio)
		remaining := int(deadline.Sub(now).Hours() / 24)
		if remaining < 0 {
			remaining = 0
		}
		notifications = append(notifications, Notification{
			Tipo:          NotificacionCambioCerca,
			IDProducto:    p.ID,
			Producto:      p.Nombre,
			StockActual:   p.StockActual,
			DiasRestantes: remaining,
		})
	}
	return notifications, nil
}
