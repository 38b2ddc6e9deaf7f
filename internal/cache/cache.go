package cache

import (
	"context"
	"sync"
	"time"

	"gitlab.ozon.dev/qwestard/berryshop/internal/models"
	"gitlab.ozon.dev/qwestard/berryshop/internal/repository"
)

// ActiveOrdersCache хранит заказы в нетерминальных статусах.
type ActiveOrdersCache struct {
	Mu     sync.RWMutex
	Orders map[int64]*models.Order
}

func NewActiveOrdersCache() *ActiveOrdersCache {
	return &ActiveOrdersCache{
		Orders: make(map[int64]*models.Order),
	}
}

func (c *ActiveOrdersCache) Put(o *models.Order) {
	c.Mu.Lock()
	defer c.Mu.Unlock()
	if o.Active() {
		c.Orders[o.ID] = o
	} else {
		delete(c.Orders, o.ID)
	}
}

func (c *ActiveOrdersCache) Get(id int64) (*models.Order, bool) {
	c.Mu.RLock()
	defer c.Mu.RUnlock()
	o, ok := c.Orders[id]
	return o, ok
}

func (c *ActiveOrdersCache) Delete(id int64) {
	c.Mu.Lock()
	delete(c.Orders, id)
	c.Mu.Unlock()
}

// HistoryCache хранит срез завершённых заказов для списков без похода в базу.
type HistoryCache struct {
	mu     sync.RWMutex
	orders []*models.Order
}

func NewHistoryCache() *HistoryCache {
	return &HistoryCache{
		orders: make([]*models.Order, 0),
	}
}

func (c *HistoryCache) Refresh(ctx context.Context, repo repository.Orders) error {
	orders, err := repo.List(ctx, 0, 1000)
	if err != nil {
		return err
	}
	finished := make([]*models.Order, 0, len(orders))
	for _, o := range orders {
		if !o.Active() {
			finished = append(finished, o)
		}
	}
	c.mu.Lock()
	c.orders = finished
	c.mu.Unlock()
	return nil
}

func (c *HistoryCache) Get() []*models.Order {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.orders
}

func (c *HistoryCache) StartAutoRefresh(ctx context.Context, repo repository.Orders, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if err := c.Refresh(ctx, repo); err != nil {
				return
			}
		case <-ctx.Done():
			return
		}
	}
}
