// SiteNameCache — LRU-кэш имён точек продаж с TTL.
// Обёртка над hashicorp/golang-lru/v2/expirable.
package service

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	siteCacheHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pm_site_cache_hits_total",
		Help: "Общее количество попаданий в кэш имён точек.",
	})
	siteCacheMissesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pm_site_cache_misses_total",
		Help: "Общее количество промахов кэша имён точек.",
	})
)

// SiteNameCache — кэш site_id -> name. У каждого экземпляра свой кэш.
type SiteNameCache struct {
	cache *expirable.LRU[string, string]
}

// NewSiteNameCache создаёт кэш с указанным максимальным размером и TTL.
func NewSiteNameCache(maxSize int, ttl time.Duration) *SiteNameCache {
	return &SiteNameCache{cache: expirable.NewLRU[string, string](maxSize, nil, ttl)}
}

// Get возвращает имя точки. Обновляет метрики hit/miss.
func (c *SiteNameCache) Get(siteID string) (string, bool) {
	name, ok := c.cache.Get(siteID)
	if ok {
		siteCacheHitsTotal.Inc()
		return name, true
	}
	siteCacheMissesTotal.Inc()
	return "", false
}

// Set добавляет или обновляет имя точки.
func (c *SiteNameCache) Set(siteID, name string) {
	c.cache.Add(siteID, name)
}

// Len — количество записей в кэше.
func (c *SiteNameCache) Len() int {
	return c.cache.Len()
}
