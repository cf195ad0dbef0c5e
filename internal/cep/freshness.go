package cep

import (
	"time"

	"github.com/Rampap-Brasil/postmon/internal/models"
)

const (
	// Confirmed misses are retried after an hour in production; dev
	// configs shrink this to minutes. Valid addresses live six months.
	DefaultNotFoundTTL = time.Hour
	DefaultFoundTTL    = 26 * 7 * 24 * time.Hour
)

// Policy decides whether a cached record must be refetched. Stale is a
// pure function of (now, verified_at, not_found); absence of the record
// or of its timestamp always means stale.
type Policy struct {
	NotFoundTTL time.Duration
	FoundTTL    time.Duration
}

func DefaultPolicy() Policy {
	return Policy{NotFoundTTL: DefaultNotFoundTTL, FoundTTL: DefaultFoundTTL}
}

func NewPolicy(notFoundTTL, foundTTL time.Duration) Policy {
	p := DefaultPolicy()
	if notFoundTTL > 0 {
		p.NotFoundTTL = notFoundTTL
	}
	if foundTTL > 0 {
		p.FoundTTL = foundTTL
	}
	return p
}

func (p Policy) Stale(now time.Time, rec *models.Address) bool {
	if rec == nil || rec.Meta == nil || rec.Meta.VerifiedAt.IsZero() {
		return true
	}
	age := now.Sub(rec.Meta.VerifiedAt)
	if rec.Meta.NotFound {
		return age >= p.NotFoundTTL
	}
	return age >= p.FoundTTL
}
