// Package detail prepares the auxiliary detail-page buttons that accompany
// an answer. Preparation is soft-fail: a lookup failure downgrades to an
// empty button list, it never fails the job.
package detail

import (
	"context"
	"fmt"
	"time"

	"trade-intel-be/internal/entity"
	"trade-intel-be/internal/pkg/logger"
	"trade-intel-be/internal/repository/contract"
	"trade-intel-be/internal/repository/specification"
	"trade-intel-be/pkg/intent"
	"trade-intel-be/pkg/retrieval"

	"github.com/patrickmn/go-cache"
)

const (
	ButtonTypeHsCodeDetail  = "hs_code_detail"
	ButtonTypeTrackShipment = "track_shipment"
	ButtonTypeTradeInfo     = "trade_info"
)

type Preparer struct {
	hsCodeRepo contract.HsCodeRepository
	log        logger.ILogger
	timeout    time.Duration

	// codeCache remembers whether a detail page exists for an HS code, to
	// avoid re-querying the catalog for codes that come up repeatedly.
	codeCache *cache.Cache
}

func NewPreparer(hsCodeRepo contract.HsCodeRepository, log logger.ILogger, timeout time.Duration) *Preparer {
	return &Preparer{
		hsCodeRepo: hsCodeRepo,
		log:        log,
		timeout:    timeout,
		codeCache:  cache.New(15*time.Minute, 5*time.Minute),
	}
}

// Prepare builds the detail buttons for the detected intent. Buttons arrive
// ordered by priority (lower first). Errors are logged and swallowed: the
// caller always gets a usable (possibly empty) list.
func (p *Preparer) Prepare(ctx context.Context, label intent.Label, candidates []retrieval.Candidate) []entity.DetailButton {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	switch label {
	case intent.HsCodeAnalysis:
		return p.hsCodeButtons(ctx, candidates)
	case intent.ShipmentTracking:
		return []entity.DetailButton{{
			Type:     ButtonTypeTrackShipment,
			Priority: 1,
			Target:   "/shipments/track",
			Title:    "Track a shipment",
			Ready:    true,
		}}
	case intent.GeneralTradeInfo:
		return []entity.DetailButton{{
			Type:     ButtonTypeTradeInfo,
			Priority: 1,
			Target:   "/trade-info",
			Title:    "Browse trade regulations",
			Ready:    true,
		}}
	default:
		return nil
	}
}

func (p *Preparer) hsCodeButtons(ctx context.Context, candidates []retrieval.Candidate) []entity.DetailButton {
	var buttons []entity.DetailButton
	for i, c := range candidates {
		title, ok := p.lookupCode(ctx, c.Code)
		if !ok {
			continue
		}
		buttons = append(buttons, entity.DetailButton{
			Type:     ButtonTypeHsCodeDetail,
			Priority: i + 1,
			Target:   fmt.Sprintf("/hs-codes/%s", c.Code),
			Title:    title,
			Ready:    true,
		})
	}
	return buttons
}

type cachedCode struct {
	title  string
	exists bool
}

func (p *Preparer) lookupCode(ctx context.Context, code string) (string, bool) {
	if x, found := p.codeCache.Get(code); found {
		cc := x.(cachedCode)
		return cc.title, cc.exists
	}

	hc, err := p.hsCodeRepo.FindOne(ctx, specification.ByCode{Code: code})
	if err != nil {
		p.log.Warn("detail", "hs code lookup failed", map[string]interface{}{
			"code":  code,
			"error": err.Error(),
		})
		// Soft fail: skip this button, don't poison the cache.
		return "", false
	}

	cc := cachedCode{exists: hc != nil}
	if hc != nil {
		cc.title = fmt.Sprintf("%s: %s", hc.Code, hc.Name)
	}
	p.codeCache.Set(code, cc, cache.DefaultExpiration)
	return cc.title, cc.exists
}
