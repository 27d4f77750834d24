package detail

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trade-intel-be/internal/entity"
	"trade-intel-be/internal/pkg/logger"
	"trade-intel-be/internal/repository/contract"
	"trade-intel-be/internal/repository/specification"
	"trade-intel-be/pkg/intent"
	"trade-intel-be/pkg/retrieval"
)

type fakeHsCodeRepo struct {
	contract.HsCodeRepository
	byCode map[string]*entity.HsCode
	err    error
	calls  int
}

func (f *fakeHsCodeRepo) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.HsCode, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	for _, spec := range specs {
		if byCode, ok := spec.(specification.ByCode); ok {
			return f.byCode[byCode.Code], nil
		}
	}
	return nil, nil
}

func TestPreparer_HsCodeIntentBuildsButtonPerCandidate(t *testing.T) {
	repo := &fakeHsCodeRepo{byCode: map[string]*entity.HsCode{
		"0808.10": {Code: "0808.10", Name: "Apples, fresh"},
		"0808.30": {Code: "0808.30", Name: "Pears, fresh"},
	}}
	p := NewPreparer(repo, logger.NewNopLogger(), 5*time.Second)

	buttons := p.Prepare(context.Background(), intent.HsCodeAnalysis, []retrieval.Candidate{
		{Code: "0808.10"},
		{Code: "0808.30"},
	})

	require.Len(t, buttons, 2)
	assert.Equal(t, ButtonTypeHsCodeDetail, buttons[0].Type)
	assert.Equal(t, 1, buttons[0].Priority)
	assert.Equal(t, "/hs-codes/0808.10", buttons[0].Target)
	assert.Equal(t, "0808.10: Apples, fresh", buttons[0].Title)
	assert.True(t, buttons[0].Ready)
	assert.Equal(t, 2, buttons[1].Priority)
}

func TestPreparer_SkipsCodesMissingFromCatalog(t *testing.T) {
	repo := &fakeHsCodeRepo{byCode: map[string]*entity.HsCode{
		"0808.10": {Code: "0808.10", Name: "Apples, fresh"},
	}}
	p := NewPreparer(repo, logger.NewNopLogger(), 5*time.Second)

	buttons := p.Prepare(context.Background(), intent.HsCodeAnalysis, []retrieval.Candidate{
		{Code: "9999.99"},
		{Code: "0808.10"},
	})

	require.Len(t, buttons, 1)
	assert.Equal(t, "/hs-codes/0808.10", buttons[0].Target)
}

func TestPreparer_LookupFailureSoftFailsToEmpty(t *testing.T) {
	repo := &fakeHsCodeRepo{err: errors.New("db down")}
	p := NewPreparer(repo, logger.NewNopLogger(), 5*time.Second)

	buttons := p.Prepare(context.Background(), intent.HsCodeAnalysis, []retrieval.Candidate{
		{Code: "0808.10"},
	})

	assert.Empty(t, buttons)
}

func TestPreparer_CachesCatalogLookups(t *testing.T) {
	repo := &fakeHsCodeRepo{byCode: map[string]*entity.HsCode{
		"0808.10": {Code: "0808.10", Name: "Apples, fresh"},
	}}
	p := NewPreparer(repo, logger.NewNopLogger(), 5*time.Second)

	candidates := []retrieval.Candidate{{Code: "0808.10"}}
	p.Prepare(context.Background(), intent.HsCodeAnalysis, candidates)
	p.Prepare(context.Background(), intent.HsCodeAnalysis, candidates)

	assert.Equal(t, 1, repo.calls)
}

func TestPreparer_ShipmentTrackingButton(t *testing.T) {
	p := NewPreparer(&fakeHsCodeRepo{}, logger.NewNopLogger(), 5*time.Second)

	buttons := p.Prepare(context.Background(), intent.ShipmentTracking, nil)
	require.Len(t, buttons, 1)
	assert.Equal(t, ButtonTypeTrackShipment, buttons[0].Type)
}

func TestPreparer_OutOfScopeGetsNoButtons(t *testing.T) {
	p := NewPreparer(&fakeHsCodeRepo{}, logger.NewNopLogger(), 5*time.Second)

	assert.Empty(t, p.Prepare(context.Background(), intent.OutOfScope, nil))
}
